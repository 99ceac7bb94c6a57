package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"

	"field-mapper/internal/common"
	"field-mapper/internal/form"
	"field-mapper/internal/match"
)

// SupportedVersions is the range of rules file versions this build reads.
const SupportedVersions = ">= 1.0.0, < 2.0.0"

var (
	// ErrUnknownManufacturer is returned for a manufacturer without a rule set.
	ErrUnknownManufacturer = errors.New("unknown manufacturer")
	// ErrUnsupportedVersion is returned for a rules file outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported rules version")
)

//go:embed defaults.yaml
var defaultRules []byte

// File is the YAML form of a rules file.
type File struct {
	Version       string                      `yaml:"version"`
	Manufacturers map[string]ManufacturerFile `yaml:"manufacturers"`
}

// ManufacturerFile is the YAML form of one manufacturer's rules.
type ManufacturerFile struct {
	Name        string                 `yaml:"name,omitempty"`
	DateFormat  string                 `yaml:"date_format,omitempty"`
	PhoneFormat string                 `yaml:"phone_format,omitempty"`
	Variations  map[string][]string    `yaml:"variations,omitempty"`
	Defaults    map[string]string      `yaml:"defaults,omitempty"`
	Fields      map[string][]form.Rule `yaml:"fields,omitempty"`
	Submission  []SubmissionRule       `yaml:"submission,omitempty"`
}

// Catalog holds the rule sets of all manufacturers.
type Catalog struct {
	version  *semver.Version
	sets     map[string]*RuleSet
	registry *Registry
}

// Default returns the catalog built from the embedded rules file.
func Default() (*Catalog, error) {
	return Parse(defaultRules)
}

// Load reads a rules file. An empty path loads the embedded defaults.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses a rules file with the built-in transform registry.
func Parse(data []byte) (*Catalog, error) {
	return ParseWithRegistry(data, NewRegistry())
}

// ParseWithRegistry parses a rules file and checks every rule, transform
// reference and CEL expression in it. All problems are reported together.
func ParseWithRegistry(data []byte, registry *Registry) (*Catalog, error) {
	if err := checkShape(data); err != nil {
		return nil, err
	}

	var f File

	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	version, err := checkVersion(f.Version)
	if err != nil {
		return nil, err
	}

	env, err := newCELEnv()
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		version:  version,
		sets:     make(map[string]*RuleSet, len(f.Manufacturers)),
		registry: registry,
	}

	var errs []error

	for _, id := range common.SortedKeys(f.Manufacturers) {
		rs, err := buildRuleSet(id, f.Manufacturers[id], env, registry)
		if err != nil {
			errs = append(errs, fmt.Errorf("manufacturer %s: %w", id, err))
			continue
		}

		c.sets[id] = rs
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return c, nil
}

func checkVersion(v string) (*semver.Version, error) {
	if v == "" {
		v = "1.0.0"
	}

	version, err := semver.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrUnsupportedVersion, v, err)
	}

	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return nil, err
	}

	if !constraint.Check(version) {
		return nil, fmt.Errorf("%w: %s (want %s)", ErrUnsupportedVersion, version, SupportedVersions)
	}

	return version, nil
}

func buildRuleSet(id string, mf ManufacturerFile, env *cel.Env, registry *Registry) (*RuleSet, error) {
	var errs []error

	rs := &RuleSet{
		Manufacturer: id,
		DisplayName:  mf.Name,
		Formats:      Formats{Date: mf.DateFormat, Phone: mf.PhoneFormat},
		variations:   make(map[string][]string, len(mf.Variations)),
		defaults:     make(map[string]string, len(mf.Defaults)),
		fieldRules:   make(map[string][]form.Rule, len(mf.Fields)),
		registry:     registry,
	}

	if rs.DisplayName == "" {
		rs.DisplayName = id
	}

	for target, names := range mf.Variations {
		key := match.Normalize(target)
		rs.variations[key] = append(rs.variations[key], names...)
	}

	for k, v := range mf.Defaults {
		rs.defaults[match.Normalize(k)] = v
	}

	rs.defaultKeys = sortDefaultKeys(rs.defaults)

	for field, list := range mf.Fields {
		for _, r := range list {
			if err := ValidateRule(r); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", field, err))
			}
		}

		key := match.Normalize(field)
		rs.fieldRules[key] = append(rs.fieldRules[key], list...)
	}

	if mf.PhoneFormat != "" {
		if _, err := formatPhone("5555555555", rs.Formats); err != nil {
			errs = append(errs, err)
		}
	}

	for i := range mf.Submission {
		r := mf.Submission[i]
		if err := r.compile(env); err != nil {
			errs = append(errs, err)
			continue
		}

		rs.submission = append(rs.submission, &r)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return rs, nil
}

// Get returns the rule set of a manufacturer.
func (c *Catalog) Get(manufacturer string) (*RuleSet, error) {
	rs, ok := c.sets[manufacturer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownManufacturer, manufacturer)
	}

	return rs, nil
}

// Manufacturers returns the manufacturer IDs in sorted order.
func (c *Catalog) Manufacturers() []string {
	return common.SortedKeys(c.sets)
}

// Version returns the rules file version.
func (c *Catalog) Version() *semver.Version {
	return c.version
}

// Registry returns the transform registry the catalog was built with.
func (c *Catalog) Registry() *Registry {
	return c.registry
}

// CheckTemplates reports fields that name a transform the registry lacks
// or carry malformed validation rules.
func (c *Catalog) CheckTemplates(specs []form.TargetFieldSpec) error {
	var errs []error

	for _, s := range specs {
		if name := TransformName(s); name != "" && !c.registry.HasTransform(name) {
			errs = append(errs, fmt.Errorf("field %s: %w %q", s.Name, ErrUnknownTransform, name))
		}

		for _, r := range s.ValidationRules {
			if err := ValidateRule(r); err != nil {
				errs = append(errs, fmt.Errorf("field %s: %w", s.Name, err))
			}
		}
	}

	return errors.Join(errs...)
}
