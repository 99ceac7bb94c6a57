package form

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrTemplateNotFound is returned when no field specs exist for a
// manufacturer/template pair.
var ErrTemplateNotFound = errors.New("template not found")

// Registry serves the target field specs of a manufacturer's template.
type Registry interface {
	Fields(ctx context.Context, manufacturer, template string) ([]TargetFieldSpec, error)
}

// TemplateFile is the YAML layout of a template registry file.
type TemplateFile struct {
	Templates []TemplateDef `yaml:"templates"`
}

// TemplateDef declares the fields of one manufacturer template.
type TemplateDef struct {
	Manufacturer string            `yaml:"manufacturer"`
	Template     string            `yaml:"template"`
	Fields       []TargetFieldSpec `yaml:"fields"`
}

// StaticRegistry is an in-memory Registry. It is safe for concurrent reads.
type StaticRegistry struct {
	templates map[string][]TargetFieldSpec
}

// NewStaticRegistry creates an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{templates: make(map[string][]TargetFieldSpec)}
}

// Add registers the fields of a template, replacing any earlier definition.
// Manufacturer and template IDs are stamped onto every spec.
func (r *StaticRegistry) Add(manufacturer, template string, fields []TargetFieldSpec) {
	stamped := make([]TargetFieldSpec, len(fields))
	for i, f := range fields {
		f.ManufacturerID = manufacturer
		f.TemplateID = template
		stamped[i] = f
	}

	r.templates[registryKey(manufacturer, template)] = stamped
}

// Fields implements Registry. The returned slice keeps declaration order.
func (r *StaticRegistry) Fields(_ context.Context, manufacturer, template string) ([]TargetFieldSpec, error) {
	fields, ok := r.templates[registryKey(manufacturer, template)]
	if !ok || len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrTemplateNotFound, manufacturer, template)
	}

	out := make([]TargetFieldSpec, len(fields))
	copy(out, fields)

	return out, nil
}

// All returns the specs of every template, ordered by manufacturer and
// template, each template in declaration order.
func (r *StaticRegistry) All() []TargetFieldSpec {
	keys := make([]string, 0, len(r.templates))
	for k := range r.templates {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	var out []TargetFieldSpec
	for _, k := range keys {
		out = append(out, r.templates[k]...)
	}

	return out
}

func registryKey(manufacturer, template string) string {
	return manufacturer + "\x00" + template
}

// ParseTemplates parses a YAML template file into a StaticRegistry.
func ParseTemplates(data []byte) (*StaticRegistry, error) {
	var tf TemplateFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse templates YAML: %w", err)
	}

	reg := NewStaticRegistry()

	for i, def := range tf.Templates {
		if def.Manufacturer == "" || def.Template == "" {
			return nil, fmt.Errorf("template #%d: manufacturer and template are required", i)
		}

		seen := make(map[string]struct{}, len(def.Fields))
		for _, f := range def.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("template %s/%s: field without name", def.Manufacturer, def.Template)
			}

			if _, dup := seen[f.Name]; dup {
				return nil, fmt.Errorf("template %s/%s: duplicate field %q", def.Manufacturer, def.Template, f.Name)
			}

			seen[f.Name] = struct{}{}
		}

		reg.Add(def.Manufacturer, def.Template, def.Fields)
	}

	return reg, nil
}

// LoadTemplates loads a YAML template registry file.
func LoadTemplates(path string) (*StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file %s: %w", path, err)
	}

	return ParseTemplates(data)
}
