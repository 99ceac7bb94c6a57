package rules

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"field-mapper/internal/form"
	"field-mapper/internal/match"
)

// RuleSet is the declarative rule bundle of one manufacturer. It is
// read-only once built by a Catalog.
type RuleSet struct {
	Manufacturer string
	DisplayName  string
	Formats      Formats

	variations map[string][]string
	defaults   map[string]string
	// defaultKeys are the normalized default keys, longest first.
	defaultKeys []string
	fieldRules  map[string][]form.Rule
	submission  []*SubmissionRule
	registry    *Registry
}

// Variations returns the manufacturer's alternative names for a target field.
func (rs *RuleSet) Variations(target string) []string {
	return slices.Clone(rs.variations[match.Normalize(target)])
}

// Default returns the manufacturer static default for a target field. A
// default key applies when it is a substring of the normalized field name;
// the longest matching key wins.
func (rs *RuleSet) Default(target string) (string, bool) {
	name := match.Normalize(target)

	for _, k := range rs.defaultKeys {
		if strings.Contains(name, k) {
			return rs.defaults[k], true
		}
	}

	return "", false
}

// FieldRules returns the validation rules for a field: the rules declared on
// the template spec followed by the manufacturer's rules for that name.
func (rs *RuleSet) FieldRules(spec form.TargetFieldSpec) []form.Rule {
	out := slices.Clone(spec.ValidationRules)
	return append(out, rs.fieldRules[match.Normalize(spec.Name)]...)
}

// Transform applies the field's transform using the manufacturer formats.
func (rs *RuleSet) Transform(spec form.TargetFieldSpec, value string) (string, error) {
	return rs.registry.Apply(spec, value, rs.Formats)
}

// CheckSubmission runs every submission rule over the resolved values.
func (rs *RuleSet) CheckSubmission(fields map[string]string) []Violation {
	var out []Violation

	for _, r := range rs.submission {
		out = append(out, r.Check(fields)...)
	}

	return out
}

// SubmissionRules returns the names of the submission rules in order.
func (rs *RuleSet) SubmissionRules() []string {
	names := make([]string, 0, len(rs.submission))
	for _, r := range rs.submission {
		names = append(names, r.Name)
	}

	return names
}

func sortDefaultKeys(defaults map[string]string) []string {
	keys := slices.Collect(maps.Keys(defaults))
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}

		return strings.Compare(a, b)
	})

	return keys
}
