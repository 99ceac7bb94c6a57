package form

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"field-mapper/internal/common"
)

// FieldType is the declared value type of a target field.
type FieldType int

const (
	FieldTypeText FieldType = iota
	FieldTypeDate
	FieldTypePhone
	FieldTypeEmail
	FieldTypeSSN
	FieldTypeNPI
	FieldTypeZip
	FieldTypeBoolean
	FieldTypeNumber
	FieldTypeSelect
)

var fieldTypeNames = map[FieldType]string{
	FieldTypeText:    "text",
	FieldTypeDate:    "date",
	FieldTypePhone:   "phone",
	FieldTypeEmail:   "email",
	FieldTypeSSN:     "ssn",
	FieldTypeNPI:     "npi",
	FieldTypeZip:     "zip",
	FieldTypeBoolean: "boolean",
	FieldTypeNumber:  "number",
	FieldTypeSelect:  "select",
}

// String returns the YAML name of the field type.
func (t FieldType) String() string {
	if name, ok := fieldTypeNames[t]; ok {
		return name
	}

	return common.UnknownStr
}

// ParseFieldType parses a field type name. The empty string is text.
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "string" {
		return FieldTypeText, nil
	}

	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}

	switch s {
	case "bool", "checkbox":
		return FieldTypeBoolean, nil
	case "tel":
		return FieldTypePhone, nil
	case "zipcode", "postal_code":
		return FieldTypeZip, nil
	}

	return FieldTypeText, fmt.Errorf("unknown field type %q", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *FieldType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := ParseFieldType(s)
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t FieldType) MarshalYAML() (any, error) {
	return t.String(), nil
}

// MarshalText lets FieldType serialize as its name in JSON.
func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *FieldType) UnmarshalText(b []byte) error {
	parsed, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Rule is a declarative validation rule attached to a field.
// Type is one of required, regex, min_length, max_length, numeric, alpha,
// alphanumeric, allowed, npi, email.
type Rule struct {
	Type  string `yaml:"type" json:"type"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
	// Message overrides the generated error text.
	Message string `yaml:"message,omitempty" json:"message,omitempty"`
}

// TargetFieldSpec describes one named slot of a form template.
type TargetFieldSpec struct {
	Name            string            `yaml:"name" json:"name"`
	Type            FieldType         `yaml:"type" json:"type"`
	Required        bool              `yaml:"required" json:"required"`
	Section         string            `yaml:"section,omitempty" json:"section,omitempty"`
	ManufacturerID  string            `yaml:"-" json:"manufacturer_id"`
	TemplateID      string            `yaml:"-" json:"template_id"`
	ValidationRules []Rule            `yaml:"validation,omitempty" json:"validation_rules,omitempty"`
	Metadata        map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Meta returns a metadata value or the empty string.
func (s TargetFieldSpec) Meta(key string) string {
	if s.Metadata == nil {
		return ""
	}

	return s.Metadata[key]
}
