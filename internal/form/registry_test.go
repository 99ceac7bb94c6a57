package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const templatesYAML = `
templates:
  - manufacturer: aurora
    template: enrollment
    fields:
      - name: patient_name
        type: text
        required: true
        section: patient
      - name: patient_dob
        type: date
        required: true
      - name: prescriber_npi
        type: npi
        validation:
          - type: npi
      - name: consent_signed
        type: checkbox
        metadata:
          transform: upper
`

func TestParseTemplates(t *testing.T) {
	reg, err := ParseTemplates([]byte(templatesYAML))
	require.NoError(t, err)

	fields, err := reg.Fields(context.Background(), "aurora", "enrollment")
	require.NoError(t, err)
	require.Len(t, fields, 4)

	assert.Equal(t, "patient_name", fields[0].Name)
	assert.True(t, fields[0].Required)
	assert.Equal(t, "patient", fields[0].Section)
	assert.Equal(t, "aurora", fields[0].ManufacturerID)
	assert.Equal(t, "enrollment", fields[0].TemplateID)

	assert.Equal(t, FieldTypeDate, fields[1].Type)
	assert.Equal(t, FieldTypeNPI, fields[2].Type)
	assert.Equal(t, []Rule{{Type: "npi"}}, fields[2].ValidationRules)
	assert.Equal(t, FieldTypeBoolean, fields[3].Type)
	assert.Equal(t, "upper", fields[3].Meta("transform"))
	assert.Empty(t, fields[0].Meta("transform"))
}

func TestParseTemplates_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing ids", "templates:\n  - fields: [{name: a}]\n"},
		{"duplicate field", "templates:\n  - manufacturer: m\n    template: t\n    fields: [{name: a}, {name: a}]\n"},
		{"unnamed field", "templates:\n  - manufacturer: m\n    template: t\n    fields: [{type: text}]\n"},
		{"bad type", "templates:\n  - manufacturer: m\n    template: t\n    fields: [{name: a, type: hologram}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplates([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestStaticRegistry_NotFound(t *testing.T) {
	reg := NewStaticRegistry()

	_, err := reg.Fields(context.Background(), "nobody", "nothing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestStaticRegistry_ReturnsCopy(t *testing.T) {
	reg := NewStaticRegistry()
	reg.Add("m", "t", []TargetFieldSpec{{Name: "a"}})

	first, err := reg.Fields(context.Background(), "m", "t")
	require.NoError(t, err)

	first[0].Name = "mutated"

	second, err := reg.Fields(context.Background(), "m", "t")
	require.NoError(t, err)
	assert.Equal(t, "a", second[0].Name)
}

func TestParseFieldType(t *testing.T) {
	tests := map[string]FieldType{
		"":        FieldTypeText,
		"string":  FieldTypeText,
		"DATE":    FieldTypeDate,
		"tel":     FieldTypePhone,
		"zipcode": FieldTypeZip,
		"bool":    FieldTypeBoolean,
		"select":  FieldTypeSelect,
	}

	for in, want := range tests {
		got, err := ParseFieldType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFieldType("hologram")
	assert.Error(t, err)
	assert.Equal(t, "unknown", FieldType(99).String())
}

func TestStaticRegistry_All(t *testing.T) {
	reg := NewStaticRegistry()
	reg.Add("zeta", "t", []TargetFieldSpec{{Name: "z1"}})
	reg.Add("alpha", "t2", []TargetFieldSpec{{Name: "b"}, {Name: "a"}})
	reg.Add("alpha", "t1", []TargetFieldSpec{{Name: "c"}})

	var names []string
	for _, s := range reg.All() {
		names = append(names, s.ManufacturerID+"/"+s.Name)
	}

	assert.Equal(t, []string{"alpha/c", "alpha/b", "alpha/a", "zeta/z1"}, names)
}
