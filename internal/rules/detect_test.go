package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"field-mapper/internal/form"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		value    string
		expected form.FieldType
		ok       bool
	}{
		{"jane@example.com", form.FieldTypeEmail, true},
		{"1990-05-02", form.FieldTypeDate, true},
		{"05/02/1990", form.FieldTypeDate, true},
		{"123-45-6789", form.FieldTypeSSN, true},
		{"12345", form.FieldTypeZip, true},
		{"12345-6789", form.FieldTypeZip, true},
		{"1234567893", form.FieldTypeNPI, true},
		{"5551234567", form.FieldTypePhone, true},
		{"(555) 123-4567", form.FieldTypePhone, true},
		{"Jane Roe", form.FieldTypeText, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := DetectType(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestConforms(t *testing.T) {
	assert.True(t, Conforms(form.FieldTypeDate, "May 2, 1990"))
	assert.False(t, Conforms(form.FieldTypeDate, "someday"))
	assert.True(t, Conforms(form.FieldTypePhone, "555-123-4567"))
	assert.False(t, Conforms(form.FieldTypePhone, "555-1234"))
	assert.True(t, Conforms(form.FieldTypeNPI, "1234567893"))
	assert.False(t, Conforms(form.FieldTypeNPI, "1234567890"))
	assert.True(t, Conforms(form.FieldTypeNumber, "3.5"))
	assert.False(t, Conforms(form.FieldTypeNumber, "three"))
	assert.True(t, Conforms(form.FieldTypeBoolean, "Yes"))
	assert.False(t, Conforms(form.FieldTypeBoolean, "maybe"))
	assert.True(t, Conforms(form.FieldTypeText, "anything"))
}
