package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidNPI(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1234567893", true},
		{"1234567890", false},
		{"1234567894", false},
		{"1245319599", true},
		{"1245319590", false},
		{"123-456-7893", true},
		{"123456789", false},
		{"12345678930", false},
		{"", false},
		{"abcdefghij", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidNPI(tt.input))
		})
	}
}

func TestValidNPI_AlteringCheckDigitFlipsResult(t *testing.T) {
	valid := "1234567893"

	for d := '0'; d <= '9'; d++ {
		candidate := valid[:9] + string(d)
		assert.Equal(t, d == '3', ValidNPI(candidate), candidate)
	}
}
