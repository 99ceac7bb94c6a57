package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		format   string
		expected string
	}{
		{"MM/DD/YYYY", "01/02/2006"},
		{"YYYY-MM-DD", "2006-01-02"},
		{"M/D/YY", "1/2/06"},
		{"DD.MM.YYYY", "02.01.2006"},
		{"YYYYMMDD", "20060102"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assert.Equal(t, tt.expected, Layout(tt.format))
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(1990, 5, 2, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{
		"1990-05-02", "05/02/1990", "5/2/1990", "1990/05/02", "19900502",
		"May 2, 1990", "02 May 1990", " 1990-05-02 ",
	} {
		t.Run(in, func(t *testing.T) {
			got, ok := ParseDate(in)
			require.True(t, ok)
			assert.True(t, want.Equal(got), got)
		})
	}

	for _, in := range []string{"", "yesterday", "13/45/1990", "1990-02-30"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, in)
	}
}

func TestMatchesDateFormat(t *testing.T) {
	assert.True(t, MatchesDateFormat("05/02/1990", "MM/DD/YYYY"))
	assert.False(t, MatchesDateFormat("5/2/1990", "MM/DD/YYYY"))
	assert.False(t, MatchesDateFormat("1990-05-02", "MM/DD/YYYY"))
	assert.True(t, MatchesDateFormat("1990-05-02", "YYYY-MM-DD"))
}
