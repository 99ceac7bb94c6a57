package rules

import (
	"strings"
	"time"
)

// inputLayouts are tried in order by ParseDate. Slash and dash dates
// without a four-digit leading year are read month first.
var inputLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01/02/06",
	"1/2/06",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
}

// ParseDate parses a date in any of the common input layouts.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// dateTokens maps canonical format tokens to Go layout elements,
// longest token first.
var dateTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
}

// Layout converts a canonical date format such as "MM/DD/YYYY" into a Go
// time layout. Characters other than the tokens are copied literally.
func Layout(format string) string {
	var b strings.Builder

	for i := 0; i < len(format); {
		matched := false

		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true

				break
			}
		}

		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}

	return b.String()
}

// FormatDate renders t using a canonical date format.
func FormatDate(t time.Time, format string) string {
	return t.Format(Layout(format))
}

// MatchesDateFormat reports whether value is written exactly in format.
func MatchesDateFormat(value, format string) bool {
	layout := Layout(format)

	t, err := time.Parse(layout, value)
	if err != nil {
		return false
	}

	return t.Format(layout) == value
}
