package rules

import (
	"regexp"
	"strconv"
	"strings"

	"field-mapper/internal/form"
)

var (
	dateRe  = regexp.MustCompile(`^(\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/](\d{2}|\d{4}))$`)
	phoneRe = regexp.MustCompile(`^\+?1?[\s.-]?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`)
	emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	ssnRe   = regexp.MustCompile(`^(\d{3}-\d{2}-\d{4}|\d{9})$`)
	npiRe   = regexp.MustCompile(`^\d{10}$`)
	zipRe   = regexp.MustCompile(`^\d{5}(-?\d{4})?$`)
)

// detectors are tried in this order by DetectType.
// Ten bare digits count as an NPI only when the checksum holds; otherwise
// they fall through to the phone detector.
var detectors = []struct {
	t     form.FieldType
	match func(string) bool
}{
	{form.FieldTypeEmail, emailRe.MatchString},
	{form.FieldTypeDate, dateRe.MatchString},
	{form.FieldTypeSSN, ssnRe.MatchString},
	{form.FieldTypeZip, zipRe.MatchString},
	{form.FieldTypeNPI, func(v string) bool { return npiRe.MatchString(v) && ValidNPI(v) }},
	{form.FieldTypePhone, phoneRe.MatchString},
}

// DetectType guesses the field type of a value. The first matching
// detector wins; ok is false when nothing matched.
func DetectType(value string) (form.FieldType, bool) {
	value = strings.TrimSpace(value)

	for _, d := range detectors {
		if d.match(value) {
			return d.t, true
		}
	}

	return form.FieldTypeText, false
}

var booleanWords = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "y": {}, "n": {}, "1": {}, "0": {},
	"on": {}, "off": {}, "checked": {}, "unchecked": {},
}

// Conforms reports whether a non-empty value is plausible for the declared
// field type. Text and select fields accept anything.
func Conforms(t form.FieldType, value string) bool {
	value = strings.TrimSpace(value)

	switch t {
	case form.FieldTypeDate:
		_, ok := ParseDate(value)
		return ok
	case form.FieldTypePhone:
		return phoneRe.MatchString(value)
	case form.FieldTypeEmail:
		return emailRe.MatchString(value)
	case form.FieldTypeSSN:
		return ssnRe.MatchString(value)
	case form.FieldTypeNPI:
		return ValidNPI(value)
	case form.FieldTypeZip:
		return zipRe.MatchString(value)
	case form.FieldTypeNumber:
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case form.FieldTypeBoolean:
		_, ok := booleanWords[strings.ToLower(value)]
		return ok
	default:
		return true
	}
}
