package rules

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"field-mapper/internal/common"
	"field-mapper/internal/form"
)

// ErrUnknownTransform is returned when a field names a transform that is
// not registered.
var ErrUnknownTransform = errors.New("unknown transform")

// Formats carries the manufacturer format templates a transform may use.
type Formats struct {
	// Date is a canonical date format built from YYYY, YY, MM, M, DD and D.
	Date string
	// Phone is a punctuation pattern where each X is replaced by a digit.
	Phone string
}

// Transform is a pure value rewrite. Input it cannot interpret is returned
// unchanged.
type Transform func(value string, f Formats) (string, error)

// Registry maps transform names to functions.
type Registry struct {
	transforms map[string]Transform
}

// NoTransform names the identity transform. A text field that sets it
// keeps its value as matched and skips type detection.
const NoTransform = "none"

// NewRegistry returns a registry holding the built-in transforms.
func NewRegistry() *Registry {
	r := &Registry{transforms: make(map[string]Transform)}

	builtins := []struct {
		name string
		fn   Transform
	}{
		{"date", formatDate},
		{"phone", formatPhone},
		{"ssn", formatSSN},
		{"zip", formatZip},
		{"upper", func(v string, _ Formats) (string, error) { return strings.ToUpper(v), nil }},
		{"lower", func(v string, _ Formats) (string, error) { return strings.ToLower(v), nil }},
		{"title", func(v string, _ Formats) (string, error) {
			// Casers are stateful and cannot be shared across goroutines.
			return cases.Title(language.English).String(strings.ToLower(v)), nil
		}},
		{"trim", func(v string, _ Formats) (string, error) { return strings.TrimSpace(v), nil }},
		{NoTransform, func(v string, _ Formats) (string, error) { return v, nil }},
	}

	for _, b := range builtins {
		if err := r.Register(b.name, b.fn); err != nil {
			panic(err)
		}
	}

	return r
}

// Register adds a transform. Names are unique.
func (r *Registry) Register(name string, fn Transform) error {
	if _, ok := r.transforms[name]; ok {
		return fmt.Errorf("transform %q already registered", name)
	}

	r.transforms[name] = fn

	return nil
}

// Get returns the named transform.
func (r *Registry) Get(name string) (Transform, bool) {
	fn, ok := r.transforms[name]
	return fn, ok
}

// Names returns the registered transform names in sorted order.
func (r *Registry) Names() []string {
	return common.SortedKeys(r.transforms)
}

// typeTransforms selects a transform from the declared field type.
var typeTransforms = map[form.FieldType]string{
	form.FieldTypeDate:  "date",
	form.FieldTypePhone: "phone",
	form.FieldTypeSSN:   "ssn",
	form.FieldTypeZip:   "zip",
}

// TransformName returns the transform that applies to a field: the
// "transform" metadata entry when set, otherwise the one implied by the
// field type, otherwise "".
func TransformName(spec form.TargetFieldSpec) string {
	if name := spec.Meta("transform"); name != "" {
		return name
	}

	return typeTransforms[spec.Type]
}

// DetectTransform returns the transform implied by the detected type of
// value, or "" when the value matches no detector with a transform.
func DetectTransform(value string) string {
	t, ok := DetectType(value)
	if !ok {
		return ""
	}

	return typeTransforms[t]
}

// Apply runs the transforms that apply to spec over value. A metadata
// entry may chain several names separated by commas. A text field with no
// transform of its own gets the one picked by detecting the value's type.
func (r *Registry) Apply(spec form.TargetFieldSpec, value string, f Formats) (string, error) {
	name := TransformName(spec)
	if name == "" && spec.Type == form.FieldTypeText {
		name = DetectTransform(value)
	}

	if name == "" {
		return value, nil
	}

	for _, n := range strings.Split(name, ",") {
		n = strings.TrimSpace(n)

		fn, ok := r.Get(n)
		if !ok {
			return value, fmt.Errorf("%w %q on field %q", ErrUnknownTransform, n, spec.Name)
		}

		out, err := fn(value, f)
		if err != nil {
			return value, fmt.Errorf("transform %q on field %q: %w", n, spec.Name, err)
		}

		value = out
	}

	return value, nil
}

func formatDate(value string, f Formats) (string, error) {
	if f.Date == "" {
		return value, nil
	}

	t, ok := ParseDate(value)
	if !ok {
		return value, nil
	}

	return FormatDate(t, f.Date), nil
}

// fillDigits writes digits into the X slots of pattern.
func fillDigits(pattern, digits string) string {
	var (
		b strings.Builder
		i int
	)

	for _, r := range pattern {
		if r == 'X' && i < len(digits) {
			b.WriteByte(digits[i])
			i++

			continue
		}

		b.WriteRune(r)
	}

	return b.String()
}

func formatPhone(value string, f Formats) (string, error) {
	digits := onlyDigits(value)
	if len(digits) != 10 || f.Phone == "" {
		return value, nil
	}

	if strings.Count(f.Phone, "X") != 10 {
		return value, fmt.Errorf("phone format %q must contain 10 X placeholders", f.Phone)
	}

	return fillDigits(f.Phone, digits), nil
}

func formatSSN(value string, _ Formats) (string, error) {
	digits := onlyDigits(value)
	if len(digits) != 9 {
		return value, nil
	}

	return fillDigits("XXX-XX-XXXX", digits), nil
}

func formatZip(value string, _ Formats) (string, error) {
	digits := onlyDigits(value)
	if len(digits) != 9 {
		return value, nil
	}

	return fillDigits("XXXXX-XXXX", digits), nil
}

// HasTransform reports whether every name in a comma-separated list is
// registered.
func (r *Registry) HasTransform(names string) bool {
	return !slices.ContainsFunc(strings.Split(names, ","), func(n string) bool {
		_, ok := r.Get(strings.TrimSpace(n))
		return !ok
	})
}
