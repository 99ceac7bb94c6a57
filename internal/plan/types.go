package plan

import (
	"errors"
	"fmt"
	"slices"

	"field-mapper/internal/common"
	"field-mapper/internal/diagnostic"
	"field-mapper/internal/match"
	"field-mapper/internal/validate"
)

// Status is the classification of a target field within one run.
type Status int

const (
	// StatusPending - not yet resolved; never present in a returned Result.
	StatusPending Status = iota
	// StatusMatched - resolved by the field matcher.
	StatusMatched
	// StatusFallback - resolved by a fallback tier.
	StatusFallback
	// StatusUnmappable - no value could be resolved.
	StatusUnmappable
)

var statusNames = map[Status]string{
	StatusPending:    "PENDING",
	StatusMatched:    "MATCHED",
	StatusFallback:   "FALLBACK",
	StatusUnmappable: "UNMAPPABLE",
}

// String returns a human-readable status name.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return common.UnknownStr
}

// Terminal reports whether s is a final classification.
func (s Status) Terminal() bool {
	return s == StatusMatched || s == StatusFallback || s == StatusUnmappable
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	for st, name := range statusNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("unknown status %q", b)
}

// Request is one mapping run.
type Request struct {
	Manufacturer string
	Template     string
	// Source is the raw payload, nested or flat.
	Source map[string]any
	// Enhancement holds optional externally suggested values by target field.
	Enhancement match.Enhancement
	Mode        validate.Mode
}

// FieldResult is the outcome of one target field.
type FieldResult struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Status   Status `json:"status"`
	Strategy string `json:"strategy,omitempty"`
	// Confidence is in [0, 1]; zero for unmappable fields.
	Confidence float64 `json:"confidence"`
	SourceKey  string  `json:"source_key,omitempty"`
	// Inputs names the fields a fallback value was computed from.
	Inputs      []string `json:"inputs,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	// Error describes why a matched field was downgraded.
	Error    string `json:"error,omitempty"`
	Section  string `json:"section,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// Statistics summarizes a run.
type Statistics struct {
	TotalFields int   `json:"total_fields"`
	Matched     int   `json:"mapped"`
	Fallback    int   `json:"fallback"`
	Unmapped    int   `json:"unmapped"`
	Learned     int   `json:"learned"`
	Enhanced    int   `json:"enhanced"`
	DurationMS  int64 `json:"duration_ms"`
}

// Result is the complete outcome of a run. Fields keep template order.
type Result struct {
	RunID        string                      `json:"run_id"`
	Manufacturer string                      `json:"manufacturer"`
	Template     string                      `json:"template"`
	Mode         validate.Mode               `json:"mode"`
	Fields       []FieldResult               `json:"fields"`
	Validation   diagnostic.ValidationResult `json:"validation"`
	Statistics   Statistics                  `json:"statistics"`
	// Cached is true when the result was served from the cache.
	Cached bool `json:"-"`
}

// Field returns the result of one target field.
func (r *Result) Field(name string) (FieldResult, bool) {
	for _, f := range r.Fields {
		if f.Field == name {
			return f, true
		}
	}

	return FieldResult{}, false
}

// Clone returns a deep copy of r. Results shared between concurrent
// callers are cloned before they are handed out.
func (r *Result) Clone() *Result {
	out := *r
	out.Fields = slices.Clone(r.Fields)

	for i := range out.Fields {
		out.Fields[i].Inputs = slices.Clone(out.Fields[i].Inputs)
		out.Fields[i].Suggestions = slices.Clone(out.Fields[i].Suggestions)
	}

	out.Validation = r.Validation.Clone()

	return &out
}

// Values returns the resolved value of every field by name.
func (r *Result) Values() map[string]string {
	out := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Field] = f.Value
	}

	return out
}

// ConfigurationError reports a missing rule set or template. It aborts
// the run.
type ConfigurationError struct {
	Manufacturer string
	Template     string
	Err          error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s/%s: %v", e.Manufacturer, e.Template, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
