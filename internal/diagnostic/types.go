package diagnostic

import (
	"maps"
	"slices"

	"field-mapper/internal/common"
)

// Diagnostic codes.
const (
	CodeMissingRequired = "missing_required"
	CodeUnmappable      = "unmappable"
	CodeRuleViolation   = "rule_violation"
	CodeTypeMismatch    = "type_mismatch"
	CodeLowConfidence   = "low_confidence"
	CodeSubmission      = "submission_rule"
	CodeInvalidRule     = "invalid_rule"
)

// Diagnostics collects the findings of one validation pass.
type Diagnostics struct {
	Errors   []Diagnostic
	Warnings []Diagnostic
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity DiagnosticSeverity
	// Code is a unique identifier for this type of diagnostic.
	Code string
	// Message is the human-readable description.
	Message string
	// Field is the target field this relates to (if any).
	Field string
}

// DiagnosticSeverity represents the severity level of a diagnostic.
type DiagnosticSeverity int

const (
	DiagnosticWarning DiagnosticSeverity = iota + 1
	DiagnosticError
)

// String returns a human-readable severity name.
func (s DiagnosticSeverity) String() string {
	switch s {
	case DiagnosticWarning:
		return "warning"
	case DiagnosticError:
		return "error"
	default:
		return common.UnknownStr
	}
}

// AddError adds an error diagnostic.
func (d *Diagnostics) AddError(code, message, field string) {
	d.Errors = append(d.Errors, Diagnostic{
		Severity: DiagnosticError,
		Code:     code,
		Message:  message,
		Field:    field,
	})
}

// AddWarning adds a warning diagnostic.
func (d *Diagnostics) AddWarning(code, message, field string) {
	d.Warnings = append(d.Warnings, Diagnostic{
		Severity: DiagnosticWarning,
		Code:     code,
		Message:  message,
		Field:    field,
	})
}

// IsValid returns true if there are no errors.
func (d *Diagnostics) IsValid() bool {
	return len(d.Errors) == 0
}

// Summary holds aggregate validation counts.
type Summary struct {
	TotalFields     int `json:"total_fields"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	MissingRequired int `json:"missing_required"`
}

// ValidationResult is the outcome of validating one mapping run.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   map[string][]string `json:"errors"`
	Warnings map[string][]string `json:"warnings"`
	Summary  Summary             `json:"summary"`
}

// Result summarizes the diagnostics of totalFields fields. Diagnostics
// without a field are filed under submissionKey.
func (d *Diagnostics) Result(totalFields int, submissionKey string) ValidationResult {
	res := ValidationResult{
		Valid:    d.IsValid(),
		Errors:   make(map[string][]string),
		Warnings: make(map[string][]string),
		Summary: Summary{
			TotalFields: totalFields,
			Errors:      len(d.Errors),
			Warnings:    len(d.Warnings),
		},
	}

	key := func(diag Diagnostic) string {
		if diag.Field == "" {
			return submissionKey
		}

		return diag.Field
	}

	for _, e := range d.Errors {
		res.Errors[key(e)] = append(res.Errors[key(e)], e.Message)
		if e.Code == CodeMissingRequired {
			res.Summary.MissingRequired++
		}
	}

	for _, w := range d.Warnings {
		res.Warnings[key(w)] = append(res.Warnings[key(w)], w.Message)
		if w.Code == CodeMissingRequired {
			res.Summary.MissingRequired++
		}
	}

	return res
}

// FieldErrors returns the error messages of one field.
func (r ValidationResult) FieldErrors(field string) []string {
	return r.Errors[field]
}

// FieldWarnings returns the warning messages of one field.
func (r ValidationResult) FieldWarnings(field string) []string {
	return r.Warnings[field]
}

// Clone returns a copy that shares no maps or slices with r.
func (r ValidationResult) Clone() ValidationResult {
	out := r
	out.Errors = cloneMessages(r.Errors)
	out.Warnings = cloneMessages(r.Warnings)

	return out
}

func cloneMessages(m map[string][]string) map[string][]string {
	if m == nil {
		return nil
	}

	out := maps.Clone(m)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}

	return out
}
