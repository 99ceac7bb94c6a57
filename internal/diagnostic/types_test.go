package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnostics_Result(t *testing.T) {
	var d Diagnostics

	d.AddError(CodeMissingRequired, "is required", "patient_dob")
	d.AddError(CodeRuleViolation, "is not a valid NPI", "prescriber_npi")
	d.AddError(CodeRuleViolation, "must be at least 10 characters", "prescriber_npi")
	d.AddWarning(CodeMissingRequired, "is required (lenient)", "member_id")
	d.AddWarning(CodeLowConfidence, "confidence 0.40 is below 0.50", "insurer")
	d.AddError(CodeSubmission, "at least one diagnosis code is required", "")

	res := d.Result(6, "_submission")

	assert.False(t, res.Valid)
	assert.Equal(t, Summary{TotalFields: 6, Errors: 4, Warnings: 2, MissingRequired: 2}, res.Summary)
	assert.Len(t, res.FieldErrors("prescriber_npi"), 2)
	assert.Equal(t, []string{"at least one diagnosis code is required"}, res.Errors["_submission"])
	assert.Equal(t, []string{"confidence 0.40 is below 0.50"}, res.FieldWarnings("insurer"))
	assert.Empty(t, res.FieldErrors("insurer"))
}

func TestDiagnostics_ValidResult(t *testing.T) {
	var d Diagnostics

	d.AddWarning(CodeUnmappable, "could not be mapped", "fax")

	res := d.Result(3, "_submission")
	assert.True(t, res.Valid)
	assert.NotNil(t, res.Errors)
	assert.Equal(t, 1, res.Summary.Warnings)
}

func TestValidationResult_Clone(t *testing.T) {
	var d Diagnostics

	d.AddError(CodeRuleViolation, "bad", "x")
	d.AddWarning(CodeLowConfidence, "low", "y")

	orig := d.Result(2, "_submission")
	cp := orig.Clone()

	cp.Errors["x"][0] = "changed"
	cp.Warnings["z"] = []string{"added"}

	require.Equal(t, []string{"bad"}, orig.FieldErrors("x"))
	assert.NotContains(t, orig.Warnings, "z")
	assert.Equal(t, orig.Summary, cp.Summary)
}

func TestDiagnosticSeverity_String(t *testing.T) {
	assert.Equal(t, "warning", DiagnosticWarning.String())
	assert.Equal(t, "error", DiagnosticError.String())
	assert.Equal(t, "unknown", DiagnosticSeverity(0).String())
}
