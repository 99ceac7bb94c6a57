// Package diagnostic collects field-level validation errors and warnings
// and summarizes them into a ValidationResult.
//
// Key capabilities:
//   - Missing required field errors
//   - Unmappable optional field warnings
//   - Rule violations and low-confidence warnings
//   - Submission-level findings not tied to one field
package diagnostic
