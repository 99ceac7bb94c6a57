// Package rules holds the per-manufacturer rule sets: field-name
// variations, date and phone format templates, static defaults, field
// validation rules and submission-level rules.
//
// A Catalog is loaded once from YAML and is immutable afterwards. It is
// passed explicitly to the components that need it; nothing in this
// package keeps mutable global state.
//
// The package also provides the pure helpers those rules are built from:
//   - the transform registry (date, phone, ssn, zip, case and trim)
//   - regular-expression field type detectors
//   - the NPI checksum
package rules
