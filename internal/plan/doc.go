// Package plan drives a mapping run end to end.
//
// Resolution pipeline:
//  1. Look up the manufacturer rule set and template field specs
//     (missing either is a ConfigurationError)
//  2. Serve the run from the result cache when an identical request was
//     resolved within the TTL
//  3. Flatten the source payload into a dotted-path record
//  4. Match every target field in parallel, then apply the manufacturer
//     transform to the matched value
//  5. Run one fallback pass over the fields left unresolved
//  6. Validate, append one audit entry per field, cache the result
//
// Only ConfigurationError and context cancellation abort a run; every
// other failure degrades the affected field to UNMAPPABLE.
package plan
