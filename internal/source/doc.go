// Package source builds the flattened, dotted-path view of the loosely
// structured input data handed to a mapping run.
//
// Nested objects are joined with ".". List-valued branches collapse to their
// first element; the remaining elements are discarded. This is lossy: every key in a Record names exactly one scalar, which is what the
// field matcher compares against target names.
package source
