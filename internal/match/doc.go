// Package match resolves a single target field against a flattened source
// record.
//
// Key pieces:
//   - Normalize: folds an identifier into underscore-joined lowercase tokens
//   - Score: composite string similarity (edit distance, Jaro with prefix
//     bonus, token Jaccard)
//   - Dictionary: curated synonym groups and regex patterns per concept
//   - FieldMatcher: learned-mapping lookup, then exact, semantic, pattern and
//     fuzzy candidates ranked by confidence times strategy boost
package match
