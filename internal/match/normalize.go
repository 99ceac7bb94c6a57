package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds an identifier for matching.
// The normalization pipeline:
// 1. Strip diacritics.
// 2. Tokenize CamelCase and split on every non-alphanumeric rune.
// 3. Case-fold to lower.
// 4. Join tokens with "_".
//
// Examples: "patientFirstName" -> "patient_first_name",
// "Patient First-Name" -> "patient_first_name", "DOB" -> "dob".
func Normalize(s string) string {
	return strings.Join(Tokenize(s), "_")
}

// Tokenize splits an identifier into normalized lowercase tokens.
func Tokenize(s string) []string {
	tokens := tokenizeCamelCase(foldDiacritics(s))
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}

	return tokens
}

// foldDiacritics removes combining marks: "José" -> "Jose".
// The transformer chain is stateful, so one is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}

	return out
}

// tokenizeCamelCase splits a CamelCase or camelCase string into tokens.
// Examples:
//   - "memberID" -> ["member", "ID"]
//   - "patientFirstName" -> ["patient", "First", "Name"]
//   - "NPINumber" -> ["NPI", "Number"]
//   - "address_line-1" -> ["address", "line", "1"]
func tokenizeCamelCase(s string) []string {
	if s == "" {
		return nil
	}

	var tokens []string

	var current strings.Builder

	runes := []rune(s)
	for i := range runes {
		r := runes[i]

		if isSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}

			continue
		}

		if i > 0 && shouldStartNewToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// isSeparator reports whether r splits tokens. Anything that is not a
// letter or digit does.
func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// shouldStartNewToken determines if a new token should start at position i.
func shouldStartNewToken(runes []rune, i int) bool {
	r := runes[i]
	prevRune := runes[i-1]
	isUpper := unicode.IsUpper(r)
	isPrevUpper := unicode.IsUpper(prevRune)
	isPrevSep := isSeparator(prevRune)

	// "memberId" -> split before 'I'
	if isUpper && !isPrevUpper && !isPrevSep {
		return true
	}

	// "NPINumber" -> "NPI" + "Number", split before 'N'
	hasNextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
	if isUpper && isPrevUpper && hasNextLower {
		return true
	}

	return false
}

// tokenSet returns the distinct "_"-separated tokens of a normalized name.
func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})

	for tok := range strings.SplitSeq(normalized, "_") {
		if tok != "" {
			set[tok] = struct{}{}
		}
	}

	return set
}
