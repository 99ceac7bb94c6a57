package fallback

import (
	"strings"

	"field-mapper/internal/match"
)

// category groups name keywords with the upstream sources that usually
// carry such data.
type category struct {
	keywords []string
	sources  []string
}

// categories are checked in order; a keyword matches a name token it
// prefixes.
var categories = []category{
	{
		keywords: []string{"patient", "member", "first", "last", "name", "gender", "sex", "address", "email", "ssn", "phone", "city", "zip"},
		sources: []string{
			"patient demographics from the intake form or EHR patient record",
			"member profile from the eligibility check",
		},
	},
	{
		keywords: []string{"insur", "payer", "payor", "plan", "policy", "group", "carrier", "subscriber", "coverage", "copay"},
		sources: []string{
			"insurance card (payer name, member ID, group number)",
			"payer eligibility or benefits verification response",
		},
	},
	{
		keywords: []string{"provider", "prescriber", "physician", "doctor", "npi", "dea", "practice"},
		sources: []string{
			"prescriber profile or NPI registry lookup",
			"prescription or referral document",
		},
	},
	{
		keywords: []string{"diagnosis", "dx", "icd", "condition", "indication"},
		sources: []string{
			"clinical notes or problem list",
			"letter of medical necessity",
		},
	},
	{
		keywords: []string{"date", "dt", "dob", "birth", "signed"},
		sources: []string{
			"document signature or service date",
		},
	},
	{
		keywords: []string{"facility", "clinic", "site", "hospital", "location", "pharmacy"},
		sources: []string{
			"facility or site directory",
		},
	},
}

// manualEntry is suggested when no category matches.
const manualEntry = "manual entry by the enrollment coordinator"

// Suggestions returns likely upstream sources for a field name.
func Suggestions(field string) []string {
	tokens := match.Tokenize(field)

	var out []string

	for _, c := range categories {
		if matchesAny(tokens, c.keywords) {
			out = append(out, c.sources...)
		}
	}

	if len(out) == 0 {
		return []string{manualEntry}
	}

	return out
}

func matchesAny(tokens, keywords []string) bool {
	for _, t := range tokens {
		for _, k := range keywords {
			if strings.HasPrefix(t, k) {
				return true
			}
		}
	}

	return false
}
