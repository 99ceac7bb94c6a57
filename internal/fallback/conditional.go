package fallback

import (
	"strings"
)

var usStates = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {}, "DE": {}, "FL": {}, "GA": {},
	"HI": {}, "ID": {}, "IL": {}, "IN": {}, "IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {},
	"MA": {}, "MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {}, "NH": {}, "NJ": {},
	"NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {}, "OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {},
	"SD": {}, "TN": {}, "TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {}, "WY": {},
	"DC": {}, "PR": {}, "VI": {}, "GU": {}, "AS": {}, "MP": {},
}

// IsUSState reports whether s is a US state or territory abbreviation.
func IsUSState(s string) bool {
	_, ok := usStates[strings.ToUpper(strings.TrimSpace(s))]
	return ok
}

// conditional infers a value for a target concept from sibling values.
func conditional(sib *siblings, concept, target string) (string, []string, bool) {
	switch concept {
	case "country":
		state, ok := sib.find("state", target)
		if ok && IsUSState(state.value) {
			return "USA", []string{state.name}, true
		}
	case "phone_country_code":
		phone, ok := sib.find("phone", target)
		if ok && !strings.HasPrefix(strings.TrimSpace(phone.value), "+") {
			return "+1", []string{phone.name}, true
		}
	case "relationship":
		return selfRelationship(sib, target)
	}

	return "", nil, false
}

// selfRelationship answers "Self" when the patient is the subscriber.
func selfRelationship(sib *siblings, target string) (string, []string, bool) {
	subscriber, ok := sib.find("subscriber_name", target)
	if !ok {
		return "", nil, false
	}

	patient, inputs := "", []string(nil)

	if p, ok := sib.find("full_name", "patient_name"); ok {
		patient, inputs = p.value, []string{p.name}
	} else if v, in, ok := fullName(sib, "patient_name"); ok {
		patient, inputs = v, in
	}

	if patient == "" || !strings.EqualFold(collapse(patient), collapse(subscriber.value)) {
		return "", nil, false
	}

	return "Self", append(inputs, subscriber.name), true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
