package match

import (
	"fmt"
	"regexp"
	"sync"
)

// synonymGroups lists the curated names of each canonical concept.
// Every name belongs to at most one concept.
var synonymGroups = map[string][]string{
	"first_name": {
		"first_name", "firstname", "fname", "given_name", "first",
		"patient_first_name", "pt_first_name", "patient_fname", "patient_given_name",
	},
	"last_name": {
		"last_name", "lastname", "lname", "surname", "family_name", "last",
		"patient_last_name", "pt_last_name", "patient_lname", "patient_surname", "patient_family_name",
	},
	"middle_name": {
		"middle_name", "middlename", "mname", "middle_initial", "mi", "patient_middle_name",
	},
	"full_name": {
		"full_name", "fullname", "name", "patient_name", "patient_full_name", "pt_name",
	},
	"date_of_birth": {
		"date_of_birth", "dob", "birth_date", "birthdate", "birthday", "d_o_b",
		"patient_dob", "patient_date_of_birth", "patient_birth_date", "pt_dob",
	},
	"age": {"age", "patient_age"},
	"gender": {
		"gender", "sex", "patient_gender", "patient_sex",
	},
	"phone": {
		"phone", "phone_number", "telephone", "tel", "mobile", "cell_phone", "home_phone",
		"contact_phone", "patient_phone", "patient_phone_number", "phone_no",
	},
	"phone_country_code": {"phone_country_code", "country_code", "dial_code"},
	"email": {
		"email", "email_address", "e_mail", "patient_email", "patient_email_address",
	},
	"ssn": {
		"ssn", "social_security_number", "social_security", "patient_ssn", "ss_number",
	},
	"street": {
		"street", "street_address", "address", "address1", "address_line1", "address_line_1",
		"patient_address", "patient_street", "patient_address_line1",
	},
	"city": {"city", "town", "patient_city"},
	"state": {"state", "state_code", "province", "patient_state"},
	"zip": {
		"zip", "zip_code", "zipcode", "postal_code", "postcode", "patient_zip", "patient_zip_code",
	},
	"country": {"country", "country_name", "patient_country"},
	"full_address": {
		"full_address", "mailing_address", "complete_address", "patient_full_address",
	},
	"insurance_name": {
		"insurer", "insurance", "insurance_name", "insurance_company", "insurance_carrier",
		"payer", "payer_name", "payor", "carrier", "health_plan", "primary_insurance",
	},
	"member_id": {
		"member_id", "memberid", "insurance_member_id", "insurance_id", "policy_number",
		"policy_id", "subscriber_id", "member_number",
	},
	"group_number": {
		"group_number", "group_id", "group_no", "insurance_group", "insurance_group_number",
	},
	"subscriber_name": {
		"subscriber_name", "policy_holder", "policyholder_name", "insured_name", "cardholder_name",
	},
	"relationship": {
		"relationship", "relationship_to_patient", "patient_relationship", "relationship_to_subscriber",
	},
	"npi": {
		"npi", "npi_number", "provider_npi", "prescriber_npi", "physician_npi",
	},
	"provider_name": {
		"provider_name", "prescriber_name", "physician_name", "doctor_name", "prescriber", "physician",
	},
	"facility_name": {
		"facility_name", "facility", "clinic_name", "practice_name", "site_name",
	},
	"diagnosis_code": {
		"diagnosis_code", "diagnosis_codes", "icd10", "icd_10", "icd10_code", "icd_code",
		"dx_code", "dx", "primary_diagnosis", "diagnosis",
	},
}

// PatternRule maps a regular expression over normalized source keys to a
// canonical concept.
type PatternRule struct {
	Concept string
	Pattern *regexp.Regexp
}

var patternTable = []struct {
	concept string
	expr    string
}{
	{"first_name", `^(pt|pat|patient|member|mbr)?_?(f|first|given)_?(nm|name)$`},
	{"last_name", `^(pt|pat|patient|member|mbr)?_?(l|last|sur|family)_?(nm|name)$`},
	{"date_of_birth", `(^|_)(dob|birth_?(date|dt|day)|date_?of_?birth|bday)$`},
	{"phone", `(^|_)(ph|phone|tel|telephone|mobile|cell)(_?(no|num|number|nbr))?$`},
	{"email", `(^|_)e_?mail(_?addr(ess)?)?$`},
	{"zip", `(^|_)(zip|postal)(_?code)?$`},
	{"npi", `(^|_)npi(_?(no|num|number))?$`},
	{"ssn", `(^|_)(ssn|soc_?sec(_?(no|num|number))?)$`},
	{"member_id", `(^|_)(mbr|member|subscriber|policy)_?(id|no|num|number)$`},
	{"group_number", `(^|_)(grp|group)_?(no|num|number|id)$`},
	{"insurance_name", `(^|_)(ins|insurance|payer|payor|carrier)_?(name|nm|co|company)$`},
	{"diagnosis_code", `(^|_)(dx|icd_?10|icd|diag)_?(code|cd|codes)$`},
}

// Dictionary holds the curated synonym groups and pattern table.
// It is immutable after construction.
type Dictionary struct {
	groups   map[string][]string
	index    map[string]string
	patterns []PatternRule
}

// DefaultDictionary returns the shared curated dictionary.
var DefaultDictionary = sync.OnceValue(func() *Dictionary {
	d, err := NewDictionary(synonymGroups)
	if err != nil {
		panic(err)
	}

	return d
})

// NewDictionary builds a dictionary from synonym groups. Names are
// normalized; a name listed under two concepts is an error.
func NewDictionary(groups map[string][]string) (*Dictionary, error) {
	d := &Dictionary{
		groups: make(map[string][]string, len(groups)),
		index:  make(map[string]string),
	}

	for concept, names := range groups {
		normalized := make([]string, 0, len(names)+1)

		for _, n := range append([]string{concept}, names...) {
			nn := Normalize(n)
			if owner, ok := d.index[nn]; ok {
				if owner == concept {
					continue
				}

				return nil, fmt.Errorf("name %q listed under %q and %q", nn, owner, concept)
			}

			d.index[nn] = concept
			normalized = append(normalized, nn)
		}

		d.groups[concept] = normalized
	}

	for _, p := range patternTable {
		d.patterns = append(d.patterns, PatternRule{
			Concept: p.concept,
			Pattern: regexp.MustCompile(p.expr),
		})
	}

	return d, nil
}

// Concept returns the canonical concept a normalized name belongs to, or "".
func (d *Dictionary) Concept(normalized string) string {
	return d.index[normalized]
}

// Members returns the normalized names of a concept.
func (d *Dictionary) Members(concept string) []string {
	return d.groups[concept]
}

// Patterns returns the pattern rules of a concept.
func (d *Dictionary) Patterns(concept string) []PatternRule {
	var out []PatternRule

	for _, p := range d.patterns {
		if p.Concept == concept {
			out = append(out, p)
		}
	}

	return out
}

// ConceptOfKey returns the concept of a source key, trying the full
// normalized path before its leaf.
func (d *Dictionary) ConceptOfKey(key SourceKey) string {
	if c := d.Concept(key.Full); c != "" {
		return c
	}

	return d.Concept(key.Leaf)
}
