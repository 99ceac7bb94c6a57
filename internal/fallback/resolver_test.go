package fallback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-mapper/internal/form"
	"field-mapper/internal/rules"
	"field-mapper/internal/source"
)

var fixedNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestResolver() *Resolver {
	r := NewResolver(nil)
	r.now = func() time.Time { return fixedNow }

	return r
}

func specs(names ...string) []form.TargetFieldSpec {
	out := make([]form.TargetFieldSpec, 0, len(names))
	for _, n := range names {
		out = append(out, form.TargetFieldSpec{Name: n})
	}

	return out
}

func resolveOne(t *testing.T, in Input, spec form.TargetFieldSpec) Result {
	t.Helper()

	res := newTestResolver().Resolve(in, []form.TargetFieldSpec{spec})
	require.Len(t, res, 1)

	return res[0]
}

func TestResolve_Derived(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		resolved map[string]string
		record   map[string]string
		value    string
	}{
		{
			name:   "full name from source keys",
			target: "full_name",
			record: map[string]string{"first_name": "John", "last_name": "Doe"},
			value:  "John Doe",
		},
		{
			name:   "patient name from patient keys",
			target: "patient_name",
			record: map[string]string{
				"patient_first_name":    "Jane",
				"patient_last_name":     "Roe",
				"subscriber.first_name": "Sam",
			},
			value: "Jane Roe",
		},
		{
			name:     "resolved values are preferred",
			target:   "patient_name",
			resolved: map[string]string{"patient_first_name": "JANE", "patient_last_name": "ROE"},
			record:   map[string]string{"first_name": "jane", "last_name": "roe"},
			value:    "JANE ROE",
		},
		{
			name:   "full address with zip",
			target: "mailing_address",
			record: map[string]string{
				"address.street": "1 Main St",
				"address.city":   "Springfield",
				"address.state":  "IL",
				"address.zip":    "62701",
			},
			value: "1 Main St, Springfield, IL 62701",
		},
		{
			name:   "full address without zip",
			target: "full_address",
			record: map[string]string{"street": "1 Main St", "city": "Springfield", "state": "IL"},
			value:  "1 Main St, Springfield, IL",
		},
		{
			name:   "age by calendar year",
			target: "patient_age",
			record: map[string]string{"dob": "12/31/1990"},
			value:  "35",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolveOne(t, Input{Resolved: tt.resolved, Record: source.NewRecord(tt.record)}, form.TargetFieldSpec{Name: tt.target})

			assert.Equal(t, TierDerived, res.Tier)
			assert.Equal(t, tt.value, res.Value)
			assert.InDelta(t, DerivedConfidence, res.Confidence, 1e-9)
			assert.NotEmpty(t, res.Inputs)
		})
	}
}

func TestResolve_DerivedNeedsAllParts(t *testing.T) {
	in := Input{Record: source.NewRecord(map[string]string{"first_name": "John"})}

	res := resolveOne(t, in, form.TargetFieldSpec{Name: "full_name"})
	assert.Equal(t, TierUnmappable, res.Tier)

	in = Input{Record: source.NewRecord(map[string]string{"dob": "not a date"})}
	res = resolveOne(t, in, form.TargetFieldSpec{Name: "age"})
	assert.Equal(t, TierUnmappable, res.Tier)
}

func TestResolve_ManufacturerDefault(t *testing.T) {
	catalog, err := rules.Default()
	require.NoError(t, err)

	rs, err := catalog.Get("aurora")
	require.NoError(t, err)

	res := resolveOne(t, Input{Rules: rs}, form.TargetFieldSpec{Name: "assistance_program_name"})
	assert.Equal(t, TierManufacturerDefault, res.Tier)
	assert.Equal(t, "Aurora Cares", res.Value)
	assert.InDelta(t, DefaultConfidence, res.Confidence, 1e-9)
}

func TestResolve_Conditional(t *testing.T) {
	tests := []struct {
		name   string
		target string
		record map[string]string
		value  string
		ok     bool
	}{
		{"country from US state", "patient_country", map[string]string{"address.state": "ny"}, "USA", true},
		{"country from foreign region", "patient_country", map[string]string{"address.state": "Ontario"}, "", false},
		{"country code from local phone", "phone_country_code", map[string]string{"phone": "555-123-4567"}, "+1", true},
		{"country code skipped for international", "phone_country_code", map[string]string{"phone": "+44 20 7946 0958"}, "", false},
		{
			"self relationship",
			"relationship_to_patient",
			map[string]string{"patient_first_name": "Jane", "patient_last_name": "Roe", "insurance.subscriber_name": "JANE  roe"},
			"Self", true,
		},
		{
			"other relationship",
			"relationship_to_patient",
			map[string]string{"patient_name": "Jane Roe", "subscriber_name": "John Roe"},
			"", false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := resolveOne(t, Input{Record: source.NewRecord(tt.record)}, form.TargetFieldSpec{Name: tt.target})

			if !tt.ok {
				assert.Equal(t, TierUnmappable, res.Tier)
				return
			}

			assert.Equal(t, TierConditional, res.Tier)
			assert.Equal(t, tt.value, res.Value)
			assert.InDelta(t, ConditionalConfidence, res.Confidence, 1e-9)
		})
	}
}

func TestResolve_UnmappableDefaults(t *testing.T) {
	tests := []struct {
		spec  form.TargetFieldSpec
		value string
	}{
		{form.TargetFieldSpec{Name: "is_veteran"}, "No"},
		{form.TargetFieldSpec{Name: "hipaa_consent"}, "No"},
		{form.TargetFieldSpec{Name: "opt_out", Type: form.FieldTypeBoolean}, "No"},
		{form.TargetFieldSpec{Name: "signature_date"}, "2025-03-14"},
		{form.TargetFieldSpec{Name: "start", Type: form.FieldTypeDate}, "2025-03-14"},
		{form.TargetFieldSpec{Name: "guardian_birth_date"}, ""},
		{form.TargetFieldSpec{Name: "caregiver_relationship"}, "Self"},
		{form.TargetFieldSpec{Name: "enrollment_status"}, "Active"},
		{form.TargetFieldSpec{Name: "shipment_type"}, "Standard"},
		{form.TargetFieldSpec{Name: "insurer"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.spec.Name, func(t *testing.T) {
			res := resolveOne(t, Input{}, tt.spec)
			assert.Equal(t, TierUnmappable, res.Tier)
			assert.Equal(t, tt.value, res.Value)
			assert.Zero(t, res.Confidence)
			assert.NotEmpty(t, res.Suggestions)
		})
	}
}

func TestResolve_UnmappableDateUsesManufacturerFormat(t *testing.T) {
	catalog, err := rules.Default()
	require.NoError(t, err)

	rs, err := catalog.Get("meridian")
	require.NoError(t, err)

	res := resolveOne(t, Input{Rules: rs}, form.TargetFieldSpec{Name: "signature_date"})
	assert.Equal(t, "03/14/2025", res.Value)
}

func TestResolve_SinglePass(t *testing.T) {
	r := newTestResolver()
	in := Input{
		Resolved: map[string]string{"patient_dob": "1990-05-02"},
		Record:   source.NewRecord(map[string]string{"first_name": "Jane", "last_name": "Roe"}),
	}

	// full_name is derived in this pass but must not feed relationship.
	res := r.Resolve(in, specs("patient_dob", "full_name", "subscriber_name", "relationship"))
	require.Len(t, res, 3)
	assert.Equal(t, "full_name", res[0].Field)
	assert.Equal(t, TierDerived, res[0].Tier)
	assert.Equal(t, TierUnmappable, res[1].Tier)
	assert.Equal(t, TierUnmappable, res[2].Tier)
	assert.Equal(t, "Self", res[2].Value)
	assert.False(t, res[2].Resolved())
}

func TestSuggestions(t *testing.T) {
	assert.Contains(t, Suggestions("insurer")[0], "insurance")
	assert.Contains(t, Suggestions("payer_id"), "payer eligibility or benefits verification response")
	assert.Contains(t, Suggestions("prescriber_npi")[0], "NPI")
	assert.Contains(t, Suggestions("primary_dx"), "letter of medical necessity")
	assert.Contains(t, Suggestions("clinic_location"), "facility or site directory")
	assert.Equal(t, []string{manualEntry}, Suggestions("favourite_colour"))
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "derived", TierDerived.String())
	assert.Equal(t, "manufacturer_default", TierManufacturerDefault.String())
	assert.Equal(t, "conditional_default", TierConditional.String())
	assert.Equal(t, "unmappable", TierUnmappable.String())
	assert.Equal(t, "unknown", Tier(0).String())
}
