package fallback

import (
	"field-mapper/internal/common"
)

// Tier identifies which fallback step produced a value.
type Tier int

const (
	TierDerived Tier = iota + 1
	TierManufacturerDefault
	TierConditional
	TierUnmappable
)

// String returns a human-readable tier name.
func (t Tier) String() string {
	switch t {
	case TierDerived:
		return "derived"
	case TierManufacturerDefault:
		return "manufacturer_default"
	case TierConditional:
		return "conditional_default"
	case TierUnmappable:
		return "unmappable"
	default:
		return common.UnknownStr
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Tier confidences.
const (
	DerivedConfidence     = 0.7
	DefaultConfidence     = 0.5
	ConditionalConfidence = 0.6
)

// Result is the fallback outcome of one field.
type Result struct {
	Field      string
	Value      string
	Confidence float64
	Tier       Tier
	// Inputs names the sibling fields or source keys a derived or
	// conditional value was computed from.
	Inputs []string
	// Suggestions lists likely upstream sources for an unmappable field.
	Suggestions []string
}

// Resolved reports whether a tier produced the value.
func (r Result) Resolved() bool {
	return r.Tier != TierUnmappable
}
