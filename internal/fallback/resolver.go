package fallback

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"field-mapper/internal/form"
	"field-mapper/internal/match"
	"field-mapper/internal/rules"
	"field-mapper/internal/source"
)

// Input is the context shared by every field of one fallback pass.
type Input struct {
	// Rules is the manufacturer rule set; nil disables the default table.
	Rules *rules.RuleSet
	// Resolved holds the values the matcher produced, by target field.
	Resolved map[string]string
	Record   source.Record
}

// Resolver runs the fallback tiers.
type Resolver struct {
	dict   *match.Dictionary
	now    func() time.Time
	logger *zap.Logger
}

// NewResolver creates a Resolver using the default dictionary.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Resolver{
		dict:   match.DefaultDictionary(),
		now:    time.Now,
		logger: logger,
	}
}

// Resolve runs one pass over the unresolved fields. Fields present in
// in.Resolved are skipped. Every result is computed from in alone, so the
// order of specs does not change any value.
func (r *Resolver) Resolve(in Input, specs []form.TargetFieldSpec) []Result {
	sib := newSiblings(r.dict, in.Resolved, in.Record)
	out := make([]Result, 0, len(specs))

	for _, spec := range specs {
		if _, done := in.Resolved[spec.Name]; done {
			continue
		}

		res := r.resolveField(in, sib, spec)
		r.logger.Debug("fallback resolved field",
			zap.String("field", spec.Name),
			zap.Stringer("tier", res.Tier),
			zap.Float64("confidence", res.Confidence))

		out = append(out, res)
	}

	return out
}

func (r *Resolver) resolveField(in Input, sib *siblings, spec form.TargetFieldSpec) Result {
	name := match.Normalize(spec.Name)
	concept := r.dict.Concept(name)

	if value, inputs, ok := derive(sib, concept, name, r.now()); ok {
		return Result{Field: spec.Name, Value: value, Confidence: DerivedConfidence, Tier: TierDerived, Inputs: inputs}
	}

	if in.Rules != nil {
		if value, ok := in.Rules.Default(spec.Name); ok {
			return Result{Field: spec.Name, Value: value, Confidence: DefaultConfidence, Tier: TierManufacturerDefault}
		}
	}

	if value, inputs, ok := conditional(sib, concept, name); ok {
		return Result{Field: spec.Name, Value: value, Confidence: ConditionalConfidence, Tier: TierConditional, Inputs: inputs}
	}

	return Result{
		Field:       spec.Name,
		Value:       r.unmappableDefault(in, spec, name),
		Confidence:  0,
		Tier:        TierUnmappable,
		Suggestions: Suggestions(spec.Name),
	}
}

// unmappableDefault picks a placeholder value from the field name.
func (r *Resolver) unmappableDefault(in Input, spec form.TargetFieldSpec, name string) string {
	tokens := strings.Split(name, "_")

	switch {
	case spec.Type == form.FieldTypeBoolean || isBooleanName(tokens):
		return "No"
	case isDateName(spec, tokens):
		format := "YYYY-MM-DD"
		if in.Rules != nil && in.Rules.Formats.Date != "" {
			format = in.Rules.Formats.Date
		}

		return rules.FormatDate(r.now(), format)
	case hasToken(tokens, "relationship"):
		return "Self"
	case hasToken(tokens, "status"):
		return "Active"
	case hasToken(tokens, "type"):
		return "Standard"
	default:
		return ""
	}
}

var booleanPrefixes = []string{"is", "has", "can", "should", "was"}

var booleanWords = []string{"consent", "agree", "agreed", "signed", "flag", "checkbox", "authorized", "opt"}

func isBooleanName(tokens []string) bool {
	if len(tokens) > 1 && hasToken(booleanPrefixes, tokens[0]) {
		return true
	}

	for _, w := range booleanWords {
		if hasToken(tokens, w) {
			return true
		}
	}

	return false
}

func isDateName(spec form.TargetFieldSpec, tokens []string) bool {
	if hasToken(tokens, "birth") || hasToken(tokens, "dob") || hasToken(tokens, "birthdate") {
		return false
	}

	return spec.Type == form.FieldTypeDate || hasToken(tokens, "date") || hasToken(tokens, "dt")
}

func hasToken(tokens []string, want string) bool {
	for _, t := range tokens {
		if t == want {
			return true
		}
	}

	return false
}
