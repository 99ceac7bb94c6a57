package validate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"field-mapper/internal/common"
	"field-mapper/internal/diagnostic"
	"field-mapper/internal/form"
	"field-mapper/internal/rules"
)

// Mode controls how strictly required fields are enforced.
type Mode int

const (
	// ModeStrict reports missing required fields as errors.
	ModeStrict Mode = iota
	// ModeLenient reports missing required fields as warnings.
	ModeLenient
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeLenient:
		return "lenient"
	default:
		return common.UnknownStr
	}
}

// ParseMode parses a mode name. The empty string is strict.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return ModeStrict, nil
	case "lenient":
		return ModeLenient, nil
	default:
		return ModeStrict, fmt.Errorf("unknown validation mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}

// LowConfidence is the confidence below which a field gets a warning.
const LowConfidence = 0.5

// Field is the final state of one target field.
type Field struct {
	Spec       form.TargetFieldSpec
	Value      string
	Confidence float64
	// Mapped is false for fields that ended unmappable.
	Mapped bool
}

// Engine validates mapping results.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{logger: logger}
}

// Validate checks every field and then the manufacturer's submission
// rules. rs may be nil, in which case only the rules declared on the field
// specs apply.
func (e *Engine) Validate(rs *rules.RuleSet, fields []Field, mode Mode) diagnostic.ValidationResult {
	var diags diagnostic.Diagnostics

	values := make(map[string]string, len(fields))

	for _, f := range fields {
		values[f.Spec.Name] = f.Value
		e.checkField(&diags, rs, f, mode)
	}

	if rs != nil {
		for _, v := range rs.CheckSubmission(values) {
			field := v.Field
			if field == rules.SubmissionField {
				field = ""
			}

			diags.AddError(diagnostic.CodeSubmission, v.Message, field)
		}
	}

	res := diags.Result(len(fields), rules.SubmissionField)

	e.logger.Debug("validation finished",
		zap.Stringer("mode", mode),
		zap.Bool("valid", res.Valid),
		zap.Int("errors", res.Summary.Errors),
		zap.Int("warnings", res.Summary.Warnings))

	return res
}

func (e *Engine) checkField(diags *diagnostic.Diagnostics, rs *rules.RuleSet, f Field, mode Mode) {
	name := f.Spec.Name

	if f.Confidence < LowConfidence {
		diags.AddWarning(diagnostic.CodeLowConfidence,
			fmt.Sprintf("confidence %.2f is below %.2f", f.Confidence, LowConfidence), name)
	}

	fieldRules := f.Spec.ValidationRules
	if rs != nil {
		fieldRules = rs.FieldRules(f.Spec)
	}

	if !f.Mapped || strings.TrimSpace(f.Value) == "" {
		missing(diags, f, isRequired(f.Spec, fieldRules), mode)
		return
	}

	if !rules.Conforms(f.Spec.Type, f.Value) {
		diags.AddError(diagnostic.CodeTypeMismatch,
			fmt.Sprintf("value does not look like a %s", f.Spec.Type), name)
	}

	for _, r := range fieldRules {
		msg, err := rules.CheckRule(r, f.Value)
		if err != nil {
			e.logger.Warn("invalid validation rule", zap.String("field", name), zap.Error(err))
			diags.AddError(diagnostic.CodeInvalidRule, err.Error(), name)

			continue
		}

		if msg != "" {
			diags.AddError(diagnostic.CodeRuleViolation, msg, name)
		}
	}
}

// missing reports a field without a usable value.
func missing(diags *diagnostic.Diagnostics, f Field, required bool, mode Mode) {
	name := f.Spec.Name

	if !required {
		if !f.Mapped {
			diags.AddWarning(diagnostic.CodeUnmappable, "could not be mapped from the source data", name)
		}

		return
	}

	if mode == ModeLenient {
		diags.AddWarning(diagnostic.CodeMissingRequired, "required field is missing (lenient mode)", name)
		return
	}

	diags.AddError(diagnostic.CodeMissingRequired, "required field is missing", name)
}

func isRequired(spec form.TargetFieldSpec, fieldRules []form.Rule) bool {
	if spec.Required {
		return true
	}

	for _, r := range fieldRules {
		if r.Type == rules.RuleRequired {
			return true
		}
	}

	return false
}
