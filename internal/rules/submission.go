package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
)

// Submission rule kinds.
const (
	KindICD10List  = "icd10_list"
	KindDateFormat = "date_format"
	KindCEL        = "cel"
)

// SubmissionField is the key used for violations not tied to one field.
const SubmissionField = "_submission"

var icd10Re = regexp.MustCompile(`^[A-Z][0-9]{2,3}(\.[0-9]{1,2})?$`)

// SubmissionRule is a manufacturer-level check over the complete set of
// resolved field values.
type SubmissionRule struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
	// Field is the field checked by icd10_list, and the field a cel
	// violation is reported against.
	Field string `yaml:"field,omitempty"`
	// Fields are the fields checked by date_format.
	Fields []string `yaml:"fields,omitempty"`
	// Format is the canonical date format for date_format.
	Format string `yaml:"format,omitempty"`
	// Expr is a boolean CEL expression over `fields` (map<string, string>).
	Expr    string `yaml:"expr,omitempty"`
	Message string `yaml:"message,omitempty"`

	program cel.Program
}

// Violation is one failed submission rule.
type Violation struct {
	Rule    string
	Field   string
	Message string
}

func newCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("fields", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	return env, nil
}

// compile validates the rule and prepares its CEL program.
func (r *SubmissionRule) compile(env *cel.Env) error {
	if r.Name == "" {
		return fmt.Errorf("%w: submission rule without name", ErrInvalidRule)
	}

	switch r.Kind {
	case KindICD10List:
		if r.Field == "" {
			return fmt.Errorf("%w: %s: icd10_list needs a field", ErrInvalidRule, r.Name)
		}
	case KindDateFormat:
		if r.Format == "" || len(r.Fields) == 0 {
			return fmt.Errorf("%w: %s: date_format needs format and fields", ErrInvalidRule, r.Name)
		}
	case KindCEL:
		ast, issues := env.Compile(r.Expr)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("%w: %s: CEL compile error: %w", ErrInvalidRule, r.Name, issues.Err())
		}

		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("%w: %s: expression must be boolean", ErrInvalidRule, r.Name)
		}

		prg, err := env.Program(ast)
		if err != nil {
			return fmt.Errorf("%w: %s: CEL program error: %w", ErrInvalidRule, r.Name, err)
		}

		r.program = prg
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidRule, r.Name, r.Kind)
	}

	return nil
}

// Check evaluates the rule over the resolved field values.
func (r *SubmissionRule) Check(fields map[string]string) []Violation {
	switch r.Kind {
	case KindICD10List:
		return r.checkICD10(fields)
	case KindDateFormat:
		return r.checkDates(fields)
	case KindCEL:
		return r.checkCEL(fields)
	default:
		return nil
	}
}

func (r *SubmissionRule) violation(field, fallback string) Violation {
	msg := r.Message
	if msg == "" {
		msg = fallback
	}

	return Violation{Rule: r.Name, Field: field, Message: msg}
}

// SplitCodes splits a diagnosis code list on commas, semicolons and
// whitespace.
func SplitCodes(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n'
	})
}

func (r *SubmissionRule) checkICD10(fields map[string]string) []Violation {
	codes := SplitCodes(fields[r.Field])
	if len(codes) == 0 {
		return []Violation{r.violation(r.Field, "at least one diagnosis code is required")}
	}

	var out []Violation

	for _, c := range codes {
		if !icd10Re.MatchString(strings.ToUpper(c)) {
			out = append(out, r.violation(r.Field, fmt.Sprintf("%q is not an ICD-10 code", c)))
		}
	}

	return out
}

func (r *SubmissionRule) checkDates(fields map[string]string) []Violation {
	var out []Violation

	for _, f := range r.Fields {
		v := strings.TrimSpace(fields[f])
		if v == "" || MatchesDateFormat(v, r.Format) {
			continue
		}

		out = append(out, r.violation(f, fmt.Sprintf("date %q must use format %s", v, r.Format)))
	}

	return out
}

func (r *SubmissionRule) checkCEL(fields map[string]string) []Violation {
	field := r.Field
	if field == "" {
		field = SubmissionField
	}

	out, _, err := r.program.Eval(map[string]any{"fields": fields})
	if err != nil {
		return []Violation{r.violation(field, fmt.Sprintf("rule could not be evaluated: %v", err))}
	}

	if ok, _ := out.Value().(bool); !ok {
		return []Violation{r.violation(field, fmt.Sprintf("rule %s failed", r.Name))}
	}

	return nil
}
