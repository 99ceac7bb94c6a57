package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"field-mapper/internal/form"
)

// Field rule types.
const (
	RuleRequired     = "required"
	RuleRegex        = "regex"
	RuleMinLength    = "min_length"
	RuleMaxLength    = "max_length"
	RuleNumeric      = "numeric"
	RuleAlpha        = "alpha"
	RuleAlphanumeric = "alphanumeric"
	RuleAllowed      = "allowed"
	RuleNPI          = "npi"
	RuleEmail        = "email"
	RuleDate         = "date"
)

// ErrInvalidRule reports a malformed rule definition.
var ErrInvalidRule = errors.New("invalid rule")

var regexCache sync.Map

func compileCached(expr string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Load(expr); ok {
		return re.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	regexCache.Store(expr, re)

	return re, nil
}

// ValidateRule checks that a rule definition is well formed.
func ValidateRule(r form.Rule) error {
	switch r.Type {
	case RuleRequired, RuleNumeric, RuleAlpha, RuleAlphanumeric, RuleNPI, RuleEmail, RuleDate:
		return nil
	case RuleRegex:
		if _, err := compileCached(r.Value); err != nil {
			return fmt.Errorf("%w: regex %q: %w", ErrInvalidRule, r.Value, err)
		}

		return nil
	case RuleMinLength, RuleMaxLength:
		if n, err := strconv.Atoi(r.Value); err != nil || n < 0 {
			return fmt.Errorf("%w: %s needs a non-negative integer, got %q", ErrInvalidRule, r.Type, r.Value)
		}

		return nil
	case RuleAllowed:
		if len(allowedValues(r.Value)) == 0 {
			return fmt.Errorf("%w: allowed needs at least one value", ErrInvalidRule)
		}

		return nil
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRule, r.Type)
	}
}

// CheckRule evaluates a rule against a value and returns the violation
// message, or "" when the value passes. Only the required rule looks at
// empty values; every other rule accepts them.
func CheckRule(r form.Rule, value string) (string, error) {
	if err := ValidateRule(r); err != nil {
		return "", err
	}

	value = strings.TrimSpace(value)

	if r.Type == RuleRequired {
		if value == "" {
			return message(r, "is required"), nil
		}

		return "", nil
	}

	if value == "" {
		return "", nil
	}

	var (
		ok     bool
		reason string
	)

	switch r.Type {
	case RuleRegex:
		re, _ := compileCached(r.Value)
		ok, reason = re.MatchString(value), fmt.Sprintf("does not match pattern %s", r.Value)
	case RuleMinLength:
		n, _ := strconv.Atoi(r.Value)
		ok, reason = utf8.RuneCountInString(value) >= n, fmt.Sprintf("must be at least %d characters", n)
	case RuleMaxLength:
		n, _ := strconv.Atoi(r.Value)
		ok, reason = utf8.RuneCountInString(value) <= n, fmt.Sprintf("must be at most %d characters", n)
	case RuleNumeric:
		ok, reason = allRunes(value, unicode.IsDigit), "must contain only digits"
	case RuleAlpha:
		ok, reason = allRunes(value, func(r rune) bool { return unicode.IsLetter(r) || r == ' ' }), "must contain only letters"
	case RuleAlphanumeric:
		ok, reason = allRunes(value, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' '
		}), "must contain only letters and digits"
	case RuleAllowed:
		ok, reason = isAllowed(r.Value, value), fmt.Sprintf("must be one of %s", strings.Join(allowedValues(r.Value), ", "))
	case RuleNPI:
		ok, reason = ValidNPI(value), "is not a valid NPI"
	case RuleEmail:
		ok, reason = emailRe.MatchString(value), "is not a valid email address"
	case RuleDate:
		_, ok = ParseDate(value)
		reason = "is not a valid date"
	}

	if ok {
		return "", nil
	}

	return message(r, reason), nil
}

func message(r form.Rule, reason string) string {
	if r.Message != "" {
		return r.Message
	}

	return reason
}

func allRunes(s string, pred func(rune) bool) bool {
	for _, r := range s {
		if !pred(r) {
			return false
		}
	}

	return true
}

// allowedValues splits a "|" or "," separated list.
func allowedValues(v string) []string {
	var out []string

	for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == '|' || r == ',' }) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}

func isAllowed(list, value string) bool {
	for _, a := range allowedValues(list) {
		if strings.EqualFold(a, value) {
			return true
		}
	}

	return false
}
