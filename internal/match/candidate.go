package match

import (
	"fmt"

	"field-mapper/internal/common"
)

// Strategy identifies how a candidate was found.
type Strategy int

// Strategies are declared in precedence order: on equal weighted scores
// the earlier strategy wins.
const (
	StrategyExact Strategy = iota
	StrategySemantic
	StrategyPattern
	StrategyFuzzy
	StrategyEnhanced
	StrategyLearned
)

var strategyNames = map[Strategy]string{
	StrategyExact:    "exact",
	StrategySemantic: "semantic",
	StrategyPattern:  "pattern",
	StrategyFuzzy:    "fuzzy",
	StrategyEnhanced: "enhanced",
	StrategyLearned:  "learned",
}

// String returns a human-readable strategy name.
func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}

	return common.UnknownStr
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(b []byte) error {
	for st, name := range strategyNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}

	return fmt.Errorf("unknown strategy %q", string(b))
}

// Boost returns the fixed multiplier applied to a candidate's raw
// confidence before ranking.
func (s Strategy) Boost() float64 {
	switch s {
	case StrategyExact:
		return 1.5
	case StrategySemantic:
		return 1.2
	case StrategyPattern:
		return 1.1
	case StrategyEnhanced:
		return 0.9
	default:
		return 1.0
	}
}

// Raw confidences assigned by the dictionary strategies.
const (
	ExactConfidence    = 1.0
	SemanticConfidence = 0.95
	PatternConfidence  = 0.85
	LearnedConfidence  = 1.0
)

// Candidate is a potential source for a target field.
type Candidate struct {
	TargetField string
	SourceKey   string
	Value       string
	// Confidence is the raw confidence in [0, 1].
	Confidence float64
	Strategy   Strategy
}

// Weighted returns the ranking score: confidence times strategy boost.
func (c Candidate) Weighted() float64 {
	return c.Confidence * c.Strategy.Boost()
}

// CandidateList holds candidates in collection order.
type CandidateList []Candidate

// Best returns the candidate with the highest weighted score. Ties go to
// the candidate collected first, which follows strategy precedence.
func (c CandidateList) Best() (Candidate, bool) {
	if len(c) == 0 {
		return Candidate{}, false
	}

	best := c[0]
	for _, cand := range c[1:] {
		if cand.Weighted() > best.Weighted() {
			best = cand
		}
	}

	return best, true
}
