package match

import (
	"context"

	"go.uber.org/zap"

	"field-mapper/internal/common"
	"field-mapper/internal/source"
	"field-mapper/internal/store"
)

// Matching thresholds.
const (
	// DefaultThreshold is the minimum weighted score for accepting a candidate.
	DefaultThreshold = 0.7
	// DefaultFuzzyFloor is the minimum similarity for a fuzzy candidate.
	DefaultFuzzyFloor = 0.7
	// DefaultLearnedThreshold is the confidence a learned mapping needs to
	// short-circuit matching.
	DefaultLearnedThreshold = 0.9
)

// Options tunes a FieldMatcher.
type Options struct {
	Threshold        float64
	FuzzyFloor       float64
	LearnedThreshold float64
	Dictionary       *Dictionary
}

// DefaultOptions returns the default matching configuration.
func DefaultOptions() Options {
	return Options{
		Threshold:        DefaultThreshold,
		FuzzyFloor:       DefaultFuzzyFloor,
		LearnedThreshold: DefaultLearnedThreshold,
		Dictionary:       DefaultDictionary(),
	}
}

// Scope identifies the manufacturer/template a field belongs to.
type Scope struct {
	Manufacturer string
	Template     string
}

// EnhancedValue is one externally suggested value with its self-reported
// confidence.
type EnhancedValue struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// Enhancement maps target field names to external suggestions.
type Enhancement map[string]EnhancedValue

// Query is the input of a single field resolution.
type Query struct {
	Scope
	Target string
	Record source.Record
	// Variations are manufacturer-specific alternative names for Target.
	Variations []string
	// Enhanced is an optional external suggestion for Target.
	Enhanced *EnhancedValue
}

// SourceKey is a source record key with its normalized forms.
type SourceKey struct {
	Raw  string
	Full string
	Leaf string
}

func sourceKeys(rec source.Record) []SourceKey {
	keys := make([]SourceKey, 0, rec.Len())
	for _, k := range rec.Keys() {
		keys = append(keys, SourceKey{
			Raw:  k,
			Full: Normalize(k),
			Leaf: Normalize(source.Leaf(k)),
		})
	}

	return keys
}

// FieldMatcher resolves target fields against a source record.
// It is safe for concurrent use if its LearnedStore is.
type FieldMatcher struct {
	learned store.LearnedStore
	opts    Options
	logger  *zap.Logger
}

// NewFieldMatcher creates a FieldMatcher. learned may be nil, which
// disables the learned-mapping cache.
func NewFieldMatcher(learned store.LearnedStore, opts Options, logger *zap.Logger) *FieldMatcher {
	if opts.Dictionary == nil {
		opts.Dictionary = DefaultDictionary()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &FieldMatcher{learned: learned, opts: opts, logger: logger}
}

// Match resolves one target field. It returns false when no strategy met
// the threshold. Persistence failures are logged and never change the result.
func (m *FieldMatcher) Match(ctx context.Context, q Query) (Candidate, bool) {
	if cand, ok := m.matchLearned(ctx, q); ok {
		return cand, true
	}

	best, ok := m.Candidates(q).Best()
	if !ok || best.Weighted() < m.opts.Threshold {
		return Candidate{}, false
	}

	m.remember(ctx, q.Scope, best)

	return best, true
}

// Candidates collects candidates from every strategy in precedence order:
// exact, semantic, pattern, fuzzy, enhanced.
func (m *FieldMatcher) Candidates(q Query) CandidateList {
	keys := sourceKeys(q.Record)
	target := Normalize(q.Target)
	concept := m.opts.Dictionary.Concept(target)

	var list CandidateList

	list = append(list, m.exact(q, target, keys)...)
	list = append(list, m.semantic(q, target, concept, keys)...)
	list = append(list, m.pattern(q, concept, keys)...)
	list = append(list, m.fuzzy(q, target, concept, keys)...)

	if q.Enhanced != nil {
		list = append(list, Candidate{
			TargetField: q.Target,
			SourceKey:   "",
			Value:       q.Enhanced.Value,
			Confidence:  common.Clamp01(q.Enhanced.Confidence),
			Strategy:    StrategyEnhanced,
		})
	}

	return list
}

func (m *FieldMatcher) exact(q Query, target string, keys []SourceKey) CandidateList {
	var out CandidateList

	for _, k := range keys {
		if k.Full == target || k.Leaf == target {
			out = append(out, m.candidate(q, k, ExactConfidence, StrategyExact))
		}
	}

	return out
}

func (m *FieldMatcher) semantic(q Query, target, concept string, keys []SourceKey) CandidateList {
	names := make(map[string]struct{})

	if concept != "" {
		for _, n := range m.opts.Dictionary.Members(concept) {
			names[n] = struct{}{}
		}
	}

	for _, v := range q.Variations {
		names[Normalize(v)] = struct{}{}
	}

	delete(names, target)

	if len(names) == 0 {
		return nil
	}

	var out CandidateList

	for _, k := range keys {
		_, full := names[k.Full]
		_, leaf := names[k.Leaf]

		if full || leaf {
			out = append(out, m.candidate(q, k, SemanticConfidence, StrategySemantic))
		}
	}

	return out
}

func (m *FieldMatcher) pattern(q Query, concept string, keys []SourceKey) CandidateList {
	if concept == "" {
		return nil
	}

	rules := m.opts.Dictionary.Patterns(concept)
	if len(rules) == 0 {
		return nil
	}

	var out CandidateList

	for _, k := range keys {
		for _, r := range rules {
			if r.Pattern.MatchString(k.Full) || r.Pattern.MatchString(k.Leaf) {
				out = append(out, m.candidate(q, k, PatternConfidence, StrategyPattern))
				break
			}
		}
	}

	return out
}

// fuzzy scores every source key. A key that belongs to a different known
// concept than the target is skipped: fuzzy similarity never bridges two
// curated concepts ("patient_name" is not "patient_first_name").
func (m *FieldMatcher) fuzzy(q Query, target, concept string, keys []SourceKey) CandidateList {
	var out CandidateList

	for _, k := range keys {
		if concept != "" {
			if other := m.opts.Dictionary.ConceptOfKey(k); other != "" && other != concept {
				continue
			}
		}

		score := max(scoreNormalized(target, k.Full), scoreNormalized(target, k.Leaf))
		if score >= m.opts.FuzzyFloor {
			out = append(out, m.candidate(q, k, score, StrategyFuzzy))
		}
	}

	return out
}

func (m *FieldMatcher) candidate(q Query, k SourceKey, confidence float64, s Strategy) Candidate {
	value, _ := q.Record.Get(k.Raw)

	return Candidate{
		TargetField: q.Target,
		SourceKey:   k.Raw,
		Value:       value,
		Confidence:  confidence,
		Strategy:    s,
	}
}

// matchLearned short-circuits matching when a high-confidence learned
// mapping exists and its source key is present in the record.
func (m *FieldMatcher) matchLearned(ctx context.Context, q Query) (Candidate, bool) {
	if m.learned == nil {
		return Candidate{}, false
	}

	lm, err := m.learned.Lookup(ctx, q.Manufacturer, q.Template, q.Target)
	if err != nil {
		m.logger.Warn("learned mapping lookup failed",
			zap.String("manufacturer", q.Manufacturer),
			zap.String("template", q.Template),
			zap.String("field", q.Target),
			zap.Error(err))

		return Candidate{}, false
	}

	if lm == nil || lm.Confidence <= m.opts.LearnedThreshold {
		return Candidate{}, false
	}

	value, ok := q.Record.Get(lm.SourceField)
	if !ok {
		return Candidate{}, false
	}

	if err := m.learned.RecordUsage(ctx, q.Manufacturer, q.Template, lm.SourceField, true); err != nil {
		m.logger.Warn("learned mapping usage update failed",
			zap.String("manufacturer", q.Manufacturer),
			zap.String("source_field", lm.SourceField),
			zap.Error(err))
	}

	return Candidate{
		TargetField: q.Target,
		SourceKey:   lm.SourceField,
		Value:       value,
		Confidence:  LearnedConfidence,
		Strategy:    StrategyLearned,
	}, true
}

// remember persists an accepted match, best-effort.
func (m *FieldMatcher) remember(ctx context.Context, scope Scope, c Candidate) {
	if m.learned == nil || c.SourceKey == "" {
		return
	}

	err := m.learned.Save(ctx, store.LearnedMapping{
		Manufacturer: scope.Manufacturer,
		Template:     scope.Template,
		SourceField:  c.SourceKey,
		TargetField:  c.TargetField,
		Confidence:   c.Confidence,
		UsageCount:   1,
		SuccessCount: 1,
	})
	if err != nil {
		m.logger.Warn("learned mapping save failed",
			zap.String("manufacturer", scope.Manufacturer),
			zap.String("template", scope.Template),
			zap.String("field", c.TargetField),
			zap.String("source_field", c.SourceKey),
			zap.Error(err))
	}
}
