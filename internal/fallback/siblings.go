package fallback

import (
	"field-mapper/internal/common"
	"field-mapper/internal/match"
	"field-mapper/internal/source"
)

// sibling is a value available to the fallback tiers.
type sibling struct {
	name     string
	key      match.SourceKey
	value    string
	resolved bool
}

// siblings holds the values fallback may read: fields the matcher resolved
// followed by the flattened source record. Values produced by fallback
// itself are never added.
type siblings struct {
	dict    *match.Dictionary
	entries []sibling
}

func newSiblings(dict *match.Dictionary, resolved map[string]string, rec source.Record) *siblings {
	s := &siblings{dict: dict}

	for _, name := range common.SortedKeys(resolved) {
		if v := resolved[name]; v != "" {
			n := match.Normalize(name)
			s.entries = append(s.entries, sibling{name: name, key: match.SourceKey{Raw: name, Full: n, Leaf: n}, value: v, resolved: true})
		}
	}

	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		if v == "" {
			continue
		}

		s.entries = append(s.entries, sibling{
			name:  k,
			key:   match.SourceKey{Raw: k, Full: match.Normalize(k), Leaf: match.Normalize(source.Leaf(k))},
			value: v,
		})
	}

	return s
}

// find returns the sibling of a concept that is most similar to target.
// Source keys are only consulted when no resolved field has the concept.
func (s *siblings) find(concept, target string) (sibling, bool) {
	if e, ok := s.best(concept, target, true); ok {
		return e, true
	}

	return s.best(concept, target, false)
}

func (s *siblings) best(concept, target string, resolved bool) (sibling, bool) {
	var (
		best      sibling
		bestScore = -1.0
	)

	for _, e := range s.entries {
		if e.resolved != resolved || s.dict.ConceptOfKey(e.key) != concept {
			continue
		}

		score := max(match.Score(target, e.key.Full), match.Score(target, e.key.Leaf))
		if score > bestScore {
			best, bestScore = e, score
		}
	}

	return best, bestScore >= 0
}
