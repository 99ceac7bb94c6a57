package store

import (
	"context"
	"slices"
	"sync"
	"time"
)

type learnedKey struct {
	manufacturer string
	template     string
	source       string
}

// MemoryStore keeps learned mappings and audit entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	learned map[learnedKey]LearnedMapping
	audit   []AuditEntry
	now     func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		learned: make(map[learnedKey]LearnedMapping),
		now:     time.Now,
	}
}

func (s *MemoryStore) Lookup(_ context.Context, manufacturer, template, target string) (*LearnedMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *LearnedMapping

	for k, m := range s.learned {
		if k.manufacturer != manufacturer || k.template != template || m.TargetField != target {
			continue
		}

		if best == nil || less(m, *best) {
			found := m
			best = &found
		}
	}

	return best, nil
}

func (s *MemoryStore) Save(_ context.Context, m LearnedMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	key := learnedKey{m.Manufacturer, m.Template, m.SourceField}

	if existing, ok := s.learned[key]; ok {
		existing.TargetField = m.TargetField
		existing.Confidence = m.Confidence
		existing.UsageCount += m.UsageCount
		existing.SuccessCount += m.SuccessCount
		existing.UpdatedAt = now
		s.learned[key] = existing

		return nil
	}

	m.CreatedAt = now
	m.UpdatedAt = now
	s.learned[key] = m

	return nil
}

func (s *MemoryStore) RecordUsage(_ context.Context, manufacturer, template, sourceField string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := learnedKey{manufacturer, template, sourceField}

	m, ok := s.learned[key]
	if !ok {
		return nil
	}

	m.UsageCount++
	if success {
		m.SuccessCount++
	}

	m.UpdatedAt = s.now().UTC()
	s.learned[key] = m

	return nil
}

func (s *MemoryStore) ListLearned(_ context.Context, manufacturer, template string) ([]LearnedMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []LearnedMapping

	for k, m := range s.learned {
		if k.manufacturer == manufacturer && k.template == template {
			out = append(out, m)
		}
	}

	slices.SortFunc(out, func(a, b LearnedMapping) int {
		if less(a, b) {
			return -1
		}

		if less(b, a) {
			return 1
		}

		return 0
	})

	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, entries ...AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()

	for _, e := range entries {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}

		s.audit = append(s.audit, e)
	}

	return nil
}

func (s *MemoryStore) List(_ context.Context, manufacturer, template string, limit int) ([]AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []AuditEntry

	for i := len(s.audit) - 1; i >= 0; i-- {
		e := s.audit[i]
		if e.Manufacturer != manufacturer || e.Template != template {
			continue
		}

		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
