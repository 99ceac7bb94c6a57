package store

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown store driver")

// LearnedMapping is a persisted, reusable record of a previously accepted
// source-to-target resolution. Rows are keyed by
// (Manufacturer, Template, SourceField) and never deleted.
type LearnedMapping struct {
	Manufacturer string    `json:"manufacturer"`
	Template     string    `json:"template"`
	SourceField  string    `json:"source_field"`
	TargetField  string    `json:"target_field"`
	Confidence   float64   `json:"confidence"`
	UsageCount   int64     `json:"usage_count"`
	SuccessCount int64     `json:"success_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AuditEntry is an immutable record of one field-resolution outcome.
type AuditEntry struct {
	RunID        string    `json:"run_id"`
	Manufacturer string    `json:"manufacturer"`
	Template     string    `json:"template"`
	TargetField  string    `json:"target_field"`
	SourceField  string    `json:"source_field,omitempty"`
	Strategy     string    `json:"strategy"`
	Status       string    `json:"status"`
	Confidence   float64   `json:"confidence"`
	Success      bool      `json:"success"`
	Timestamp    time.Time `json:"timestamp"`
}

// LearnedStore reads and writes learned mappings.
type LearnedStore interface {
	// Lookup returns the best learned mapping for a target field, or nil
	// when none exists. Higher confidence wins, then higher usage, then
	// the lexically smaller source field.
	Lookup(ctx context.Context, manufacturer, template, target string) (*LearnedMapping, error)
	// Save inserts a mapping or, when the source field is already known,
	// retargets it and accumulates its counters.
	Save(ctx context.Context, m LearnedMapping) error
	// RecordUsage increments the usage counter of an existing mapping.
	RecordUsage(ctx context.Context, manufacturer, template, sourceField string, success bool) error
}

// AuditLog is an append-only sink of audit entries.
type AuditLog interface {
	Append(ctx context.Context, entries ...AuditEntry) error
	// List returns the most recent entries first; limit <= 0 means all.
	List(ctx context.Context, manufacturer, template string, limit int) ([]AuditEntry, error)
}

// Store is the full persistence surface used by the orchestrator and CLI.
type Store interface {
	LearnedStore
	AuditLog
	ListLearned(ctx context.Context, manufacturer, template string) ([]LearnedMapping, error)
	Close() error
}

// less reports whether a ranks ahead of b for Lookup.
func less(a, b LearnedMapping) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}

	if a.UsageCount != b.UsageCount {
		return a.UsageCount > b.UsageCount
	}

	return a.SourceField < b.SourceField
}
