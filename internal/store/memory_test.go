package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_LookupOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Save(ctx, LearnedMapping{Manufacturer: "m", Template: "t", SourceField: "zz", TargetField: "dob", Confidence: 0.95, UsageCount: 1}))
	require.NoError(t, s.Save(ctx, LearnedMapping{Manufacturer: "m", Template: "t", SourceField: "aa", TargetField: "dob", Confidence: 0.95, UsageCount: 1}))
	require.NoError(t, s.Save(ctx, LearnedMapping{Manufacturer: "m", Template: "t", SourceField: "low", TargetField: "dob", Confidence: 0.8, UsageCount: 9}))
	require.NoError(t, s.Save(ctx, LearnedMapping{Manufacturer: "other", Template: "t", SourceField: "x", TargetField: "dob", Confidence: 1}))

	got, err := s.Lookup(ctx, "m", "t", "dob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "aa", got.SourceField)

	require.NoError(t, s.RecordUsage(ctx, "m", "t", "zz", true))

	got, err = s.Lookup(ctx, "m", "t", "dob")
	require.NoError(t, err)
	assert.Equal(t, "zz", got.SourceField)
	assert.Equal(t, int64(2), got.UsageCount)
	assert.Equal(t, int64(1), got.SuccessCount)

	missing, err := s.Lookup(ctx, "m", "t", "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_SaveUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	m := LearnedMapping{Manufacturer: "m", Template: "t", SourceField: "dob", TargetField: "birth", Confidence: 0.9, UsageCount: 1, SuccessCount: 1}
	require.NoError(t, s.Save(ctx, m))

	m.TargetField = "patient_dob"
	m.Confidence = 0.95
	require.NoError(t, s.Save(ctx, m))

	all, err := s.ListLearned(ctx, "m", "t")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "patient_dob", all[0].TargetField)
	assert.InDelta(t, 0.95, all[0].Confidence, 1e-9)
	assert.Equal(t, int64(2), all[0].UsageCount)
	assert.Equal(t, int64(2), all[0].SuccessCount)
	assert.False(t, all[0].CreatedAt.IsZero())
}

func TestMemoryStore_RecordUsageUnknown(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.RecordUsage(context.Background(), "m", "t", "ghost", true))

	all, err := s.ListLearned(context.Background(), "m", "t")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStore_AuditAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Append(ctx,
		AuditEntry{RunID: "r1", Manufacturer: "m", Template: "t", TargetField: "a", Timestamp: ts},
		AuditEntry{RunID: "r1", Manufacturer: "m", Template: "t", TargetField: "b"},
	))
	require.NoError(t, s.Append(ctx, AuditEntry{RunID: "r2", Manufacturer: "m", Template: "t", TargetField: "a"}))
	require.NoError(t, s.Append(ctx, AuditEntry{RunID: "r3", Manufacturer: "x", Template: "t", TargetField: "a"}))

	all, err := s.List(ctx, "m", "t", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r2", all[0].RunID)
	assert.Equal(t, ts, all[2].Timestamp)
	assert.False(t, all[1].Timestamp.IsZero())

	limited, err := s.List(ctx, "m", "t", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryStore_ConcurrentAppend(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = s.Append(ctx, AuditEntry{Manufacturer: "m", Template: "t", TargetField: "f"})
			_ = s.Save(ctx, LearnedMapping{Manufacturer: "m", Template: "t", SourceField: "s", TargetField: "f", Confidence: 1, UsageCount: 1})
		}()
	}

	wg.Wait()

	all, err := s.List(ctx, "m", "t", 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)

	got, err := s.Lookup(ctx, "m", "t", "f")
	require.NoError(t, err)
	assert.Equal(t, int64(20), got.UsageCount)
}
