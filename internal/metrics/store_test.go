package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "metrics_test.db"))
	require.NoError(t, err, "Open should not return an error")
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordMetricUpdatesAggregate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	durations := []float64{1.0, 6.0, 0.5}
	successes := []bool{true, false, true}
	for i := range durations {
		store.RecordMetric(ctx, Record{
			Operation: "qa.search",
			Duration:  durations[i],
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Success:   successes[i],
			Metadata:  map[string]any{"function": "qa.search", "args_count": 1},
		})
	}

	stats := store.UsageStats(ctx)
	require.Len(t, stats, 1, "three records of one operation should produce one aggregate row")
	assert.Equal(t, "qa.search", stats[0].OperationType)
	assert.Equal(t, int64(3), stats[0].Count)
	assert.InDelta(t, 2.5, stats[0].AvgDuration, 1e-9)
	assert.InDelta(t, 2.0/3.0, stats[0].SuccessRate, 1e-9)
	assert.Equal(t, base.Add(2*time.Minute), stats[0].LastExecution)

	recs := store.RecentMetrics(ctx, 0)
	assert.Len(t, recs, 3, "raw log should keep every record")
}

func TestStore_UsageStatsOrderedByCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		store.RecordMetric(ctx, Record{Operation: "qa.search", Duration: 0.2, Timestamp: now, Success: true})
	}
	store.RecordMetric(ctx, Record{Operation: "qa.upload_file", Duration: 1.5, Timestamp: now, Success: true})

	stats := store.UsageStats(ctx)
	require.Len(t, stats, 2)
	assert.Equal(t, "qa.search", stats[0].OperationType, "busiest operation should come first")
	assert.Equal(t, int64(3), stats[0].Count)
	assert.Equal(t, "qa.upload_file", stats[1].OperationType)
	assert.Equal(t, int64(1), stats[1].Count)
}

func TestStore_RecentMetricsOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	// case 1: newest first, including sub-second gaps
	offsets := []time.Duration{
		0,
		500 * time.Millisecond,
		550 * time.Millisecond,
		2 * time.Second,
	}
	for i, off := range offsets {
		store.RecordMetric(ctx, Record{
			Operation: "qa.search",
			Duration:  float64(i),
			Timestamp: base.Add(off),
			Success:   true,
		})
	}

	recs := store.RecentMetrics(ctx, 0)
	require.Len(t, recs, 4)
	assert.Equal(t, base.Add(2*time.Second), recs[0].Timestamp)
	assert.Equal(t, base.Add(550*time.Millisecond), recs[1].Timestamp)
	assert.Equal(t, base.Add(500*time.Millisecond), recs[2].Timestamp)
	assert.Equal(t, base, recs[3].Timestamp)

	// case 2: limit truncates after ordering
	recs = store.RecentMetrics(ctx, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, base.Add(2*time.Second), recs[0].Timestamp)
	assert.Equal(t, base.Add(550*time.Millisecond), recs[1].Timestamp)
}

func TestStore_MetadataRoundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.RecordMetric(ctx, Record{
		Operation: "qa.upload_file",
		Duration:  0.4,
		Timestamp: time.Now(),
		Success:   false,
		Metadata:  map[string]any{"function": "qa.upload_file", "args_count": 1, "error": "file not found"},
	})
	store.RecordMetric(ctx, Record{
		Operation: "qa.upload_file",
		Duration:  0.1,
		Timestamp: time.Now().Add(time.Second),
		Success:   true,
	})

	recs := store.RecentMetrics(ctx, 0)
	require.Len(t, recs, 2)

	assert.Nil(t, recs[0].Metadata, "records without metadata should come back nil")

	require.NotNil(t, recs[1].Metadata)
	assert.Equal(t, "qa.upload_file", recs[1].Metadata["function"])
	assert.EqualValues(t, 1, recs[1].Metadata["args_count"])
	assert.Equal(t, "file not found", recs[1].Metadata["error"])
}

func TestStore_SwallowsFailuresAfterClose(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	ctx := context.Background()

	// Writes must not panic or propagate; reads degrade to empty.
	store.RecordMetric(ctx, Record{Operation: "qa.search", Duration: 0.1, Timestamp: time.Now(), Success: true})
	assert.Empty(t, store.UsageStats(ctx))
	assert.Empty(t, store.RecentMetrics(ctx, 10))
}

func TestStore_ContextCancelled(t *testing.T) {
	store := newTestStore(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	store.RecordMetric(cancelled, Record{Operation: "qa.search", Duration: 0.1, Timestamp: time.Now(), Success: true})
	assert.Empty(t, store.UsageStats(cancelled))

	// Nothing should have been written by the cancelled call.
	assert.Empty(t, store.UsageStats(context.Background()))
	assert.Empty(t, store.RecentMetrics(context.Background(), 10))
}

func TestStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))

	require.NoError(t, store.Close())
	assert.Error(t, store.Ping(context.Background()))
}
