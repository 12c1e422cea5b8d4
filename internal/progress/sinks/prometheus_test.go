package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/progress"
)

// TestPrometheusSinkRecordsMetrics ensures counters and histograms are incremented from events.
func TestPrometheusSinkRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	runID := progress.UUIDToBytes(uuid.New())
	now := time.Now()
	batch := []progress.Event{
		{RunID: runID, TS: now, Stage: progress.StageRunStart, Mode: "procs", Total: 3, Workers: 4},
		{RunID: runID, TS: now, Stage: progress.StageItemDone, Mode: "procs",
			Result: harvest.Result{Identifier: "A", Key: "A.txt"}, Dur: 200 * time.Millisecond},
		{RunID: runID, TS: now, Stage: progress.StageItemDone, Mode: "procs",
			Result: harvest.Result{Identifier: "B", Kind: harvest.KindTimeout}, Dur: time.Second},
		{RunID: runID, TS: now, Stage: progress.StageItemDone, Mode: "procs",
			Result: harvest.Fault("crash", "worker error")},
		{RunID: runID, TS: now, Stage: progress.StageRunDone, Mode: "procs",
			Tally: harvest.Aggregate{OK: 1, Skipped: 2}, Dur: 3 * time.Second},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted.WithLabelValues("procs")))
	require.Equal(t, 4.0, testutil.ToFloat64(sink.workers.WithLabelValues("procs")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.items.WithLabelValues("procs", "ok", "none")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.items.WithLabelValues("procs", "skipped", "timeout")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.items.WithLabelValues("procs", "skipped", "orchestration_fault")))
	require.Equal(t, 1, testutil.CollectAndCount(sink.itemDuration, "harvester_item_duration_seconds"))
	require.Equal(t, 1, testutil.CollectAndCount(sink.runDuration, "harvester_run_duration_seconds"))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}
