package sinks

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/harvest/harvesttest"
	"github.com/JakeFAU/topic-harvester/internal/progress"
	"github.com/JakeFAU/topic-harvester/internal/storage/memory"
	"github.com/JakeFAU/topic-harvester/internal/strategy"
)

func TestConsoleSinkRendersRun(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	sink := NewConsoleSink(&out)
	batch := []progress.Event{
		{Stage: progress.StageRunStart, Total: 3, Location: "/tmp/wiki_dl"},
		{Stage: progress.StageItemDone, Result: harvest.Result{Identifier: "AC/DC", Key: "AC_DC.txt"}},
		{Stage: progress.StageItemDone, Result: harvest.Result{Identifier: "B", Kind: harvest.KindTimeout, Detail: "Timeout: slow"}},
		{Stage: progress.StageItemDone, Result: harvest.Fault("C", "worker error: exit status 3")},
		{Stage: progress.StageRunDone, Tally: harvest.Aggregate{OK: 1, Skipped: 2}, Dur: 1234 * time.Millisecond},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	want := "Processing 3 page(s) → saving .txt files to /tmp/wiki_dl\n\n" +
		"✓ wrote AC_DC.txt\n" +
		"– skipped B (Timeout: slow)\n" +
		"– skipped C (worker error: exit status 3)\n" +
		"\nSummary:\n  wrote:   1\n  skipped: 2\n  elapsed: 1.23 s\n"
	assert.Equal(t, want, out.String())
}

func TestConsoleSinkOneLinePerIdentifier(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	hub := progress.NewHub(progress.Config{}, NewConsoleSink(&out))
	run := progress.NewRun(hub, string(strategy.ModeSequential))

	pipeline := harvest.NewPipeline(
		harvest.NewProcessor(harvesttest.Scenario(), nil),
		harvest.NewResultSink(memory.NewBlobStore(), nil),
		nil,
	)
	s, err := strategy.New(strategy.Options{Mode: strategy.ModeSequential, Pipeline: pipeline, Reporter: run})
	require.NoError(t, err)

	tally := s.Run(context.Background(), []string{"A", "", "C"})
	require.NoError(t, hub.Close(context.Background()))

	assert.Equal(t, harvest.Aggregate{OK: 2, Skipped: 1}, tally)
	text := out.String()
	assert.Equal(t, 3, strings.Count(text, "✓ wrote ")+strings.Count(text, "– skipped "))
	assert.Contains(t, text, "– skipped  (")
}

func TestLogSinkFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))

	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Stage: progress.StageRunStart, Mode: "threads", Total: 3, Workers: 6},
		{Stage: progress.StageItemDone, Mode: "seq", Result: harvest.Result{Identifier: "B", Kind: harvest.KindNotFound, Detail: "PageError: B"}},
		{Stage: progress.StageRunDone, Mode: "seq", Tally: harvest.Aggregate{OK: 0, Skipped: 1}},
	}))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "run started", entries[0].Message)
	assert.EqualValues(t, 6, entries[0].ContextMap()["workers"])
	assert.Equal(t, "item skipped", entries[1].Message)
	assert.Equal(t, "not_found", entries[1].ContextMap()["kind"])
	assert.Equal(t, "run finished", entries[2].Message)
	assert.EqualValues(t, 1, entries[2].ContextMap()["skipped"])
}
