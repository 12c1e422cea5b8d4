package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/topic-harvester/internal/progress"
)

// PrometheusSink exports harvest run metrics via Prometheus.
type PrometheusSink struct {
	runsStarted  *prometheus.CounterVec
	workers      *prometheus.GaugeVec
	items        *prometheus.CounterVec
	itemDuration *prometheus.HistogramVec
	runDuration  *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_runs_started_total",
			Help: "Runs started partitioned by execution mode.",
		}, []string{"mode"}),
		workers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "harvester_run_workers",
			Help: "Concurrency of the most recent run partitioned by execution mode.",
		}, []string{"mode"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "harvester_items_total",
			Help: "Processed items partitioned by mode, result and failure kind.",
		}, []string{"mode", "result", "kind"}),
		itemDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_item_duration_seconds",
			Help:    "Per-item pipeline latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"mode"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "harvester_run_duration_seconds",
			Help:    "Wall time per run.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.workers,
		s.items,
		s.itemDuration,
		s.runDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		mode := evt.Mode
		if mode == "" {
			mode = "unknown"
		}
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.WithLabelValues(mode).Inc()
			s.workers.WithLabelValues(mode).Set(float64(evt.Workers))
		case progress.StageItemDone:
			result := "ok"
			if !evt.Result.OK() {
				result = "skipped"
			}
			s.items.WithLabelValues(mode, result, evt.Result.Kind.Label()).Inc()
			if evt.Dur > 0 {
				s.itemDuration.WithLabelValues(mode).Observe(evt.Dur.Seconds())
			}
		case progress.StageRunDone:
			s.runDuration.WithLabelValues(mode).Observe(evt.Dur.Seconds())
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
