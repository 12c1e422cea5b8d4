// Package strategy selects how a batch of identifiers is pushed through the
// harvest pipeline: one at a time, across a goroutine pool sharing one
// pipeline, or across a pool of isolated worker processes.
package strategy

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/isolate"
	"github.com/JakeFAU/topic-harvester/internal/pool"
)

// Mode names an execution strategy.
type Mode string

const (
	ModeSequential Mode = "seq"
	ModeThreads    Mode = "threads"
	ModeProcs      Mode = "procs"
)

const maxThreadWorkers = 32

// Modes lists every supported mode.
func Modes() []Mode {
	return []Mode{ModeSequential, ModeThreads, ModeProcs}
}

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want seq, threads or procs)", s)
}

// DefaultWorkers is the pool size used when no worker count is given.
func DefaultWorkers(mode Mode) int {
	switch mode {
	case ModeThreads:
		return min(maxThreadWorkers, runtime.NumCPU()+4)
	case ModeProcs:
		return runtime.NumCPU()
	default:
		return 1
	}
}

// Strategy runs a batch. Every identifier produces exactly one reported
// result and Run never panics.
type Strategy interface {
	Run(ctx context.Context, identifiers []string) harvest.Aggregate
	Mode() Mode
	// Workers is the concurrency the batch runs with.
	Workers() int
}

// Options configures New.
type Options struct {
	Mode Mode
	// Workers overrides DefaultWorkers when > 0. Ignored for ModeSequential.
	Workers int
	// Location is the output location handed to worker processes.
	Location string
	// Pipeline handles items in-process. Required for seq and threads.
	Pipeline *harvest.Pipeline
	// Worker starts a worker process. Required for procs.
	Worker   isolate.Command
	Reporter pool.Reporter
	Logger   *zap.Logger
}

// New builds the strategy for opts.Mode.
func New(opts Options) (Strategy, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	logger := opts.Logger.With(zap.String("mode", string(opts.Mode)))

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers(opts.Mode)
	}

	switch opts.Mode {
	case ModeSequential:
		if opts.Pipeline == nil {
			return nil, fmt.Errorf("%s mode requires a pipeline", opts.Mode)
		}
		return &Sequential{pipeline: opts.Pipeline, reporter: opts.Reporter, logger: logger}, nil
	case ModeThreads:
		if opts.Pipeline == nil {
			return nil, fmt.Errorf("%s mode requires a pipeline", opts.Mode)
		}
		p := pool.New(pool.Config{Size: workers, Location: opts.Location, Logger: logger}, inProcess(opts.Pipeline))
		return &pooled{mode: opts.Mode, pool: p, reporter: opts.Reporter}, nil
	case ModeProcs:
		if opts.Worker.Path == "" {
			return nil, fmt.Errorf("%s mode requires a worker command", opts.Mode)
		}
		p := pool.New(pool.Config{Size: workers, Location: opts.Location, Logger: logger}, isolate.Factory(opts.Worker, logger))
		return &pooled{mode: opts.Mode, pool: p, reporter: opts.Reporter}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.Mode)
	}
}

type pooled struct {
	mode     Mode
	pool     *pool.Pool
	reporter pool.Reporter
}

func (s *pooled) Mode() Mode { return s.mode }

// Workers reports the pool size.
func (s *pooled) Workers() int { return s.pool.Size() }

func (s *pooled) Run(ctx context.Context, identifiers []string) harvest.Aggregate {
	return s.pool.Run(ctx, identifiers, s.reporter)
}

// inProcess hands every worker the same pipeline.
func inProcess(p *harvest.Pipeline) pool.ExecutorFactory {
	return func(context.Context, int) (pool.Executor, error) {
		return pipelineExecutor{pipeline: p}, nil
	}
}

type pipelineExecutor struct {
	pipeline *harvest.Pipeline
}

func (e pipelineExecutor) Execute(ctx context.Context, task pool.Task) (harvest.Result, error) {
	return e.pipeline.Handle(ctx, task.Identifier), nil
}

func (pipelineExecutor) Close() error { return nil }
