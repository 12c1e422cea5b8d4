// Package pool runs a batch of tasks across a fixed set of workers and
// delivers results in completion order. How a task executes (in-process
// goroutine or child process) is delegated to an Executor, so the shared
// memory and isolated strategies share one orchestration loop.
package pool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
)

// Task is one unit of batch work. Both fields are plain values so a task can
// be serialised across a process boundary.
type Task struct {
	Identifier string `json:"identifier"`
	// Location is the output location the item is persisted to.
	Location string `json:"location"`
}

// Executor runs tasks for a single worker. A worker calls Execute
// sequentially, so implementations need not be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, task Task) (harvest.Result, error)
	Close() error
}

// ExecutorFactory creates the executor owned by worker id. Executors live
// for the whole batch and are closed once the worker drains the task queue.
type ExecutorFactory func(ctx context.Context, id int) (Executor, error)

// Reporter receives each result as it completes. It is only ever called from
// the goroutine running Pool.Run.
type Reporter interface {
	Report(res harvest.Result)
}

// Config controls a Pool.
type Config struct {
	// Size is the number of workers. Values < 1 are treated as 1.
	Size int
	// Location is stamped onto every task.
	Location string
	Logger   *zap.Logger
}

// Pool fans tasks out to Size workers.
type Pool struct {
	cfg     Config
	factory ExecutorFactory
	logger  *zap.Logger
}

// New constructs a Pool.
func New(cfg Config, factory ExecutorFactory) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{cfg: cfg, factory: factory, logger: logger}
}

// Size returns the worker count.
func (p *Pool) Size() int {
	return p.cfg.Size
}

// Run executes one task per identifier and reports every result in
// completion order. Each identifier yields exactly one result; executor
// errors and panics become orchestration faults for that identifier only.
func (p *Pool) Run(ctx context.Context, identifiers []string, reporter Reporter) harvest.Aggregate {
	var agg harvest.Aggregate
	if len(identifiers) == 0 {
		return agg
	}

	tasks := make(chan Task, len(identifiers))
	for _, id := range identifiers {
		tasks <- Task{Identifier: id, Location: p.cfg.Location}
	}
	close(tasks)

	workers := p.cfg.Size
	if workers > len(identifiers) {
		workers = len(identifiers)
	}

	results := make(chan harvest.Result)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.work(ctx, id, tasks, results)
		}(i)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		agg.Add(res)
		if reporter != nil {
			reporter.Report(res)
		}
	}
	return agg
}

func (p *Pool) work(ctx context.Context, id int, tasks <-chan Task, results chan<- harvest.Result) {
	logger := p.logger.With(zap.Int("worker", id))

	exec, err := p.newExecutor(ctx, id)
	if err != nil {
		logger.Error("executor init failed", zap.Error(err))
	}
	defer func() {
		if exec == nil {
			return
		}
		if cerr := exec.Close(); cerr != nil {
			logger.Warn("executor close failed", zap.Error(cerr))
		}
	}()

	for task := range tasks {
		switch {
		case ctx.Err() != nil:
			results <- harvest.Fault(task.Identifier, fmt.Sprintf("canceled: %v", ctx.Err()))
		case exec == nil:
			results <- harvest.Fault(task.Identifier, fmt.Sprintf("worker unavailable: %v", err))
		default:
			results <- p.execute(ctx, logger, exec, task)
		}
	}
}

func (p *Pool) newExecutor(ctx context.Context, id int) (exec Executor, err error) {
	defer func() {
		if r := recover(); r != nil {
			exec, err = nil, fmt.Errorf("executor factory panicked: %v", r)
		}
	}()
	if p.factory == nil {
		return nil, fmt.Errorf("no executor factory configured")
	}
	return p.factory(ctx, id)
}

func (p *Pool) execute(ctx context.Context, logger *zap.Logger, exec Executor, task Task) (res harvest.Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.String("identifier", task.Identifier), zap.Any("panic", r))
			res = harvest.Fault(task.Identifier, fmt.Sprintf("worker error: panic: %v", r))
		}
	}()

	res, err := exec.Execute(ctx, task)
	if err != nil {
		logger.Warn("task failed in executor", zap.String("identifier", task.Identifier), zap.Error(err))
		return harvest.Fault(task.Identifier, fmt.Sprintf("worker error: %v", err))
	}
	// A result always belongs to the task that was submitted.
	res.Identifier = task.Identifier
	return res
}
