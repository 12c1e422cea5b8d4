// Package isolate runs harvest tasks inside child processes. Tasks and
// results cross the boundary as newline-delimited JSON over the child's
// stdin and stdout; nothing else is shared.
package isolate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/pool"
)

// Handler handles one decoded task inside a worker process.
type Handler interface {
	Handle(ctx context.Context, task pool.Task) harvest.Result
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, task pool.Task) harvest.Result

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, task pool.Task) harvest.Result {
	return f(ctx, task)
}

// Serve reads tasks from r and writes one result per task to w until r is
// exhausted. It returns nil on a clean EOF.
func Serve(ctx context.Context, r io.Reader, w io.Writer, h Handler) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		var task pool.Task
		if err := dec.Decode(&task); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode task: %w", err)
		}
		res := h.Handle(ctx, task)
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("encode result for %q: %w", task.Identifier, err)
		}
	}
}

// Opener builds the pipeline that persists into location, plus a function
// releasing whatever it holds.
type Opener func(ctx context.Context, location string) (*harvest.Pipeline, func() error, error)

// LocationHandler dispatches tasks to one pipeline per output location,
// opening each location on first use.
type LocationHandler struct {
	open   Opener
	logger *zap.Logger

	mu        sync.Mutex
	pipelines map[string]*harvest.Pipeline
	closers   []func() error
}

// NewLocationHandler constructs a LocationHandler.
func NewLocationHandler(open Opener, logger *zap.Logger) *LocationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocationHandler{
		open:      open,
		logger:    logger,
		pipelines: make(map[string]*harvest.Pipeline),
	}
}

// Handle runs task through the pipeline for its location.
func (h *LocationHandler) Handle(ctx context.Context, task pool.Task) harvest.Result {
	p, err := h.pipeline(ctx, task.Location)
	if err != nil {
		h.logger.Error("open location failed", zap.String("location", task.Location), zap.Error(err))
		return harvest.Result{
			Identifier: task.Identifier,
			Kind:       harvest.KindUnexpected,
			Detail:     "Unexpected: " + err.Error(),
		}
	}
	return p.Handle(ctx, task.Identifier)
}

func (h *LocationHandler) pipeline(ctx context.Context, location string) (*harvest.Pipeline, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.pipelines[location]; ok {
		return p, nil
	}
	p, closeFn, err := h.open(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", location, err)
	}
	h.pipelines[location] = p
	if closeFn != nil {
		h.closers = append(h.closers, closeFn)
	}
	return p, nil
}

// Close releases every opened location.
func (h *LocationHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var errs []error
	for _, fn := range h.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	h.pipelines = make(map[string]*harvest.Pipeline)
	return errors.Join(errs...)
}
