package harvest

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pipeline runs one identifier through fetch, persist and summarise. It holds
// no mutable state and is safe for concurrent use.
type Pipeline struct {
	processor *Processor
	sink      *ResultSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline constructs a Pipeline.
func NewPipeline(processor *Processor, sink *ResultSink, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		processor: processor,
		sink:      sink,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle processes and persists identifier.
func (p *Pipeline) Handle(ctx context.Context, identifier string) Result {
	start := p.now()
	out := p.processor.Process(ctx, identifier)

	res := Result{Identifier: identifier, Kind: out.Kind, Detail: out.Detail}
	if out.OK() {
		key, written, err := p.sink.Persist(ctx, out)
		switch {
		case err != nil:
			p.logger.Warn("persist failed", zap.String("identifier", identifier), zap.Error(err))
			res.Kind = KindUnexpected
			res.Detail = "Unexpected: " + err.Error()
		case written:
			res.Key = key
		}
	}
	res.Duration = p.now().Sub(start)
	return res
}
