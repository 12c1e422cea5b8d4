package strategy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/pool"
)

// Sequential handles identifiers one at a time, in input order.
type Sequential struct {
	pipeline *harvest.Pipeline
	reporter pool.Reporter
	logger   *zap.Logger
}

// Mode implements Strategy.
func (s *Sequential) Mode() Mode { return ModeSequential }

// Workers is always 1.
func (s *Sequential) Workers() int { return 1 }

// Run implements Strategy.
func (s *Sequential) Run(ctx context.Context, identifiers []string) harvest.Aggregate {
	var agg harvest.Aggregate
	for _, id := range identifiers {
		var res harvest.Result
		if err := ctx.Err(); err != nil {
			res = harvest.Fault(id, fmt.Sprintf("canceled: %v", err))
		} else {
			res = s.handle(ctx, id)
		}
		agg.Add(res)
		if s.reporter != nil {
			s.reporter.Report(res)
		}
	}
	return agg
}

func (s *Sequential) handle(ctx context.Context, id string) (res harvest.Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("item panicked", zap.String("identifier", id), zap.Any("panic", r))
			res = harvest.Fault(id, fmt.Sprintf("panic: %v", r))
		}
	}()
	return s.pipeline.Handle(ctx, id)
}
