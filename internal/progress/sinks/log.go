package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/progress"
)

// LogSink emits structured logs for each run event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunUUID().String()),
			zap.String("mode", evt.Mode),
		}
		switch evt.Stage {
		case progress.StageRunStart:
			s.logger.Info("run started", append(fields,
				zap.String("term", evt.Term),
				zap.String("location", evt.Location),
				zap.Int("total", evt.Total),
				zap.Int("workers", evt.Workers),
			)...)
		case progress.StageItemDone:
			fields = append(fields,
				zap.String("identifier", evt.Result.Identifier),
				zap.Duration("dur", evt.Dur),
			)
			if evt.Result.OK() {
				s.logger.Debug("item written", append(fields, zap.String("key", evt.Result.Key))...)
			} else {
				s.logger.Info("item skipped", append(fields,
					zap.String("kind", evt.Result.Kind.Label()),
					zap.String("detail", evt.Result.Detail),
				)...)
			}
		case progress.StageRunDone:
			s.logger.Info("run finished", append(fields,
				zap.Int("ok", evt.Tally.OK),
				zap.Int("skipped", evt.Tally.Skipped),
				zap.Duration("elapsed", evt.Dur),
			)...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
