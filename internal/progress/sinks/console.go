package sinks

import (
	"context"
	"fmt"
	"io"

	"github.com/JakeFAU/topic-harvester/internal/progress"
)

// ConsoleSink prints the human-facing run output: the processing banner, one
// status line per item, and the closing summary.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink writes to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

// Consume renders each event.
func (s *ConsoleSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		if err := s.render(evt); err != nil {
			return fmt.Errorf("write console: %w", err)
		}
	}
	return nil
}

func (s *ConsoleSink) render(evt progress.Event) error {
	var err error
	switch evt.Stage {
	case progress.StageRunStart:
		_, err = fmt.Fprintf(s.w, "Processing %d page(s) → saving .txt files to %s\n\n", evt.Total, evt.Location)
	case progress.StageItemDone:
		err = StatusLine(s.w, evt)
	case progress.StageRunDone:
		_, err = fmt.Fprintf(s.w, "\nSummary:\n  wrote:   %d\n  skipped: %d\n  elapsed: %.2f s\n",
			evt.Tally.OK, evt.Tally.Skipped, evt.Dur.Seconds())
	}
	return err
}

// StatusLine writes the single line describing one item outcome.
func StatusLine(w io.Writer, evt progress.Event) error {
	res := evt.Result
	var err error
	switch {
	case res.OK() && res.Key != "":
		_, err = fmt.Fprintf(w, "✓ wrote %s\n", res.Key)
	case res.OK():
		_, err = fmt.Fprintf(w, "✓ wrote %s\n", res.Identifier)
	default:
		_, err = fmt.Fprintf(w, "– skipped %s (%s)\n", res.Identifier, res.Detail)
	}
	return err
}

// Close implements progress.Sink.
func (s *ConsoleSink) Close(context.Context) error {
	return nil
}
