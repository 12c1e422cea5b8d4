package harvest

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
)

// Processor fetches one identifier and converts every failure into data.
type Processor struct {
	source ContentSource
	logger *zap.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(source ContentSource, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{source: source, logger: logger}
}

// Process fetches identifier and returns its Outcome. It never returns an
// error and recovers panics raised by the content source.
func (p *Processor) Process(ctx context.Context, identifier string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("content source panicked", zap.String("identifier", identifier), zap.Any("panic", r))
			out = Outcome{
				Identifier:    identifier,
				CanonicalName: identifier,
				Kind:          KindUnexpected,
				Detail:        fmt.Sprintf("Unexpected: panic: %v", r),
			}
		}
	}()

	if p.source == nil {
		return Outcome{
			Identifier:    identifier,
			CanonicalName: identifier,
			Kind:          KindUnexpected,
			Detail:        "Unexpected: no content source configured",
		}
	}

	page, err := p.source.Fetch(ctx, identifier)
	if err != nil {
		kind, detail := Classify(err)
		p.logger.Debug("fetch failed",
			zap.String("identifier", identifier),
			zap.String("kind", kind.Label()),
			zap.Error(err),
		)
		return Outcome{
			Identifier:    identifier,
			CanonicalName: identifier,
			Kind:          kind,
			Detail:        detail,
		}
	}

	name := page.Title
	if name == "" {
		name = identifier
	}
	payload := page.References
	if payload == nil {
		payload = []string{}
	}
	return Outcome{
		Identifier:    identifier,
		CanonicalName: name,
		Payload:       payload,
	}
}

// Classify maps a content-source error onto an ErrorKind and a human-readable
// detail string.
func Classify(err error) (ErrorKind, string) {
	var netErr net.Error
	switch {
	case err == nil:
		return KindNone, ""
	case errors.Is(err, ErrAmbiguous):
		return KindAmbiguousMatch, "Disambiguation: " + err.Error()
	case errors.Is(err, ErrNotFound):
		return KindNotFound, "PageError: " + err.Error()
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return KindTimeout, "Timeout: " + err.Error()
	default:
		return KindUnexpected, "Unexpected: " + err.Error()
	}
}
