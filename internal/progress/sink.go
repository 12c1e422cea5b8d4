package progress

import "context"

// Sink consumes batches of progress events. Consume is never called
// concurrently for a single Hub.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events.
type Emitter interface {
	Emit(evt Event)
}
