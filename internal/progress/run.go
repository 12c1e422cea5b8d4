package progress

import (
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
)

// Run tracks one batch and emits its lifecycle events. It satisfies
// pool.Reporter, so strategies report straight into it.
type Run struct {
	id      [16]byte
	mode    string
	emitter Emitter
	now     func() time.Time
	started time.Time
}

// NewRun creates a run with a fresh time-ordered UUID.
func NewRun(emitter Emitter, mode string) *Run {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Run{
		id:      UUIDToBytes(id),
		mode:    mode,
		emitter: emitter,
		now:     time.Now,
	}
}

// ID returns the run identifier.
func (r *Run) ID() uuid.UUID {
	return uuid.UUID(r.id)
}

// Start records the start time and emits RUN_START.
func (r *Run) Start(term, location string, total, workers int) {
	r.started = r.now()
	r.emit(Event{Stage: StageRunStart, Term: term, Location: location, Total: total, Workers: workers})
}

// Report emits ITEM_DONE for one result.
func (r *Run) Report(res harvest.Result) {
	r.emit(Event{Stage: StageItemDone, Result: res, Dur: max(res.Duration, 0)})
}

// Finish emits RUN_DONE and returns the wall time since Start.
func (r *Run) Finish(tally harvest.Aggregate) time.Duration {
	elapsed := r.now().Sub(r.started)
	r.emit(Event{Stage: StageRunDone, Tally: tally, Dur: elapsed})
	return elapsed
}

func (r *Run) emit(evt Event) {
	if r.emitter == nil {
		return
	}
	evt.RunID = r.id
	evt.Mode = r.mode
	evt.TS = r.now().UTC()
	r.emitter.Emit(evt)
}
