// Package progress defines the events emitted over the life of a harvest run.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart Stage = "RUN_START"
	StageItemDone Stage = "ITEM_DONE"
	StageRunDone  Stage = "RUN_DONE"
)

// Event captures a single milestone of a run.
type Event struct {
	// RunID uniquely identifies a run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Mode is the execution strategy name.
	Mode string

	// Term and Location describe the run; set on RUN_START.
	Term     string
	Location string
	Total    int
	// Workers is the concurrency the strategy actually runs with.
	Workers int

	// Result is set on ITEM_DONE.
	Result harvest.Result

	// Tally is set on RUN_DONE.
	Tally harvest.Aggregate
	// Dur is the item duration on ITEM_DONE and the run wall time on RUN_DONE.
	Dur time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart:
		if e.Total < 0 {
			return errors.New("run start requires a non-negative total")
		}
		if e.Workers < 0 {
			return errors.New("run start requires a non-negative worker count")
		}
	case StageItemDone, StageRunDone:
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
