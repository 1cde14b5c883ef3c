// Package event carries stage-transition progress events from the workflow
// core to whoever is listening (a CLI printer, a web UI). The core publishes
// and moves on: delivery is non-blocking and the pipeline never depends on
// a listener being present.
package event

import "time"

// Status is the lifecycle phase of a stage transition.
type Status string

// Stage transition statuses.
const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress is one stage-transition event.
type Progress struct {
	// RunID identifies the pipeline run this event belongs to.
	RunID string `json:"run_id"`

	// Stage is the stage name, e.g. "plan", "write_sections".
	Stage string `json:"stage"`

	// Status is started, completed, or failed.
	Status Status `json:"status"`

	// Err carries the failure message when Status is failed.
	Err string `json:"err,omitempty"`

	// Timestamp is when the transition occurred.
	Timestamp time.Time `json:"timestamp"`
}

// Emitter receives progress events. Implementations must not block: the
// workflow publishes from its coordinating goroutine.
type Emitter interface {
	Emit(p Progress)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Progress)

// Emit implements Emitter.
func (f EmitterFunc) Emit(p Progress) {
	f(p)
}

// Discard is an Emitter that drops all events.
var Discard Emitter = EmitterFunc(func(Progress) {})
