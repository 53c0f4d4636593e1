package domain

import (
	"time"

	"github.com/gafferworks/gaffer/internal/constants"
)

// TransitionRecord is one entry in the append-only transition history.
// The history's insertion order is the authoritative audit trail: records
// are never reordered or mutated in place.
//
// Example JSON representation:
//
//	{
//	    "from_status": "under_review",
//	    "to_status": "approved",
//	    "event": "review_received",
//	    "timestamp": "2026-03-01T14:02:11Z",
//	    "duration": 184000
//	}
type TransitionRecord struct {
	// FromStatus is the state before the transition (nil for the first
	// transition out of no-state).
	FromStatus *constants.WorkflowStatus `json:"from_status,omitempty"`

	// ToStatus is the state after the transition.
	ToStatus constants.WorkflowStatus `json:"to_status"`

	// Event names the event that caused the transition.
	Event string `json:"event"`

	// Timestamp is the wall-clock time the transition was applied.
	Timestamp time.Time `json:"timestamp"`

	// Duration is how long the machine took to process the event.
	Duration time.Duration `json:"duration"`
}
