package coordinator

import (
	"fmt"
	"sync"

	"github.com/gafferworks/gaffer/internal/constants"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// SlotTracker bounds how many issues may be worked concurrently. One
// coordinator drives a single workflow today, so the tracker is mostly
// bookkeeping, but the capacity check keeps a future multi-workflow
// formation from over-committing a process.
//
// Safe for concurrent use.
type SlotTracker struct {
	mu sync.Mutex

	capacity int
	held     map[int]struct{}
}

// NewSlotTracker creates a tracker with the given capacity. Zero or
// negative capacities take the default.
func NewSlotTracker(capacity int) *SlotTracker {
	if capacity <= 0 {
		capacity = constants.DefaultSlotCapacity
	}
	return &SlotTracker{
		capacity: capacity,
		held:     make(map[int]struct{}),
	}
}

// Acquire claims a slot for the issue. Claiming an issue that already
// holds a slot succeeds without consuming another one; a full tracker
// returns ErrSlotsExhausted.
func (t *SlotTracker) Acquire(issueNumber int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.held[issueNumber]; ok {
		return nil
	}
	if len(t.held) >= t.capacity {
		return fmt.Errorf("%w: all %d slots in use", gaffererrors.ErrSlotsExhausted, t.capacity)
	}
	t.held[issueNumber] = struct{}{}
	return nil
}

// Release returns the issue's slot. Releasing an issue that holds no
// slot returns ErrSlotNotHeld.
func (t *SlotTracker) Release(issueNumber int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.held[issueNumber]; !ok {
		return fmt.Errorf("%w: issue #%d", gaffererrors.ErrSlotNotHeld, issueNumber)
	}
	delete(t.held, issueNumber)
	return nil
}

// Held reports whether the issue currently holds a slot.
func (t *SlotTracker) Held(issueNumber int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.held[issueNumber]
	return ok
}

// InUse returns the number of slots currently held.
func (t *SlotTracker) InUse() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.held)
}

// Capacity returns the total number of slots.
func (t *SlotTracker) Capacity() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.capacity
}
