// Package signal provides shutdown handling for gaffer CLI commands.
//
// Import rules:
//   - CAN import: std lib only
//   - MUST NOT import: internal packages (to avoid circular dependencies)
package signal

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler manages two-stage shutdown for a running scheduler. The first
// SIGINT or SIGTERM cancels the context so the coordination loop can
// checkpoint and unwind; a second signal closes the Forced channel so
// the command can exit immediately instead of waiting on the unwind.
type Handler struct {
	ctx    context.Context //nolint:containedctx // handler manages the context lifecycle
	cancel context.CancelFunc

	interrupted chan struct{}
	forced      chan struct{}
	done        chan struct{}

	interruptOnce sync.Once
	forceOnce     sync.Once
	stopOnce      sync.Once

	sigChan chan os.Signal
}

// NewHandler creates a handler listening for SIGINT and SIGTERM.
//
// Usage:
//
//	h := signal.NewHandler(ctx)
//	defer h.Stop()
//	ctx = h.Context()
//
//	// ... run with ctx; it cancels on the first signal ...
//
//	select {
//	case <-h.Forced():
//	    // Second signal, bail out now.
//	default:
//	}
func NewHandler(parent context.Context) *Handler {
	ctx, cancel := context.WithCancel(parent)
	h := &Handler{
		ctx:         ctx,
		cancel:      cancel,
		interrupted: make(chan struct{}),
		forced:      make(chan struct{}),
		done:        make(chan struct{}),
		// Buffer of 1 so signal.Notify never drops a signal while the
		// handler is busy. See: https://pkg.go.dev/os/signal#Notify
		sigChan: make(chan os.Signal, 1),
	}

	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM)
	go h.listen()

	return h
}

// Context returns the cancellable context. It cancels on the first
// signal; use it for all interruptible work.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// Interrupted returns a channel that closes on the first signal. Use it
// to distinguish an operator interrupt from other context cancellation.
func (h *Handler) Interrupted() <-chan struct{} {
	return h.interrupted
}

// Forced returns a channel that closes on the second signal, when the
// operator gave up waiting on the graceful unwind.
func (h *Handler) Forced() <-chan struct{} {
	return h.forced
}

// Stop cleans up the handler and stops listening for signals. Always
// call this when done to prevent resource leaks.
func (h *Handler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigChan)
		close(h.done) // tells listen() to exit before sigChan is abandoned
		h.cancel()
	})
}

// handleSignal processes one received signal: the first interrupts, the
// second forces.
func (h *Handler) handleSignal() {
	interrupted := false
	h.interruptOnce.Do(func() {
		h.cancel()
		close(h.interrupted)
		interrupted = true
	})
	if interrupted {
		return
	}
	h.forceOnce.Do(func() {
		close(h.forced)
	})
}

// listen waits for signals until Stop() is called. It keeps looping
// after the first signal so the escalation to forced can be observed.
func (h *Handler) listen() {
	for {
		select {
		case <-h.done:
			return
		case <-h.sigChan:
			h.handleSignal()
		}
	}
}
