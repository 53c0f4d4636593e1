package recovery

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gafferworks/gaffer/internal/clock"
	"github.com/gafferworks/gaffer/internal/constants"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// Backend performs the real remediation work for the executor. The
// executor decides what to do and how often; the backend does it.
// Production backends shell out to git, test runners, and the forge;
// tests script deterministic outcomes.
type Backend interface {
	// Retry re-attempts the operation that produced the failure. Called
	// once per retry attempt.
	Retry(ctx context.Context, kind ErrorKind, attempt int) error

	// ApplyFix performs the automated fix selected for the failure.
	ApplyFix(ctx context.Context, fix constants.FixKind, kind ErrorKind) error

	// RunFallback switches the work to the simpler approach.
	RunFallback(ctx context.Context, approach constants.FallbackKind, kind ErrorKind) error
}

// NoopBackend reports instant success for every remediation. It is the
// default when no backend is wired, keeping the executor total.
type NoopBackend struct{}

// Retry implements Backend.
func (NoopBackend) Retry(context.Context, ErrorKind, int) error { return nil }

// ApplyFix implements Backend.
func (NoopBackend) ApplyFix(context.Context, constants.FixKind, ErrorKind) error { return nil }

// RunFallback implements Backend.
func (NoopBackend) RunFallback(context.Context, constants.FallbackKind, ErrorKind) error { return nil }

// Compile-time interface check.
var _ Backend = NoopBackend{}

// Attempt is the record of one executed strategy.
//
// Example JSON:
//
//	{
//	  "id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
//	  "category": "test_failure",
//	  "detail": "1 failing tests: t1",
//	  "strategy": "automated_fix",
//	  "success": true,
//	  "attempts": 1,
//	  "started_at": "2026-03-14T09:00:00Z",
//	  "duration": 1200000
//	}
type Attempt struct {
	ID        uuid.UUID                 `json:"id"`
	Category  constants.FailureCategory `json:"category"`
	Detail    string                    `json:"detail"`
	Strategy  constants.StrategyKind    `json:"strategy"`
	Success   bool                      `json:"success"`
	Attempts  int                       `json:"attempts"`
	StartedAt time.Time                 `json:"started_at"`
	Duration  time.Duration             `json:"duration"`
	Error     string                    `json:"error,omitempty"`
}

// Executor runs remediation strategies through a backend and keeps the
// attempt history. Safe for concurrent use.
type Executor struct {
	mu      sync.Mutex
	backend Backend
	clk     clock.Clock
	logger  zerolog.Logger
	history []Attempt
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorClock replaces the wall clock for deterministic durations
// in tests.
func WithExecutorClock(c clock.Clock) ExecutorOption {
	return func(e *Executor) { e.clk = c }
}

// WithExecutorLogger attaches a logger for attempt outcomes.
func WithExecutorLogger(logger zerolog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// NewExecutor builds an executor over the given backend. A nil backend
// falls back to NoopBackend.
func NewExecutor(backend Backend, opts ...ExecutorOption) *Executor {
	if backend == nil {
		backend = NoopBackend{}
	}
	e := &Executor{
		backend: backend,
		clk:     clock.RealClock{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute performs the strategy for the failure and returns the attempt
// record. Backend failures, including panics, are captured in the record;
// they never escape the recovery boundary. Escalate and AbandonAndReset
// always report Success false, because neither resolves the underlying
// failure autonomously.
func (e *Executor) Execute(ctx context.Context, kind ErrorKind, strategy Strategy) Attempt {
	if kind == nil {
		kind = StateInconsistency{Detail: "missing failure kind"}
	}
	if strategy == nil {
		strategy = Escalate{Severity: constants.SeverityHigh}
	}

	began := e.clk.Now()
	attempt := Attempt{
		ID:        uuid.New(),
		Category:  kind.Category(),
		Detail:    kind.Describe(),
		Strategy:  strategy.Kind(),
		StartedAt: began,
	}

	switch s := strategy.(type) {
	case RetryWithBackoff:
		tries, err := ExecuteWithRetry(ctx, s, &FuncOperation{
			AttemptFunc: func(ctx context.Context, n int) error {
				return e.callBackend(func() error { return e.backend.Retry(ctx, kind, n) })
			},
			ShouldRetryFunc: func(err error) bool { return err != nil },
			OnRetryWaitFunc: func(n int, delay time.Duration) {
				e.logger.Debug().
					Int("attempt", n).
					Dur("delay", delay).
					Str("category", attempt.Category.String()).
					Msg("retry backoff")
			},
		})
		attempt.Attempts = tries
		if err != nil {
			attempt.Error = fmt.Errorf("%w after %d attempts: %w", gaffererrors.ErrMaxRetriesExceeded, tries, err).Error()
		} else {
			attempt.Success = true
		}

	case AutomatedFix:
		attempt.Attempts = 1
		if err := e.callBackend(func() error { return e.backend.ApplyFix(ctx, s.Fix, kind) }); err != nil {
			attempt.Error = fmt.Errorf("%w: %s: %w", gaffererrors.ErrFixFailed, s.Fix, err).Error()
		} else {
			attempt.Success = true
		}

	case Fallback:
		attempt.Attempts = 1
		if err := e.callBackend(func() error { return e.backend.RunFallback(ctx, s.Approach, kind) }); err != nil {
			attempt.Error = err.Error()
		} else {
			attempt.Success = true
		}

	case Escalate:
		attempt.Error = fmt.Errorf("%w at %s severity", gaffererrors.ErrEscalated, s.Severity).Error()
		e.logger.Warn().
			Str("category", attempt.Category.String()).
			Str("severity", s.Severity.String()).
			Str("detail", attempt.Detail).
			Msg("failure escalated for human review")

	case AbandonAndReset:
		attempt.Error = s.Describe()
	}

	attempt.Duration = e.clk.Now().Sub(began)

	e.mu.Lock()
	e.history = append(e.history, attempt)
	e.mu.Unlock()

	e.logger.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("category", attempt.Category.String()).
		Str("strategy", attempt.Strategy.String()).
		Bool("success", attempt.Success).
		Int("attempts", attempt.Attempts).
		Dur("duration", attempt.Duration).
		Msg("recovery attempt finished")

	return attempt
}

// callBackend isolates a backend invocation. A panicking backend is
// recorded as a failed attempt, not a crash.
func (e *Executor) callBackend(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("backend panic: %v", r)
		}
	}()
	return fn()
}

// History returns a copy of all attempt records in execution order.
func (e *Executor) History() []Attempt {
	e.mu.Lock()
	defer e.mu.Unlock()

	return slices.Clone(e.history)
}

// Report summarizes the executor's attempt history.
type Report struct {
	TotalAttempts int                               `json:"total_attempts"`
	Successful    int                               `json:"successful"`
	SuccessRate   float64                           `json:"success_rate"`
	AvgDuration   time.Duration                     `json:"avg_duration"`
	ByCategory    map[constants.FailureCategory]int `json:"by_category"`
	ByStrategy    map[constants.StrategyKind]int    `json:"by_strategy"`
}

// Report computes success rate, average duration, and per-category and
// per-strategy counts over the attempt history. An empty history yields a
// zero report with non-nil maps.
func (e *Executor) Report() Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := Report{
		ByCategory: make(map[constants.FailureCategory]int),
		ByStrategy: make(map[constants.StrategyKind]int),
	}

	var total time.Duration
	for _, attempt := range e.history {
		report.TotalAttempts++
		if attempt.Success {
			report.Successful++
		}
		total += attempt.Duration
		report.ByCategory[attempt.Category]++
		report.ByStrategy[attempt.Strategy]++
	}

	if report.TotalAttempts > 0 {
		report.SuccessRate = float64(report.Successful) / float64(report.TotalAttempts)
		report.AvgDuration = total / time.Duration(report.TotalAttempts)
	}
	return report
}
