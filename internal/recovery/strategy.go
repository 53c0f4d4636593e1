package recovery

import (
	"fmt"
	"time"

	"github.com/gafferworks/gaffer/internal/constants"
)

// Strategy is one remediation plan produced by the classifier. It is a
// closed set: exactly the variant types in this file implement it.
type Strategy interface {
	// Kind returns the reporting label for this strategy family.
	Kind() constants.StrategyKind

	// Describe returns a short human-readable summary for logs and the
	// audit trail.
	Describe() string

	// isStrategy seals the interface to this package.
	isStrategy()
}

// RetryWithBackoff retries the failed operation with exponentially
// growing delays: BaseDelay, then doubling per attempt, capped at
// MaxDelay.
type RetryWithBackoff struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
}

// Kind returns the reporting label for this strategy family.
func (RetryWithBackoff) Kind() constants.StrategyKind { return constants.StrategyRetry }

// Describe returns a short human-readable summary for logs.
func (s RetryWithBackoff) Describe() string {
	return fmt.Sprintf("retry up to %d times (%s base, %s cap)", s.MaxAttempts, s.BaseDelay, s.MaxDelay)
}

func (RetryWithBackoff) isStrategy() {}

// AutomatedFix dispatches a specific automated remediation. Confidence
// grades how likely the fix is to resolve the failure without human
// review.
type AutomatedFix struct {
	Fix        constants.FixKind  `json:"fix"`
	Confidence constants.Severity `json:"confidence"`
}

// Kind returns the reporting label for this strategy family.
func (AutomatedFix) Kind() constants.StrategyKind { return constants.StrategyAutomatedFix }

// Describe returns a short human-readable summary for logs.
func (s AutomatedFix) Describe() string {
	return fmt.Sprintf("automated %s (%s confidence)", s.Fix, s.Confidence)
}

func (AutomatedFix) isStrategy() {}

// Fallback abandons the failing approach in favor of a simpler one
// instead of repairing the original failure.
type Fallback struct {
	Approach constants.FallbackKind `json:"approach"`
}

// Kind returns the reporting label for this strategy family.
func (Fallback) Kind() constants.StrategyKind { return constants.StrategyFallback }

// Describe returns a short human-readable summary for logs.
func (s Fallback) Describe() string {
	return "fall back to " + s.Approach.String()
}

func (Fallback) isStrategy() {}

// Escalate hands the failure to a human. Executing an escalation always
// reports failure: escalated means not resolved autonomously.
type Escalate struct {
	Severity constants.Severity `json:"severity"`
}

// Kind returns the reporting label for this strategy family.
func (Escalate) Kind() constants.StrategyKind { return constants.StrategyEscalate }

// Describe returns a short human-readable summary for logs.
func (s Escalate) Describe() string {
	return "escalate at " + s.Severity.String() + " severity"
}

func (Escalate) isStrategy() {}

// AbandonAndReset gives up on the current work item and resets the
// workspace. Like Escalate it reports failure: the underlying problem is
// not resolved, the workflow must be abandoned.
type AbandonAndReset struct {
	Reason constants.AbandonKind `json:"reason"`
}

// Kind returns the reporting label for this strategy family.
func (AbandonAndReset) Kind() constants.StrategyKind { return constants.StrategyAbandonAndReset }

// Describe returns a short human-readable summary for logs.
func (s AbandonAndReset) Describe() string {
	return "abandon and reset (" + s.Reason.String() + ")"
}

func (AbandonAndReset) isStrategy() {}

// Compile-time checks that every variant implements Strategy.
var (
	_ Strategy = RetryWithBackoff{}
	_ Strategy = AutomatedFix{}
	_ Strategy = Fallback{}
	_ Strategy = Escalate{}
	_ Strategy = AbandonAndReset{}
)
