package domain

import (
	"fmt"

	"github.com/gafferworks/gaffer/internal/constants"
)

// AbandonReason explains why a workflow reached the Abandoned state. It is
// a closed set: exactly the variant types in this file implement it.
//
// The reason is the only failure surface operators see for an abandoned
// workflow, so Describe must stand alone without logs.
type AbandonReason interface {
	// Kind returns the variant label for logging and serialization.
	Kind() constants.AbandonKind

	// Describe returns a one-line human-readable description.
	Describe() string

	// isAbandonReason seals the interface to this package.
	isAbandonReason()
}

// UnresolvableBlocker records that recovery could not clear a blocker.
type UnresolvableBlocker struct {
	// Blocker is the obstacle that could not be cleared.
	Blocker Blocker `json:"-"`
}

// Kind returns the abandon reason variant label.
func (r UnresolvableBlocker) Kind() constants.AbandonKind {
	return constants.AbandonUnresolvableBlocker
}

// Describe returns a one-line human-readable description.
func (r UnresolvableBlocker) Describe() string {
	if r.Blocker == nil {
		return "blocker could not be resolved"
	}
	return "blocker could not be resolved: " + r.Blocker.Describe()
}

func (UnresolvableBlocker) isAbandonReason() {}

// TimeoutExceeded records that elapsed work time passed the configured maximum.
type TimeoutExceeded struct {
	// MaxHours is the configured time box that was exceeded.
	MaxHours float64 `json:"max_hours"`
}

// Kind returns the abandon reason variant label.
func (r TimeoutExceeded) Kind() constants.AbandonKind {
	return constants.AbandonTimeoutExceeded
}

// Describe returns a one-line human-readable description.
func (r TimeoutExceeded) Describe() string {
	return fmt.Sprintf("work exceeded the %.1fh time box", r.MaxHours)
}

func (TimeoutExceeded) isAbandonReason() {}

// RequirementsChanged records that the issue changed underneath the agent.
type RequirementsChanged struct{}

// Kind returns the abandon reason variant label.
func (RequirementsChanged) Kind() constants.AbandonKind {
	return constants.AbandonRequirementsChanged
}

// Describe returns a one-line human-readable description.
func (RequirementsChanged) Describe() string {
	return "issue requirements changed during work"
}

func (RequirementsChanged) isAbandonReason() {}

// DependencyIssues records that dependency problems made the work impractical.
type DependencyIssues struct{}

// Kind returns the abandon reason variant label.
func (DependencyIssues) Kind() constants.AbandonKind {
	return constants.AbandonDependencyIssues
}

// Describe returns a one-line human-readable description.
func (DependencyIssues) Describe() string {
	return "dependency issues made the work impractical"
}

func (DependencyIssues) isAbandonReason() {}

// CriticalFailure records an unrecoverable failure such as workspace corruption.
type CriticalFailure struct {
	// Reason is the observed failure detail.
	Reason string `json:"reason"`
}

// Kind returns the abandon reason variant label.
func (r CriticalFailure) Kind() constants.AbandonKind {
	return constants.AbandonCriticalFailure
}

// Describe returns a one-line human-readable description.
func (r CriticalFailure) Describe() string {
	return "critical failure: " + r.Reason
}

func (CriticalFailure) isAbandonReason() {}

// Compile-time checks that every variant implements AbandonReason.
var (
	_ AbandonReason = UnresolvableBlocker{}
	_ AbandonReason = TimeoutExceeded{}
	_ AbandonReason = RequirementsChanged{}
	_ AbandonReason = DependencyIssues{}
	_ AbandonReason = CriticalFailure{}
)
