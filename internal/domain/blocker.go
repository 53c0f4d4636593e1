package domain

import (
	"fmt"
	"strings"

	"github.com/gafferworks/gaffer/internal/constants"
)

// Blocker is a classified obstacle preventing forward progress on an
// in-progress work item. It is a closed set: exactly the variant types in
// this file implement it, so a switch over concrete types with a default
// branch covers every case.
//
// Each variant carries enough context for the recovery engine to classify
// it without re-querying external state.
type Blocker interface {
	// Kind returns the variant label for logging and serialization.
	Kind() constants.BlockerKind

	// Describe returns a one-line human-readable description.
	Describe() string

	// isBlocker seals the interface to this package.
	isBlocker()
}

// DependencyBlocker reports a required dependency that is missing or broken.
type DependencyBlocker struct {
	// Dependency names the package or tool that failed.
	Dependency string `json:"dependency"`

	// Reason is the observed failure detail.
	Reason string `json:"reason"`
}

// Kind returns the blocker variant label.
func (b DependencyBlocker) Kind() constants.BlockerKind { return constants.BlockerDependency }

// Describe returns a one-line human-readable description.
func (b DependencyBlocker) Describe() string {
	return fmt.Sprintf("dependency %s unavailable: %s", b.Dependency, b.Reason)
}

func (DependencyBlocker) isBlocker() {}

// TestFailureBlocker reports a test failing in the workspace.
type TestFailureBlocker struct {
	// TestName identifies the failing test.
	TestName string `json:"test_name"`

	// Reason is the observed failure detail.
	Reason string `json:"reason"`
}

// Kind returns the blocker variant label.
func (b TestFailureBlocker) Kind() constants.BlockerKind { return constants.BlockerTestFailure }

// Describe returns a one-line human-readable description.
func (b TestFailureBlocker) Describe() string {
	return fmt.Sprintf("test %s failing: %s", b.TestName, b.Reason)
}

func (TestFailureBlocker) isBlocker() {}

// BuildFailureBlocker reports that the workspace does not build.
type BuildFailureBlocker struct {
	// Reason is the observed failure detail.
	Reason string `json:"reason"`
}

// Kind returns the blocker variant label.
func (b BuildFailureBlocker) Kind() constants.BlockerKind { return constants.BlockerBuildFailure }

// Describe returns a one-line human-readable description.
func (b BuildFailureBlocker) Describe() string {
	return "build failing: " + b.Reason
}

func (BuildFailureBlocker) isBlocker() {}

// ExternalServiceBlocker reports a service outside the workspace that is
// unavailable or degraded.
type ExternalServiceBlocker struct {
	// Service names the external service.
	Service string `json:"service"`

	// Status is the observed service status.
	Status string `json:"status"`
}

// Kind returns the blocker variant label.
func (b ExternalServiceBlocker) Kind() constants.BlockerKind { return constants.BlockerExternalService }

// Describe returns a one-line human-readable description.
func (b ExternalServiceBlocker) Describe() string {
	return fmt.Sprintf("external service %s is %s", b.Service, b.Status)
}

func (ExternalServiceBlocker) isBlocker() {}

// MissingRequirementsBlocker reports that the issue lacks information the
// agent needs to proceed.
type MissingRequirementsBlocker struct {
	// Missing lists the absent requirements.
	Missing []string `json:"missing"`
}

// Kind returns the blocker variant label.
func (b MissingRequirementsBlocker) Kind() constants.BlockerKind {
	return constants.BlockerMissingRequirements
}

// Describe returns a one-line human-readable description.
func (b MissingRequirementsBlocker) Describe() string {
	return "missing requirements: " + strings.Join(b.Missing, ", ")
}

func (MissingRequirementsBlocker) isBlocker() {}

// NetworkBlocker reports a transient network failure.
type NetworkBlocker struct {
	// Reason is the observed failure detail.
	Reason string `json:"reason"`
}

// Kind returns the blocker variant label.
func (b NetworkBlocker) Kind() constants.BlockerKind { return constants.BlockerNetwork }

// Describe returns a one-line human-readable description.
func (b NetworkBlocker) Describe() string {
	return "network failure: " + b.Reason
}

func (NetworkBlocker) isBlocker() {}

// Compile-time checks that every variant implements Blocker.
var (
	_ Blocker = DependencyBlocker{}
	_ Blocker = TestFailureBlocker{}
	_ Blocker = BuildFailureBlocker{}
	_ Blocker = ExternalServiceBlocker{}
	_ Blocker = MissingRequirementsBlocker{}
	_ Blocker = NetworkBlocker{}
)
