// Package recovery implements the error-recovery engine: a closed set of
// failure kinds, a pure classifier that maps each kind to a remediation
// strategy, and an executor that performs strategies through a pluggable
// backend while recording every attempt.
//
// Classification is deterministic: the same failure kind always yields
// the same strategy. Execution is the only part that touches the outside
// world, and it never lets a backend failure escape as anything other
// than a failed attempt record.
//
// Import rules:
//   - CAN import: internal/constants, internal/domain, internal/errors,
//     internal/clock, internal/ctxutil, standard library
//   - MUST NOT import: internal/workflow, internal/coordinator
package recovery

import (
	"fmt"
	"strings"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

// ErrorKind is one classifiable failure. It is a closed set: exactly the
// variant types in this file implement it. Each variant carries the
// fields its classification rule inspects, nothing more.
type ErrorKind interface {
	// Category returns the reporting label for this failure kind.
	Category() constants.FailureCategory

	// Describe returns a short human-readable summary for logs and the
	// audit trail.
	Describe() string

	// isErrorKind seals the interface to this package.
	isErrorKind()
}

// GitOperationError is a failed git command. Op is the git subcommand
// ("push", "pull", "fetch", "merge", "rebase").
type GitOperationError struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// Category returns the reporting label for this failure kind.
func (GitOperationError) Category() constants.FailureCategory { return constants.FailureGitOperation }

// Describe returns a short human-readable summary for logs.
func (e GitOperationError) Describe() string {
	return fmt.Sprintf("git %s failed: %s", e.Op, e.Reason)
}

func (GitOperationError) isErrorKind() {}

// APIError is a host API failure carrying its HTTP status code.
type APIError struct {
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

// Category returns the reporting label for this failure kind.
func (APIError) Category() constants.FailureCategory { return constants.FailureAPI }

// Describe returns a short human-readable summary for logs.
func (e APIError) Describe() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Reason)
}

func (APIError) isErrorKind() {}

// MergeConflictError is a failed merge. Files lists the conflicted paths;
// Count is the number of conflict regions, which can exceed the file
// count.
type MergeConflictError struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

// Category returns the reporting label for this failure kind.
func (MergeConflictError) Category() constants.FailureCategory { return constants.FailureMergeConflict }

// Describe returns a short human-readable summary for logs.
func (e MergeConflictError) Describe() string {
	return fmt.Sprintf("%d merge conflicts across %d files", e.Count, len(e.Files))
}

func (MergeConflictError) isErrorKind() {}

// CIError is a failed CI job.
type CIError struct {
	Job     string `json:"job"`
	Message string `json:"message"`
}

// Category returns the reporting label for this failure kind.
func (CIError) Category() constants.FailureCategory { return constants.FailureCI }

// Describe returns a short human-readable summary for logs.
func (e CIError) Describe() string {
	return fmt.Sprintf("ci job %s failed: %s", e.Job, e.Message)
}

func (CIError) isErrorKind() {}

// TestFailures is a set of failing test names observed during work.
type TestFailures struct {
	Names []string `json:"names"`
}

// Category returns the reporting label for this failure kind.
func (TestFailures) Category() constants.FailureCategory { return constants.FailureTest }

// Describe returns a short human-readable summary for logs.
func (e TestFailures) Describe() string {
	return fmt.Sprintf("%d failing tests: %s", len(e.Names), strings.Join(e.Names, ", "))
}

func (TestFailures) isErrorKind() {}

// BuildError is a build pipeline failure. Stage names the pipeline phase
// that broke ("dependency", "formatting", "lint", "compile").
type BuildError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Category returns the reporting label for this failure kind.
func (BuildError) Category() constants.FailureCategory { return constants.FailureBuild }

// Describe returns a short human-readable summary for logs.
func (e BuildError) Describe() string {
	return fmt.Sprintf("build failed at %s stage: %s", e.Stage, e.Message)
}

func (BuildError) isErrorKind() {}

// WorkspaceCorruption is a set of damaged or inconsistent workspace files.
type WorkspaceCorruption struct {
	Files []string `json:"files"`
}

// Category returns the reporting label for this failure kind.
func (WorkspaceCorruption) Category() constants.FailureCategory {
	return constants.FailureWorkspaceCorruption
}

// Describe returns a short human-readable summary for logs.
func (e WorkspaceCorruption) Describe() string {
	return fmt.Sprintf("%d corrupted workspace files", len(e.Files))
}

func (WorkspaceCorruption) isErrorKind() {}

// StateInconsistency is divergence between recorded and observed workflow
// bookkeeping.
type StateInconsistency struct {
	Detail string `json:"detail"`
}

// Category returns the reporting label for this failure kind.
func (StateInconsistency) Category() constants.FailureCategory {
	return constants.FailureStateInconsistency
}

// Describe returns a short human-readable summary for logs.
func (e StateInconsistency) Describe() string {
	return "state inconsistency: " + e.Detail
}

func (StateInconsistency) isErrorKind() {}

// Compile-time checks that every variant implements ErrorKind.
var (
	_ ErrorKind = GitOperationError{}
	_ ErrorKind = APIError{}
	_ ErrorKind = MergeConflictError{}
	_ ErrorKind = CIError{}
	_ ErrorKind = TestFailures{}
	_ ErrorKind = BuildError{}
	_ ErrorKind = WorkspaceCorruption{}
	_ ErrorKind = StateInconsistency{}
)

// KindFromBlocker maps a workflow blocker to its classifiable failure
// kind. The mapping is total so the engine can always classify whatever
// stopped the work, including blocker kinds the autonomy policy would
// abandon before recovery runs.
func KindFromBlocker(b domain.Blocker) ErrorKind {
	switch blocker := b.(type) {
	case domain.TestFailureBlocker:
		return TestFailures{Names: []string{blocker.TestName}}
	case domain.BuildFailureBlocker:
		return BuildError{Stage: "compile", Message: blocker.Reason}
	case domain.NetworkBlocker:
		return GitOperationError{Op: "fetch", Reason: blocker.Reason}
	case domain.DependencyBlocker:
		return BuildError{Stage: "dependency", Message: fmt.Sprintf("%s: %s", blocker.Dependency, blocker.Reason)}
	case domain.ExternalServiceBlocker:
		return APIError{Status: 503, Reason: fmt.Sprintf("%s is %s", blocker.Service, blocker.Status)}
	case domain.MissingRequirementsBlocker:
		return StateInconsistency{Detail: "missing requirements: " + strings.Join(blocker.Missing, ", ")}
	default:
		return StateInconsistency{Detail: "unrecognized blocker"}
	}
}
