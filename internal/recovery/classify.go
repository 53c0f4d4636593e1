package recovery

import (
	"strings"
	"time"

	"github.com/gafferworks/gaffer/internal/constants"
)

// Classification thresholds. Failures above these limits are beyond what
// an automated fix is trusted to handle.
const (
	// maxAutoResolvableConflicts bounds the conflict count an automated
	// merge resolution will take on.
	maxAutoResolvableConflicts = 5

	// maxAutoFixableTests bounds how many failing tests an automated fix
	// will chase before falling back to a simpler solution.
	maxAutoFixableTests = 3

	// maxRepairableFiles bounds how many corrupted files a configuration
	// repair will touch before the workspace is written off.
	maxRepairableFiles = 5

	// migrationPathFragment marks schema migration files. Conflicts that
	// touch migrations are never auto-resolved.
	migrationPathFragment = "migration"
)

// patternMatcher reports whether a string contains any of a list of
// lowercase patterns. Matching is case-insensitive on the input.
type patternMatcher struct {
	patterns []string
}

func newPatternMatcher(patterns ...string) *patternMatcher {
	return &patternMatcher{patterns: patterns}
}

func (m *patternMatcher) matches(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range m.patterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// Pattern matchers backing the classification rules.
//
//nolint:gochecknoglobals // Package-level immutable pattern matchers for performance
var (
	// retryableGitOps are transient remote interactions worth retrying.
	retryableGitOps = newPatternMatcher("push", "pull", "fetch")

	// conflictGitOps are history-rewriting operations whose failures mean
	// conflicting changes, not flaky transport.
	conflictGitOps = newPatternMatcher("merge", "rebase")

	// ciTestPatterns match CI messages pointing at failing tests.
	ciTestPatterns = newPatternMatcher("test")

	// ciBuildPatterns match CI messages pointing at build breakage.
	ciBuildPatterns = newPatternMatcher("build", "compile")

	// dependencyStagePatterns match build stages caused by dependency
	// resolution.
	dependencyStagePatterns = newPatternMatcher("dependency", "dependencies")

	// stylingStagePatterns match build stages fixable by a formatter run.
	stylingStagePatterns = newPatternMatcher("formatting", "format", "lint")
)

// Classify maps a failure kind to its remediation strategy.
//
// The function is pure and deterministic: equal inputs always produce
// equal strategies, no clock, randomness, or I/O involved. It is total
// over the ErrorKind set, so callers never need a fallback branch.
func Classify(kind ErrorKind) Strategy {
	switch k := kind.(type) {
	case GitOperationError:
		switch {
		case retryableGitOps.matches(k.Op):
			return RetryWithBackoff{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
		case conflictGitOps.matches(k.Op):
			return AutomatedFix{Fix: constants.FixMergeConflictResolution, Confidence: constants.SeverityMedium}
		default:
			return Escalate{Severity: constants.SeverityMedium}
		}

	case APIError:
		switch {
		case k.Status == 429:
			return RetryWithBackoff{MaxAttempts: 5, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
		case k.Status >= 500 && k.Status <= 599:
			return RetryWithBackoff{MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: 20 * time.Second}
		default:
			return Escalate{Severity: constants.SeverityMedium}
		}

	case MergeConflictError:
		if k.Count <= maxAutoResolvableConflicts && !anyPathContains(k.Files, migrationPathFragment) {
			return AutomatedFix{Fix: constants.FixMergeConflictResolution, Confidence: constants.SeverityHigh}
		}
		return Escalate{Severity: constants.SeverityHigh}

	case CIError:
		switch {
		case ciTestPatterns.matches(k.Message):
			return AutomatedFix{Fix: constants.FixTestFailure, Confidence: constants.SeverityMedium}
		case ciBuildPatterns.matches(k.Message):
			return AutomatedFix{Fix: constants.FixBuildError, Confidence: constants.SeverityLow}
		default:
			return Escalate{Severity: constants.SeverityMedium}
		}

	case TestFailures:
		if len(k.Names) <= maxAutoFixableTests {
			return AutomatedFix{Fix: constants.FixTestFailure, Confidence: constants.SeverityMedium}
		}
		return Fallback{Approach: constants.FallbackSimplifiedSolution}

	case BuildError:
		switch {
		case dependencyStagePatterns.matches(k.Stage):
			return AutomatedFix{Fix: constants.FixDependencyUpdate, Confidence: constants.SeverityHigh}
		case stylingStagePatterns.matches(k.Stage):
			return AutomatedFix{Fix: constants.FixCodeFormatting, Confidence: constants.SeverityHigh}
		default:
			return AutomatedFix{Fix: constants.FixBuildError, Confidence: constants.SeverityLow}
		}

	case WorkspaceCorruption:
		if len(k.Files) <= maxRepairableFiles {
			return AutomatedFix{Fix: constants.FixConfigurationAdjustment, Confidence: constants.SeverityMedium}
		}
		return AbandonAndReset{Reason: constants.AbandonCriticalFailure}

	case StateInconsistency:
		return AutomatedFix{Fix: constants.FixConfigurationAdjustment, Confidence: constants.SeverityHigh}

	default:
		// Unreachable for the sealed set; a nil kind escalates rather
		// than panics.
		return Escalate{Severity: constants.SeverityHigh}
	}
}

// anyPathContains reports whether any path contains the fragment,
// case-insensitively.
func anyPathContains(paths []string, fragment string) bool {
	for _, path := range paths {
		if strings.Contains(strings.ToLower(path), fragment) {
			return true
		}
	}
	return false
}
