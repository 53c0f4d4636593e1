package constants

// BlockerKind labels the variants of blocker that can stop in-progress work.
// Values use snake_case for JSON serialization compatibility.
type BlockerKind string

// Blocker kind constants define the closed set of blocker variants.
const (
	// BlockerDependency indicates a required dependency is missing or broken.
	BlockerDependency BlockerKind = "dependency_issue"

	// BlockerTestFailure indicates a test is failing in the workspace.
	BlockerTestFailure BlockerKind = "test_failure"

	// BlockerBuildFailure indicates the workspace does not build.
	BlockerBuildFailure BlockerKind = "build_failure"

	// BlockerExternalService indicates a service outside the workspace is
	// unavailable or degraded.
	BlockerExternalService BlockerKind = "external_service"

	// BlockerMissingRequirements indicates the issue lacks information the
	// agent needs to proceed.
	BlockerMissingRequirements BlockerKind = "missing_requirements"

	// BlockerNetwork indicates a transient network failure.
	BlockerNetwork BlockerKind = "network_issue"
)

// String returns the string representation of the BlockerKind.
func (b BlockerKind) String() string {
	return string(b)
}

// AbandonKind labels the variants of reason for abandoning a work item.
// Values use snake_case for JSON serialization compatibility.
type AbandonKind string

// Abandon kind constants define why a workflow reached Abandoned.
const (
	// AbandonUnresolvableBlocker indicates recovery could not clear a blocker.
	AbandonUnresolvableBlocker AbandonKind = "unresolvable_blocker"

	// AbandonTimeoutExceeded indicates elapsed work time passed the
	// configured maximum.
	AbandonTimeoutExceeded AbandonKind = "timeout_exceeded"

	// AbandonRequirementsChanged indicates the issue changed underneath the
	// agent and the work no longer applies.
	AbandonRequirementsChanged AbandonKind = "requirements_changed"

	// AbandonDependencyIssues indicates dependency problems made the work
	// impractical.
	AbandonDependencyIssues AbandonKind = "dependency_issues"

	// AbandonCriticalFailure indicates an unrecoverable failure such as
	// workspace corruption.
	AbandonCriticalFailure AbandonKind = "critical_failure"
)

// String returns the string representation of the AbandonKind.
func (a AbandonKind) String() string {
	return string(a)
}
