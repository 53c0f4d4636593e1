// Package forge talks to the code host: issue assignment, branches, pull
// requests, reviews, merges, and labels. The CLIHost implementation
// shells out to the gh and git CLIs; Sim is a deterministic scripted
// implementation for tests and dry runs.
//
// Operations return sentinel-wrapped errors from internal/errors so
// callers can branch on condition (rate limited, auth failed, not found)
// without parsing messages.
package forge

import (
	"context"

	"github.com/gafferworks/gaffer/internal/domain"
)

// PROptions configures pull request creation.
type PROptions struct {
	// Title is the PR title (required).
	Title string

	// Body is the PR description.
	Body string

	// BaseBranch is the target branch (default "main").
	BaseBranch string

	// HeadBranch is the source branch with the changes (required).
	HeadBranch string

	// Draft creates the PR as a draft.
	Draft bool
}

// MergeResult reports one merge attempt. Exactly one of the three
// outcomes holds: merged, stopped by conflicts, or stopped by failing
// checks.
type MergeResult struct {
	// Merged indicates the pull request landed.
	Merged bool `json:"merged"`

	// Conflicts lists conflicting paths when the merge was stopped by
	// conflicting changes.
	Conflicts []domain.Conflict `json:"conflicts,omitempty"`

	// Failures lists the failing checks when the merge was stopped by CI.
	Failures []domain.CheckFailure `json:"failures,omitempty"`
}

// Host is the code-host capability surface the scheduler needs. All
// operations honor context cancellation.
type Host interface {
	// NextAssignment returns the open issue the scheduler should work
	// next: highest priority first, ties broken by lowest issue number.
	// Returns ErrNoAssignment when the backlog is empty.
	NextAssignment(ctx context.Context) (domain.Issue, error)

	// FetchIssue returns the issue snapshot for the given number.
	// Returns ErrIssueNotFound when the host has no such issue.
	FetchIssue(ctx context.Context, number int) (domain.Issue, error)

	// CreateBranch creates the working branch from the base branch.
	// Returns ErrBranchExists when the branch is already present.
	CreateBranch(ctx context.Context, name, base string) error

	// CreatePR opens a pull request and returns its host-assigned number.
	CreatePR(ctx context.Context, opts PROptions) (domain.PullRequest, error)

	// ListReviews returns all review feedback currently on the pull
	// request. Returns ErrPRNotFound when the host has no such PR.
	ListReviews(ctx context.Context, prNumber int) ([]domain.ReviewFeedback, error)

	// AttemptMerge tries to land the pull request and reports the
	// outcome. Conflicts and failing checks are outcomes, not errors;
	// the error return covers host and transport failures only.
	AttemptMerge(ctx context.Context, prNumber int) (MergeResult, error)

	// AddLabel adds a label to the issue.
	AddLabel(ctx context.Context, issueNumber int, label string) error

	// RemoveLabel removes a label from the issue. Removing an absent
	// label is not an error.
	RemoveLabel(ctx context.Context, issueNumber int, label string) error
}
