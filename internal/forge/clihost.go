package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// assignmentFetchLimit caps how many open issues one assignment poll pulls
// from the host. The backlog is sorted locally, so the limit only needs to
// be comfortably larger than one scheduling window.
const assignmentFetchLimit = 30

// Label conventions read from issue labels.
const (
	priorityLabelPrefix = "priority:"
	estimateLabelPrefix = "estimate:"
)

// Pattern tables for classifying gh and git failures from stderr text.
//
//nolint:gochecknoglobals // shared classification tables, initialized once
var (
	rateLimitPatterns = newPatternMatcher(
		"rate limit exceeded",
		"api rate limit",
		"secondary rate limit",
		"abuse detection",
		"too many requests",
	)

	authFailurePatterns = newPatternMatcher(
		"authentication required",
		"bad credentials",
		"not logged into",
		"must be authenticated",
		"gh auth login",
		"invalid token",
		"token expired",
	)

	notFoundPatterns = newPatternMatcher(
		"not found",
		"no such",
		"does not exist",
		"could not resolve to",
	)

	branchExistsPatterns = newPatternMatcher(
		"already exists",
	)

	// failingCheckPatterns must be consulted before mergeConflictPatterns:
	// "not mergeable" shows up in both situations, and only the check
	// wording disambiguates.
	failingCheckPatterns = newPatternMatcher(
		"status check",
		"checks have not succeeded",
		"checks failed",
		"is not passing",
	)

	mergeConflictPatterns = newPatternMatcher(
		"merge conflict",
		"cannot be cleanly created",
		"conflicts must be resolved",
		"not mergeable",
	)
)

// prURLPattern extracts the PR number from the URL gh pr create prints.
//
//nolint:gochecknoglobals // compiled once
var prURLPattern = regexp.MustCompile(`https://github\.com/[^/]+/[^/]+/pull/(\d+)`)

// Compile-time interface check.
var _ Host = (*CLIHost)(nil)

// CLIHost implements Host using the gh and git CLIs.
type CLIHost struct {
	workDir     string
	logger      zerolog.Logger
	exec        CommandExecutor
	assignLabel string
	mergeFlag   string
}

// CLIHostOption configures a CLIHost.
type CLIHostOption func(*CLIHost)

// NewCLIHost creates a CLIHost operating in the given working directory.
func NewCLIHost(workDir string, opts ...CLIHostOption) *CLIHost {
	h := &CLIHost{
		workDir:     workDir,
		logger:      zerolog.Nop(),
		exec:        &defaultCommandExecutor{},
		assignLabel: constants.DefaultAssignmentLabel,
		mergeFlag:   "--squash",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithHostLogger sets the logger for host operations.
func WithHostLogger(logger zerolog.Logger) CLIHostOption {
	return func(h *CLIHost) {
		h.logger = logger
	}
}

// WithHostExecutor sets the command executor. Used for testing.
func WithHostExecutor(exec CommandExecutor) CLIHostOption {
	return func(h *CLIHost) {
		if exec != nil {
			h.exec = exec
		}
	}
}

// WithAssignmentLabel overrides the label that marks assignable issues.
func WithAssignmentLabel(label string) CLIHostOption {
	return func(h *CLIHost) {
		if label != "" {
			h.assignLabel = label
		}
	}
}

// WithMergeMethod selects the merge method: squash, merge, or rebase.
func WithMergeMethod(method string) CLIHostOption {
	return func(h *CLIHost) {
		method = strings.TrimPrefix(strings.TrimSpace(method), "--")
		if method != "" {
			h.mergeFlag = "--" + method
		}
	}
}

// NextAssignment returns the open issue to work next: highest priority
// first, ties broken by lowest issue number.
func (h *CLIHost) NextAssignment(ctx context.Context) (domain.Issue, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.Issue{}, err
	}

	args := []string{
		"issue", "list",
		"--label", h.assignLabel,
		"--state", "open",
		"--limit", strconv.Itoa(assignmentFetchLimit),
		"--json", "number,title,body,labels",
	}
	output, err := h.exec.Execute(ctx, h.workDir, "gh", args...)
	if err != nil {
		return domain.Issue{}, hostError("list assignable issues", err)
	}

	var entries []ghIssue
	if err := json.Unmarshal(bytes.TrimSpace(output), &entries); err != nil {
		return domain.Issue{}, fmt.Errorf("parse issue list: %w: %w", gaffererrors.ErrForgeOperation, err)
	}

	issues := make([]domain.Issue, 0, len(entries))
	for _, entry := range entries {
		issue := issueFromEntry(entry)
		if slices.Contains(issue.Labels, constants.WorkingLabel) {
			continue
		}
		issues = append(issues, issue)
	}
	if len(issues) == 0 {
		return domain.Issue{}, fmt.Errorf("no assignable issues carry label %q: %w", h.assignLabel, gaffererrors.ErrNoAssignment)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		if ri, rj := issues[i].Priority.Rank(), issues[j].Priority.Rank(); ri != rj {
			return ri > rj
		}
		return issues[i].Number < issues[j].Number
	})

	picked := issues[0]
	h.logger.Info().
		Int("issue", picked.Number).
		Str("priority", picked.Priority.String()).
		Int("backlog_size", len(issues)).
		Msg("assignment selected")

	return picked, nil
}

// FetchIssue returns the issue snapshot for the given number.
func (h *CLIHost) FetchIssue(ctx context.Context, number int) (domain.Issue, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.Issue{}, err
	}
	if number <= 0 {
		return domain.Issue{}, fmt.Errorf("invalid issue number %d: %w", number, gaffererrors.ErrInvalidArgument)
	}

	args := []string{"issue", "view", strconv.Itoa(number), "--json", "number,title,body,labels"}
	output, err := h.exec.Execute(ctx, h.workDir, "gh", args...)
	if err != nil {
		if notFoundPatterns.matches(err.Error()) {
			return domain.Issue{}, fmt.Errorf("issue #%d: %w", number, gaffererrors.ErrIssueNotFound)
		}
		return domain.Issue{}, hostError(fmt.Sprintf("fetch issue #%d", number), err)
	}

	var entry ghIssue
	if err := json.Unmarshal(bytes.TrimSpace(output), &entry); err != nil {
		return domain.Issue{}, fmt.Errorf("parse issue #%d: %w: %w", number, gaffererrors.ErrForgeOperation, err)
	}

	return issueFromEntry(entry), nil
}

// CreateBranch creates the working branch from the base branch.
func (h *CLIHost) CreateBranch(ctx context.Context, name, base string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("branch name cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}
	if base == "" {
		base = constants.DefaultBaseBranch
	}

	if _, err := h.exec.Execute(ctx, h.workDir, "git", "checkout", "-b", name, base); err != nil {
		if branchExistsPatterns.matches(err.Error()) {
			return fmt.Errorf("branch %s: %w", name, gaffererrors.ErrBranchExists)
		}
		return hostError(fmt.Sprintf("create branch %s", name), err)
	}

	h.logger.Info().Str("branch", name).Str("base", base).Msg("working branch created")
	return nil
}

// CreatePR opens a pull request and returns its host-assigned number.
// Commits and FilesChanged on the returned PullRequest are zero; the
// caller owns those counters.
func (h *CLIHost) CreatePR(ctx context.Context, opts PROptions) (domain.PullRequest, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.PullRequest{}, err
	}
	if opts.Title == "" {
		return domain.PullRequest{}, fmt.Errorf("pull request title cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}
	if opts.HeadBranch == "" {
		return domain.PullRequest{}, fmt.Errorf("head branch cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}
	if opts.BaseBranch == "" {
		opts.BaseBranch = constants.DefaultBaseBranch
	}

	args := []string{
		"pr", "create",
		"--title", opts.Title,
		"--body", opts.Body,
		"--base", opts.BaseBranch,
		"--head", opts.HeadBranch,
	}
	if opts.Draft {
		args = append(args, "--draft")
	}

	output, err := h.exec.Execute(ctx, h.workDir, "gh", args...)
	if err != nil {
		return domain.PullRequest{}, hostError("create pull request", err)
	}

	url, number := parsePRCreateOutput(string(output))
	if url == "" {
		return domain.PullRequest{}, fmt.Errorf("parse pull request URL from output [%s]: %w",
			strings.TrimSpace(string(output)), gaffererrors.ErrForgeOperation)
	}

	h.logger.Info().
		Int("pr_number", number).
		Str("pr_url", url).
		Str("head", opts.HeadBranch).
		Msg("pull request created")

	return domain.PullRequest{Number: number, Title: opts.Title, Branch: opts.HeadBranch}, nil
}

// ListReviews returns all review feedback currently on the pull request.
func (h *CLIHost) ListReviews(ctx context.Context, prNumber int) ([]domain.ReviewFeedback, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if prNumber <= 0 {
		return nil, fmt.Errorf("invalid PR number %d: %w", prNumber, gaffererrors.ErrInvalidArgument)
	}

	args := []string{"pr", "view", strconv.Itoa(prNumber), "--json", "reviews"}
	output, err := h.exec.Execute(ctx, h.workDir, "gh", args...)
	if err != nil {
		if notFoundPatterns.matches(err.Error()) {
			return nil, fmt.Errorf("PR #%d: %w", prNumber, gaffererrors.ErrPRNotFound)
		}
		return nil, hostError(fmt.Sprintf("fetch reviews for PR #%d", prNumber), err)
	}

	var resp ghPRReviews
	if err := json.Unmarshal(bytes.TrimSpace(output), &resp); err != nil {
		return nil, fmt.Errorf("parse reviews for PR #%d: %w: %w", prNumber, gaffererrors.ErrForgeOperation, err)
	}

	feedback := make([]domain.ReviewFeedback, 0, len(resp.Reviews))
	for _, review := range resp.Reviews {
		feedback = append(feedback, feedbackFromReview(review))
	}
	return feedback, nil
}

// AttemptMerge tries to land the pull request. Conflicts and failing
// checks come back as outcomes in the MergeResult, not as errors.
func (h *CLIHost) AttemptMerge(ctx context.Context, prNumber int) (MergeResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return MergeResult{}, err
	}
	if prNumber <= 0 {
		return MergeResult{}, fmt.Errorf("invalid PR number %d: %w", prNumber, gaffererrors.ErrInvalidArgument)
	}

	_, err := h.exec.Execute(ctx, h.workDir, "gh", "pr", "merge", strconv.Itoa(prNumber), h.mergeFlag)
	if err == nil {
		h.logger.Info().Int("pr_number", prNumber).Msg("pull request merged")
		return MergeResult{Merged: true}, nil
	}

	errStr := err.Error()
	switch {
	case failingCheckPatterns.matches(errStr):
		failures, checksErr := h.fetchCheckFailures(ctx, prNumber)
		if checksErr != nil || len(failures) == 0 {
			failures = []domain.CheckFailure{{
				JobName: "required-checks",
				Message: strings.TrimSpace(errStr),
			}}
		}
		h.logger.Warn().
			Int("pr_number", prNumber).
			Int("failing_checks", len(failures)).
			Msg("merge blocked by failing checks")
		return MergeResult{Failures: failures}, nil

	case mergeConflictPatterns.matches(errStr):
		h.logger.Warn().Int("pr_number", prNumber).Msg("merge blocked by conflicts")
		// The CLI reports the conflict but not the conflicting paths.
		return MergeResult{Conflicts: []domain.Conflict{{Path: "unknown", AutoResolvable: false}}}, nil

	case notFoundPatterns.matches(errStr):
		return MergeResult{}, fmt.Errorf("PR #%d: %w", prNumber, gaffererrors.ErrPRNotFound)

	default:
		return MergeResult{}, hostError(fmt.Sprintf("merge PR #%d", prNumber), err)
	}
}

// AddLabel adds a label to the issue.
func (h *CLIHost) AddLabel(ctx context.Context, issueNumber int, label string) error {
	return h.editLabel(ctx, issueNumber, "--add-label", label)
}

// RemoveLabel removes a label from the issue. Removing an absent label
// is not an error.
func (h *CLIHost) RemoveLabel(ctx context.Context, issueNumber int, label string) error {
	return h.editLabel(ctx, issueNumber, "--remove-label", label)
}

func (h *CLIHost) editLabel(ctx context.Context, issueNumber int, flag, label string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if issueNumber <= 0 {
		return fmt.Errorf("invalid issue number %d: %w", issueNumber, gaffererrors.ErrInvalidArgument)
	}
	if label == "" {
		return fmt.Errorf("label cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}

	if _, err := h.exec.Execute(ctx, h.workDir, "gh", "issue", "edit", strconv.Itoa(issueNumber), flag, label); err != nil {
		if notFoundPatterns.matches(err.Error()) {
			// Label removal is idempotent; an absent label or issue label
			// set is not worth failing the workflow over.
			if flag == "--remove-label" {
				return nil
			}
			return fmt.Errorf("issue #%d: %w", issueNumber, gaffererrors.ErrIssueNotFound)
		}
		return hostError(fmt.Sprintf("edit labels on issue #%d", issueNumber), err)
	}
	return nil
}

// fetchCheckFailures lists the failing CI checks on a pull request.
func (h *CLIHost) fetchCheckFailures(ctx context.Context, prNumber int) ([]domain.CheckFailure, error) {
	args := []string{"pr", "checks", strconv.Itoa(prNumber), "--json", "name,state,bucket,description"}
	output, err := h.exec.Execute(ctx, h.workDir, "gh", args...)
	if err != nil {
		return nil, hostError(fmt.Sprintf("fetch checks for PR #%d", prNumber), err)
	}

	// Empty output means no checks are configured.
	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}

	var entries []ghCheckEntry
	if err := json.Unmarshal(bytes.TrimSpace(output), &entries); err != nil {
		return nil, fmt.Errorf("parse checks for PR #%d: %w: %w", prNumber, gaffererrors.ErrForgeOperation, err)
	}

	var failures []domain.CheckFailure
	for _, entry := range entries {
		if entry.Bucket != "fail" {
			continue
		}
		failures = append(failures, domain.CheckFailure{
			JobName: entry.Name,
			Message: entry.Description,
		})
	}
	return failures, nil
}

// ghIssue is one entry from gh issue list or gh issue view JSON output.
type ghIssue struct {
	Number int       `json:"number"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Labels []ghLabel `json:"labels"`
}

// ghLabel is a label object in gh JSON output.
type ghLabel struct {
	Name string `json:"name"`
}

// ghPRReviews is the JSON response from gh pr view --json reviews.
type ghPRReviews struct {
	Reviews []ghReview `json:"reviews"`
}

// ghReview is a single review in gh pr view output.
type ghReview struct {
	Author ghReviewAuthor `json:"author"`
	State  string         `json:"state"`
	Body   string         `json:"body"`
}

// ghReviewAuthor identifies the review author.
type ghReviewAuthor struct {
	Login string `json:"login"`
}

// ghCheckEntry is a single check from gh pr checks JSON output.
type ghCheckEntry struct {
	Name        string `json:"name"`
	State       string `json:"state"`
	Bucket      string `json:"bucket"`
	Description string `json:"description"`
}

// issueFromEntry converts a gh issue entry into the domain snapshot.
func issueFromEntry(entry ghIssue) domain.Issue {
	labels := make([]string, 0, len(entry.Labels))
	for _, label := range entry.Labels {
		labels = append(labels, label.Name)
	}
	return domain.Issue{
		Number:         entry.Number,
		Title:          entry.Title,
		Body:           entry.Body,
		Labels:         labels,
		Priority:       priorityFromLabels(labels),
		EstimatedHours: estimateFromLabels(labels),
	}
}

// feedbackFromReview converts one gh review into domain feedback. A
// CHANGES_REQUESTED verdict becomes a requested change so the review
// tie-break sees it as blocking; everything else is commentary.
func feedbackFromReview(review ghReview) domain.ReviewFeedback {
	feedback := domain.ReviewFeedback{Reviewer: review.Author.Login}

	switch strings.ToUpper(review.State) {
	case "APPROVED":
		feedback.Approved = true
		if review.Body != "" {
			feedback.Comments = []domain.ReviewComment{{Body: review.Body}}
		}
	case "CHANGES_REQUESTED":
		description := review.Body
		if description == "" {
			description = "changes requested"
		}
		feedback.RequestedChanges = []domain.RequestedChange{{Description: description}}
	default:
		if review.Body != "" {
			feedback.Comments = []domain.ReviewComment{{Body: review.Body}}
		}
	}

	return feedback
}

// priorityFromLabels reads the issue priority from a "priority:<level>"
// label. Issues without a recognized level are medium priority.
func priorityFromLabels(labels []string) constants.Priority {
	for _, label := range labels {
		value, ok := strings.CutPrefix(strings.ToLower(label), priorityLabelPrefix)
		if !ok {
			continue
		}
		switch p := constants.Priority(strings.TrimSpace(value)); p {
		case constants.PriorityLow, constants.PriorityMedium, constants.PriorityHigh, constants.PriorityCritical:
			return p
		}
	}
	return constants.PriorityMedium
}

// estimateFromLabels reads an hour estimate from an "estimate:<hours>h"
// label, e.g. "estimate:3.5h". Returns nil when no well-formed estimate
// label is present.
func estimateFromLabels(labels []string) *float64 {
	for _, label := range labels {
		value, ok := strings.CutPrefix(strings.ToLower(label), estimateLabelPrefix)
		if !ok {
			continue
		}
		value = strings.TrimSuffix(strings.TrimSpace(value), "h")
		hours, err := strconv.ParseFloat(value, 64)
		if err != nil || hours < 0 {
			continue
		}
		return &hours
	}
	return nil
}

// parsePRCreateOutput extracts the PR URL and number from gh pr create
// output. gh prints the PR URL on success: https://github.com/owner/repo/pull/42
func parsePRCreateOutput(output string) (url string, number int) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if match := prURLPattern.FindStringSubmatch(line); match != nil {
			url = strings.TrimSpace(match[0])
			if len(match) > 1 {
				number, _ = strconv.Atoi(match[1])
			}
			return url, number
		}
	}
	return "", 0
}

// hostError wraps a raw command failure with the forge sentinel its
// stderr text classifies to.
func hostError(op string, err error) error {
	switch {
	case rateLimitPatterns.matches(err.Error()):
		return fmt.Errorf("%s: %w: %w", op, gaffererrors.ErrForgeRateLimited, err)
	case authFailurePatterns.matches(err.Error()):
		return fmt.Errorf("%s: %w: %w", op, gaffererrors.ErrForgeAuthFailed, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, gaffererrors.ErrForgeOperation, err)
	}
}

// patternMatcher reports whether any of its substrings occur in a string,
// case-insensitively.
type patternMatcher struct {
	patterns []string
}

func newPatternMatcher(patterns ...string) patternMatcher {
	return patternMatcher{patterns: patterns}
}

func (m patternMatcher) matches(s string) bool {
	s = strings.ToLower(s)
	for _, pattern := range m.patterns {
		if strings.Contains(s, pattern) {
			return true
		}
	}
	return false
}
