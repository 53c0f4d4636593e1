package forge

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// simFirstPRNumber is where Sim starts numbering pull requests.
const simFirstPRNumber = 101

// Compile-time interface check.
var _ Host = (*Sim)(nil)

// Sim is a deterministic in-memory Host for tests and dry runs. Issues
// are queued up front; review and merge outcomes can be scripted per
// pull request and are consumed one entry per call. Unscripted calls
// take benign defaults: reviews approve and merges land.
//
// Unlike a real host, NextAssignment consumes the issue it returns, so
// repeated polls walk the queue. Queue an issue again to make abandoned
// work assignable.
type Sim struct {
	mu sync.Mutex

	backlog  []domain.Issue
	issues   map[int]domain.Issue
	branches map[string]string
	labels   map[int][]string
	prs      map[int]domain.PullRequest
	nextPR   int

	reviewScripts map[int][][]domain.ReviewFeedback
	mergeScripts  map[int][]MergeResult
}

// NewSim creates an empty Sim.
func NewSim() *Sim {
	return &Sim{
		issues:        make(map[int]domain.Issue),
		branches:      make(map[string]string),
		labels:        make(map[int][]string),
		prs:           make(map[int]domain.PullRequest),
		nextPR:        simFirstPRNumber,
		reviewScripts: make(map[int][][]domain.ReviewFeedback),
		mergeScripts:  make(map[int][]MergeResult),
	}
}

// QueueIssue adds an issue to the assignable backlog.
func (s *Sim) QueueIssue(issue domain.Issue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backlog = append(s.backlog, issue)
	s.issues[issue.Number] = issue
	if len(issue.Labels) > 0 {
		s.labels[issue.Number] = slices.Clone(issue.Labels)
	}
}

// ScriptReviews scripts review rounds for a pull request. Each
// ListReviews call consumes one round in order.
func (s *Sim) ScriptReviews(prNumber int, rounds ...[]domain.ReviewFeedback) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reviewScripts[prNumber] = append(s.reviewScripts[prNumber], rounds...)
}

// ScriptMerge scripts merge outcomes for a pull request. Each
// AttemptMerge call consumes one outcome in order.
func (s *Sim) ScriptMerge(prNumber int, results ...MergeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mergeScripts[prNumber] = append(s.mergeScripts[prNumber], results...)
}

// Labels returns the current labels on an issue.
func (s *Sim) Labels(issueNumber int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.labels[issueNumber])
}

// HasBranch reports whether a branch has been created.
func (s *Sim) HasBranch(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.branches[name]
	return ok
}

// NextAssignment returns and consumes the best-ranked queued issue.
func (s *Sim) NextAssignment(ctx context.Context) (domain.Issue, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.Issue{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.backlog) == 0 {
		return domain.Issue{}, gaffererrors.ErrNoAssignment
	}

	best := 0
	for i := 1; i < len(s.backlog); i++ {
		if outranks(s.backlog[i], s.backlog[best]) {
			best = i
		}
	}
	issue := s.backlog[best]
	s.backlog = slices.Delete(s.backlog, best, best+1)

	return issue, nil
}

// FetchIssue returns a queued issue by number.
func (s *Sim) FetchIssue(ctx context.Context, number int) (domain.Issue, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.Issue{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issue, ok := s.issues[number]
	if !ok {
		return domain.Issue{}, fmt.Errorf("issue #%d: %w", number, gaffererrors.ErrIssueNotFound)
	}
	return issue, nil
}

// CreateBranch records a branch, rejecting duplicates.
func (s *Sim) CreateBranch(ctx context.Context, name, base string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("branch name cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}
	if base == "" {
		base = constants.DefaultBaseBranch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.branches[name]; exists {
		return fmt.Errorf("branch %s: %w", name, gaffererrors.ErrBranchExists)
	}
	s.branches[name] = base
	return nil
}

// CreatePR assigns the next sequential pull request number.
func (s *Sim) CreatePR(ctx context.Context, opts PROptions) (domain.PullRequest, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return domain.PullRequest{}, err
	}
	if opts.Title == "" {
		return domain.PullRequest{}, fmt.Errorf("pull request title cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}
	if opts.HeadBranch == "" {
		return domain.PullRequest{}, fmt.Errorf("head branch cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pr := domain.PullRequest{Number: s.nextPR, Title: opts.Title, Branch: opts.HeadBranch}
	s.nextPR++
	s.prs[pr.Number] = pr
	return pr, nil
}

// ListReviews returns the next scripted review round, or a single
// approval when nothing is scripted.
func (s *Sim) ListReviews(ctx context.Context, prNumber int) ([]domain.ReviewFeedback, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prs[prNumber]; !ok {
		return nil, fmt.Errorf("PR #%d: %w", prNumber, gaffererrors.ErrPRNotFound)
	}

	rounds := s.reviewScripts[prNumber]
	if len(rounds) == 0 {
		return []domain.ReviewFeedback{{Reviewer: "sim", Approved: true}}, nil
	}
	round := rounds[0]
	s.reviewScripts[prNumber] = rounds[1:]
	return round, nil
}

// AttemptMerge returns the next scripted merge outcome, or a landed
// merge when nothing is scripted.
func (s *Sim) AttemptMerge(ctx context.Context, prNumber int) (MergeResult, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return MergeResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prs[prNumber]; !ok {
		return MergeResult{}, fmt.Errorf("PR #%d: %w", prNumber, gaffererrors.ErrPRNotFound)
	}

	results := s.mergeScripts[prNumber]
	if len(results) == 0 {
		return MergeResult{Merged: true}, nil
	}
	result := results[0]
	s.mergeScripts[prNumber] = results[1:]
	return result, nil
}

// AddLabel adds a label to a queued issue.
func (s *Sim) AddLabel(ctx context.Context, issueNumber int, label string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if label == "" {
		return fmt.Errorf("label cannot be empty: %w", gaffererrors.ErrEmptyValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.issues[issueNumber]; !ok {
		return fmt.Errorf("issue #%d: %w", issueNumber, gaffererrors.ErrIssueNotFound)
	}
	if !slices.Contains(s.labels[issueNumber], label) {
		s.labels[issueNumber] = append(s.labels[issueNumber], label)
	}
	return nil
}

// RemoveLabel removes a label from an issue. Removing an absent label,
// or labeling an unknown issue, is a no-op.
func (s *Sim) RemoveLabel(ctx context.Context, issueNumber int, label string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	labels := s.labels[issueNumber]
	if i := slices.Index(labels, label); i >= 0 {
		s.labels[issueNumber] = slices.Delete(labels, i, i+1)
	}
	return nil
}

// outranks reports whether a should be assigned before b: higher
// priority first, then lower issue number.
func outranks(a, b domain.Issue) bool {
	if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
		return ra > rb
	}
	return a.Number < b.Number
}
