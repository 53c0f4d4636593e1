package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/ctxutil"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
	"github.com/gafferworks/gaffer/internal/forge"
	"github.com/gafferworks/gaffer/internal/recovery"
	"github.com/gafferworks/gaffer/internal/workflow"
)

// step performs the side effect the current state calls for and feeds
// the outcome back to the machine. Errors are context cancellations
// only; every collaborator failure is handled inside, through the
// recovery engine.
func (c *Coordinator) step(ctx context.Context, state workflow.State) error {
	switch st := state.(type) {
	case nil:
		return c.pickUpNextIssue(ctx)
	case workflow.Unassigned:
		return c.prepareWorkspace(ctx, st)
	case workflow.Assigned:
		return c.handle(ctx, workflow.StartWork{})
	case workflow.InProgress:
		return c.driveAgent(ctx, st)
	case workflow.Blocked:
		return c.recoverBlocker(ctx, st)
	case workflow.ReadyForReview:
		return c.openPullRequest(ctx, st)
	case workflow.UnderReview:
		return c.pollReviews(ctx, st)
	case workflow.ChangesRequested:
		return c.addressFeedback(ctx, st)
	case workflow.Approved:
		return c.attemptMerge(ctx, st)
	case workflow.MergeConflict:
		return c.resolveConflicts(ctx, st)
	case workflow.CIFailure:
		return c.fixChecks(ctx, st)
	default:
		// Terminal states take no action.
		return nil
	}
}

// pickUpNextIssue polls the host for the best assignable issue, claims
// a worker slot and the working label, and starts a workflow for it.
// The workspace is prepared on the next pass, from Unassigned.
func (c *Coordinator) pickUpNextIssue(ctx context.Context) error {
	issue, err := c.host.NextAssignment(ctx)
	if err != nil {
		if errors.Is(err, gaffererrors.ErrNoAssignment) {
			return ctxutil.Sleep(ctx, c.idlePoll)
		}
		return c.handleHostError(ctx, "next_assignment", err)
	}

	if err := c.slots.Acquire(issue.Number); err != nil {
		c.logger.Warn().Err(err).Int("issue", issue.Number).Msg("no slot for assignment")
		return ctxutil.Sleep(ctx, c.idlePoll)
	}
	if err := c.host.AddLabel(ctx, issue.Number, constants.WorkingLabel); err != nil {
		c.logger.Warn().Err(err).Int("issue", issue.Number).Msg("could not add working label")
	}

	c.finalized = false
	c.lastProgress = domain.WorkProgress{}
	c.addressed = nil

	c.logger.Info().
		Int("issue", issue.Number).
		Str("title", issue.Title).
		Str("priority", issue.Priority.String()).
		Msg("issue picked up")
	return c.handle(ctx, workflow.AssignAgent{Issue: issue, Agent: c.agentID})
}

// prepareWorkspace creates the working branch and delivers the ready
// workspace. A branch left over from a previous run counts as already
// prepared.
func (c *Coordinator) prepareWorkspace(ctx context.Context, st workflow.Unassigned) error {
	branch := st.Issue.BranchName()
	if err := c.host.CreateBranch(ctx, branch, c.baseBranch); err != nil && !errors.Is(err, gaffererrors.ErrBranchExists) {
		return c.handleHostError(ctx, "create_branch", err)
	}

	ws := domain.Workspace{
		BranchName:            branch,
		BaseBranch:            c.baseBranch,
		SetupComplete:         true,
		DependenciesInstalled: true,
	}
	c.logger.Info().Str("branch", branch).Int("issue", st.Issue.Number).Msg("workspace prepared")
	return c.handle(ctx, workflow.WorkspaceReady{Workspace: ws})
}

// driveAgent runs one work pass. Blockers outrank completion; an agent
// error is folded into a blocker so the recovery engine owns it.
func (c *Coordinator) driveAgent(ctx context.Context, st workflow.InProgress) error {
	obs, err := c.agent.Work(ctx, st.Issue, st.Progress)
	if err != nil {
		if ctxutil.Canceled(ctx) != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Int("issue", st.Issue.Number).Msg("work pass failed")
		return c.handle(ctx, workflow.EncounterBlocker{
			Blocker: domain.BuildFailureBlocker{Reason: err.Error()},
		})
	}

	switch {
	case obs.Blocker != nil:
		c.logger.Warn().
			Str("blocker", obs.Blocker.Kind().String()).
			Str("detail", obs.Blocker.Describe()).
			Msg("work blocked")
		return c.handle(ctx, workflow.EncounterBlocker{Blocker: obs.Blocker})
	case obs.Done:
		if obs.Commits > 0 || obs.FilesChanged > 0 {
			if err := c.handle(ctx, workflow.MakeProgress{Commits: obs.Commits, FilesChanged: obs.FilesChanged}); err != nil {
				return err
			}
		}
		c.logger.Info().Int("issue", st.Issue.Number).Msg("work complete")
		return c.handle(ctx, workflow.CompleteWork{})
	default:
		return c.handle(ctx, workflow.MakeProgress{Commits: obs.Commits, FilesChanged: obs.FilesChanged})
	}
}

// recoverBlocker runs the recovery engine over the blocker that stopped
// work. Blockers outside autonomous reach are left alone; the loop
// stops for a human instead.
func (c *Coordinator) recoverBlocker(ctx context.Context, st workflow.Blocked) error {
	if !blockerAutoRecoverable(st.Blocker) {
		return nil
	}

	kind := recovery.KindFromBlocker(st.Blocker)
	strategy := recovery.Classify(kind)
	attempt := c.engine.Execute(ctx, kind, strategy)
	c.metrics.RecoveryAttempted(strategy.Kind(), attempt.Success)

	if attempt.Success {
		c.logger.Info().
			Str("blocker", st.Blocker.Kind().String()).
			Str("strategy", strategy.Kind().String()).
			Msg("blocker resolved")
		return c.handle(ctx, workflow.ResolveBlocker{})
	}
	if strategy.Kind() == constants.StrategyEscalate {
		c.logger.Warn().
			Str("blocker", st.Blocker.Kind().String()).
			Msg("blocker escalated, retrying after wait")
		return ctxutil.Sleep(ctx, c.escalationRetry)
	}
	return c.handle(ctx, workflow.ForceAbandon{
		Reason: domain.UnresolvableBlocker{Blocker: st.Blocker},
	})
}

// openPullRequest submits the completed work for review.
func (c *Coordinator) openPullRequest(ctx context.Context, st workflow.ReadyForReview) error {
	pr, err := c.host.CreatePR(ctx, forge.PROptions{
		Title:      st.Issue.Title,
		Body:       prBody(st.Issue),
		BaseBranch: st.Workspace.BaseBranch,
		HeadBranch: st.Workspace.BranchName,
	})
	if err != nil {
		return c.handleHostError(ctx, "create_pr", err)
	}

	pr.Commits = st.Progress.CommitsMade
	pr.FilesChanged = st.Progress.FilesChanged
	c.logger.Info().Int("pr", pr.Number).Str("branch", pr.Branch).Msg("pull request opened")
	return c.handle(ctx, workflow.SubmitForReview{PR: pr})
}

// pollReviews checks for reviewer verdicts. Nothing new means wait: an
// empty result, or the same set the agent just addressed.
func (c *Coordinator) pollReviews(ctx context.Context, st workflow.UnderReview) error {
	feedback, err := c.reviews.Fetch(ctx, st.PR.Number)
	if err != nil {
		return c.handleHostError(ctx, "list_reviews", err)
	}
	if len(feedback) == 0 || feedbackEqual(feedback, c.addressed) {
		return ctxutil.Sleep(ctx, c.reviewPoll)
	}
	return c.handle(ctx, workflow.ReviewReceived{Feedback: feedback})
}

// addressFeedback has the agent revise the work per the blocking
// feedback, then resubmits for another review pass.
func (c *Coordinator) addressFeedback(ctx context.Context, st workflow.ChangesRequested) error {
	if err := c.agent.Address(ctx, st.Issue, st.Feedback); err != nil {
		if ctxutil.Canceled(ctx) != nil {
			return ctx.Err()
		}
		kind := recovery.BuildError{Stage: "address_feedback", Message: err.Error()}
		return c.recoverOperation(ctx, "address_feedback", kind, err)
	}

	c.addressed = st.Feedback
	c.logger.Info().Int("pr", st.PR.Number).Int("reviews", len(st.Feedback)).Msg("requested changes addressed")
	return c.handle(ctx, workflow.ChangesMade{})
}

// attemptMerge tries to land the approved pull request and routes the
// outcome: merged work concludes the workflow, conflicts and failing
// checks open their remediation states.
func (c *Coordinator) attemptMerge(ctx context.Context, st workflow.Approved) error {
	result, err := c.host.AttemptMerge(ctx, st.PR.Number)
	if err != nil {
		return c.handleHostError(ctx, "attempt_merge", err)
	}

	switch {
	case result.Merged:
		work := domain.CompletedWork{
			Issue:        st.Issue,
			Commits:      c.lastProgress.CommitsMade,
			FilesChanged: c.lastProgress.FilesChanged,
			TestsAdded:   c.lastProgress.TestsWritten,
			CompletedAt:  c.clk.Now(),
		}
		c.logger.Info().Int("pr", st.PR.Number).Int("issue", st.Issue.Number).Msg("pull request merged")
		return c.handle(ctx, workflow.MergeCompleted{Work: work})
	case len(result.Conflicts) > 0:
		c.logger.Warn().Int("pr", st.PR.Number).Int("conflicts", len(result.Conflicts)).Msg("merge hit conflicts")
		return c.handle(ctx, workflow.MergeConflictDetected{Conflicts: result.Conflicts})
	case len(result.Failures) > 0:
		c.logger.Warn().Int("pr", st.PR.Number).Int("failures", len(result.Failures)).Msg("merge rejected by failing checks")
		return c.handle(ctx, workflow.CIFailureDetected{Failures: result.Failures})
	default:
		return c.handle(ctx, workflow.ForceAbandon{
			Reason: domain.CriticalFailure{Reason: "merge attempt reported no outcome"},
		})
	}
}

// resolveConflicts attempts automated conflict resolution. Any conflict
// beyond automated reach abandons the workflow: merge conflicts do not
// improve by waiting.
func (c *Coordinator) resolveConflicts(ctx context.Context, st workflow.MergeConflict) error {
	files := make([]string, 0, len(st.Conflicts))
	for _, conflict := range st.Conflicts {
		if !conflict.AutoResolvable {
			return c.handle(ctx, workflow.ForceAbandon{
				Reason: domain.CriticalFailure{Reason: "merge conflict in " + conflict.Path + " needs manual resolution"},
			})
		}
		files = append(files, conflict.Path)
	}

	kind := recovery.MergeConflictError{Files: files, Count: len(files)}
	strategy := recovery.Classify(kind)
	attempt := c.engine.Execute(ctx, kind, strategy)
	c.metrics.RecoveryAttempted(strategy.Kind(), attempt.Success)

	if !attempt.Success {
		return c.handle(ctx, workflow.ForceAbandon{
			Reason: domain.CriticalFailure{Reason: fmt.Sprintf("could not resolve %d merge conflicts", len(files))},
		})
	}
	c.logger.Info().Int("files", len(files)).Msg("merge conflicts resolved")
	return c.handle(ctx, workflow.ConflictsResolved{})
}

// fixChecks attempts automated fixes for the failing CI jobs that
// rejected the merge. Like conflicts, a job beyond automated reach
// abandons the workflow.
func (c *Coordinator) fixChecks(ctx context.Context, st workflow.CIFailure) error {
	for _, failure := range st.Failures {
		if !failure.AutoFixable {
			return c.handle(ctx, workflow.ForceAbandon{
				Reason: domain.CriticalFailure{Reason: "CI job " + failure.JobName + " needs a manual fix"},
			})
		}
	}

	for _, failure := range st.Failures {
		kind := recovery.CIError{Job: failure.JobName, Message: failure.Message}
		strategy := recovery.Classify(kind)
		attempt := c.engine.Execute(ctx, kind, strategy)
		c.metrics.RecoveryAttempted(strategy.Kind(), attempt.Success)
		if !attempt.Success {
			return c.handle(ctx, workflow.ForceAbandon{
				Reason: domain.CriticalFailure{Reason: "automated fix failed for CI job " + failure.JobName},
			})
		}
	}

	c.logger.Info().Int("jobs", len(st.Failures)).Msg("failing checks fixed")
	return c.handle(ctx, workflow.CIFixed{})
}

// handleHostError routes a failed host call through the recovery
// engine.
func (c *Coordinator) handleHostError(ctx context.Context, op string, hostErr error) error {
	return c.recoverOperation(ctx, op, hostErrorKind(op, hostErr), hostErr)
}

// recoverOperation runs the recovery engine over a failed collaborator
// call. On success the caller's action simply runs again next pass.
// Escalations wait out the retry interval before the action is retried;
// any other failure abandons the workflow, or idles when no workflow is
// live to abandon.
func (c *Coordinator) recoverOperation(ctx context.Context, op string, kind recovery.ErrorKind, cause error) error {
	if ctxutil.Canceled(ctx) != nil {
		return ctx.Err()
	}

	strategy := recovery.Classify(kind)
	attempt := c.engine.Execute(ctx, kind, strategy)
	c.metrics.RecoveryAttempted(strategy.Kind(), attempt.Success)

	if attempt.Success {
		c.logger.Debug().Str("op", op).Str("strategy", strategy.Kind().String()).Msg("operation failure recovered")
		return nil
	}
	if strategy.Kind() == constants.StrategyEscalate {
		c.logger.Warn().Str("op", op).Err(cause).Msg("operation failure escalated, retrying after wait")
		return ctxutil.Sleep(ctx, c.escalationRetry)
	}
	if c.machine.Current() == nil {
		c.logger.Error().Str("op", op).Err(cause).Msg("operation failure unrecovered with no live workflow")
		return ctxutil.Sleep(ctx, c.idlePoll)
	}

	c.logger.Error().Str("op", op).Err(cause).Msg("operation failure unrecovered, abandoning workflow")
	return c.handle(ctx, workflow.ForceAbandon{
		Reason: domain.CriticalFailure{Reason: op + " failed: " + cause.Error()},
	})
}

// hostErrorKind maps a host error to the failure kind the classifier
// understands. Sentinel conditions carry their HTTP status; anything
// else is treated as a transient host outage, which classifies to a
// retry.
func hostErrorKind(op string, err error) recovery.ErrorKind {
	switch {
	case errors.Is(err, gaffererrors.ErrForgeRateLimited):
		return recovery.APIError{Status: http.StatusTooManyRequests, Reason: err.Error()}
	case errors.Is(err, gaffererrors.ErrForgeAuthFailed):
		return recovery.APIError{Status: http.StatusUnauthorized, Reason: err.Error()}
	default:
		return recovery.APIError{Status: http.StatusServiceUnavailable, Reason: op + ": " + err.Error()}
	}
}

// blockerAutoRecoverable reports whether the scheduler may attempt
// autonomous recovery for the blocker. Dependency, external service,
// and missing requirements problems need a human decision.
func blockerAutoRecoverable(b domain.Blocker) bool {
	switch b.(type) {
	case domain.TestFailureBlocker, domain.BuildFailureBlocker, domain.NetworkBlocker:
		return true
	default:
		return false
	}
}

// prBody builds the pull request description. The closing line links
// the pull request to its issue so the merge closes it on the host.
func prBody(issue domain.Issue) string {
	body := fmt.Sprintf("Closes #%d", issue.Number)
	if issue.Body != "" {
		body += "\n\n" + issue.Body
	}
	return body
}

// feedbackEqual reports whether two feedback sets carry the same
// verdicts, used to ignore a poll that re-serves the set the agent just
// addressed.
func feedbackEqual(a, b []domain.ReviewFeedback) bool {
	return slices.EqualFunc(a, b, func(x, y domain.ReviewFeedback) bool {
		return x.Reviewer == y.Reviewer &&
			x.Approved == y.Approved &&
			len(x.RequestedChanges) == len(y.RequestedChanges) &&
			len(x.Comments) == len(y.Comments)
	})
}
