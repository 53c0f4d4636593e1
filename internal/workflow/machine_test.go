package workflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/clock"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
	"github.com/gafferworks/gaffer/internal/workflow"
)

var testBaseTime = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func testIssue() domain.Issue {
	return domain.Issue{
		Number:   42,
		Title:    "add retry helper",
		Labels:   []string{"bug"},
		Priority: constants.PriorityHigh,
	}
}

func testWorkspace() domain.Workspace {
	return domain.Workspace{
		BranchName:            "fix/42-add-retry-helper",
		BaseBranch:            "main",
		SetupComplete:         true,
		DependenciesInstalled: true,
	}
}

func testPR() domain.PullRequest {
	return domain.PullRequest{
		Number:       117,
		Title:        "add retry helper",
		Branch:       "fix/42-add-retry-helper",
		Commits:      3,
		FilesChanged: 5,
	}
}

func testWork() domain.CompletedWork {
	return domain.CompletedWork{
		Issue:        testIssue(),
		Commits:      3,
		FilesChanged: 5,
		TestsAdded:   2,
		CompletedAt:  testBaseTime.Add(2 * time.Hour),
	}
}

func cleanFeedback() domain.ReviewFeedback {
	return domain.ReviewFeedback{Reviewer: "r1", Approved: true}
}

func blockingFeedback() domain.ReviewFeedback {
	return domain.ReviewFeedback{
		Reviewer: "r2",
		Approved: true,
		RequestedChanges: []domain.RequestedChange{
			{Path: "internal/retry/backoff.go", Description: "cap the delay at the configured maximum"},
		},
	}
}

func mustHandle(t *testing.T, m *workflow.Machine, ev workflow.Event) {
	t.Helper()
	require.NoError(t, m.Handle(context.Background(), ev))
}

// driveTo walks a fresh machine to the target status along the shortest
// canonical event path.
func driveTo(t *testing.T, m *workflow.Machine, target constants.WorkflowStatus) {
	t.Helper()

	switch target {
	case constants.StatusUnassigned:
		mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: false})
	case constants.StatusAssigned:
		mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: true})
	case constants.StatusInProgress:
		driveTo(t, m, constants.StatusAssigned)
		mustHandle(t, m, workflow.StartWork{})
	case constants.StatusBlocked:
		driveTo(t, m, constants.StatusInProgress)
		mustHandle(t, m, workflow.EncounterBlocker{Blocker: domain.TestFailureBlocker{TestName: "t1", Reason: "assertion failed"}})
	case constants.StatusReadyForReview:
		driveTo(t, m, constants.StatusInProgress)
		mustHandle(t, m, workflow.CompleteWork{})
	case constants.StatusUnderReview:
		driveTo(t, m, constants.StatusReadyForReview)
		mustHandle(t, m, workflow.SubmitForReview{PR: testPR()})
	case constants.StatusChangesRequested:
		driveTo(t, m, constants.StatusUnderReview)
		mustHandle(t, m, workflow.ReviewReceived{Feedback: []domain.ReviewFeedback{blockingFeedback()}})
	case constants.StatusApproved:
		driveTo(t, m, constants.StatusUnderReview)
		mustHandle(t, m, workflow.ReviewReceived{Feedback: []domain.ReviewFeedback{cleanFeedback()}})
	case constants.StatusMergeConflict:
		driveTo(t, m, constants.StatusApproved)
		mustHandle(t, m, workflow.MergeConflictDetected{Conflicts: []domain.Conflict{{Path: "internal/app/router.go", AutoResolvable: true}}})
	case constants.StatusCIFailure:
		driveTo(t, m, constants.StatusApproved)
		mustHandle(t, m, workflow.CIFailureDetected{Failures: []domain.CheckFailure{{JobName: "unit-tests", Message: "TestRouter failed", AutoFixable: true}}})
	case constants.StatusMerged:
		driveTo(t, m, constants.StatusApproved)
		mustHandle(t, m, workflow.MergeCompleted{Work: testWork()})
	case constants.StatusAbandoned:
		driveTo(t, m, constants.StatusAssigned)
		mustHandle(t, m, workflow.ForceAbandon{Reason: domain.RequirementsChanged{}})
	default:
		t.Fatalf("no drive path for status %s", target)
	}
}

func liveStatuses() []constants.WorkflowStatus {
	return []constants.WorkflowStatus{
		constants.StatusUnassigned,
		constants.StatusAssigned,
		constants.StatusInProgress,
		constants.StatusBlocked,
		constants.StatusReadyForReview,
		constants.StatusUnderReview,
		constants.StatusChangesRequested,
		constants.StatusApproved,
		constants.StatusMergeConflict,
		constants.StatusCIFailure,
	}
}

func allEvents() []workflow.Event {
	return []workflow.Event{
		workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: true},
		workflow.WorkspaceReady{Workspace: testWorkspace()},
		workflow.StartWork{},
		workflow.MakeProgress{Commits: 1, FilesChanged: 2},
		workflow.EncounterBlocker{Blocker: domain.NetworkBlocker{Reason: "registry unreachable"}},
		workflow.ResolveBlocker{},
		workflow.CompleteWork{},
		workflow.SubmitForReview{PR: testPR()},
		workflow.ReviewReceived{Feedback: []domain.ReviewFeedback{cleanFeedback()}},
		workflow.ChangesMade{},
		workflow.ApprovalReceived{},
		workflow.MergeConflictDetected{},
		workflow.CIFailureDetected{},
		workflow.ConflictsResolved{},
		workflow.CIFixed{},
		workflow.MergeCompleted{Work: testWork()},
		workflow.ForceAbandon{Reason: domain.RequirementsChanged{}},
		workflow.AutoRecover{},
		workflow.Reset{},
	}
}

func TestMachine_InitialState(t *testing.T) {
	m := workflow.NewMachine()

	assert.Nil(t, m.Current())
	assert.Equal(t, constants.StatusNone, m.Status())
	assert.Empty(t, m.History())
	assert.Empty(t, m.Agent())
	assert.False(t, m.TimedOut())
}

func TestMachine_AssignAgent(t *testing.T) {
	t.Run("ready workspace goes straight to assigned", func(t *testing.T) {
		m := workflow.NewMachine()
		mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: true})

		st, ok := m.Current().(workflow.Assigned)
		require.True(t, ok, "expected Assigned, got %T", m.Current())
		assert.Equal(t, testIssue(), st.Issue)
		assert.Equal(t, domain.AgentID("a1"), st.Agent)
		assert.Equal(t, testWorkspace(), st.Workspace)
		assert.Equal(t, domain.AgentID("a1"), m.Agent())
	})

	t.Run("unready workspace parks in unassigned", func(t *testing.T) {
		m := workflow.NewMachine()
		mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: false})

		st, ok := m.Current().(workflow.Unassigned)
		require.True(t, ok, "expected Unassigned, got %T", m.Current())
		assert.Equal(t, testIssue(), st.Issue)
		assert.Equal(t, domain.AgentID("a1"), st.Agent)
	})

	t.Run("workspace delivery promotes unassigned to assigned", func(t *testing.T) {
		m := workflow.NewMachine()
		mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", WorkspaceReady: false})
		mustHandle(t, m, workflow.WorkspaceReady{Workspace: testWorkspace()})

		st, ok := m.Current().(workflow.Assigned)
		require.True(t, ok, "expected Assigned, got %T", m.Current())
		assert.Equal(t, domain.AgentID("a1"), st.Agent)
		assert.Equal(t, testWorkspace(), st.Workspace)
	})

	t.Run("double assignment is rejected", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusAssigned)

		err := m.Handle(context.Background(), workflow.AssignAgent{Issue: testIssue(), Agent: "a2", WorkspaceReady: true})
		require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
		assert.Equal(t, constants.StatusAssigned, m.Status())
	})
}

func TestMachine_HappyPath(t *testing.T) {
	m := workflow.NewMachine()

	mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: true})
	mustHandle(t, m, workflow.StartWork{})
	mustHandle(t, m, workflow.MakeProgress{Commits: 3, FilesChanged: 5})
	mustHandle(t, m, workflow.CompleteWork{})
	mustHandle(t, m, workflow.SubmitForReview{PR: testPR()})
	mustHandle(t, m, workflow.ReviewReceived{Feedback: []domain.ReviewFeedback{cleanFeedback()}})
	mustHandle(t, m, workflow.MergeCompleted{Work: testWork()})

	final, ok := m.Current().(workflow.Merged)
	require.True(t, ok, "expected Merged, got %T", m.Current())
	assert.Equal(t, testIssue(), final.Issue)
	assert.Equal(t, testWork(), final.Work)

	wantStatuses := []constants.WorkflowStatus{
		constants.StatusAssigned,
		constants.StatusInProgress,
		constants.StatusInProgress,
		constants.StatusReadyForReview,
		constants.StatusUnderReview,
		constants.StatusApproved,
		constants.StatusMerged,
	}
	history := m.History()
	require.Len(t, history, len(wantStatuses))
	for i, record := range history {
		assert.Equal(t, wantStatuses[i], record.ToStatus, "record %d", i)
	}
}

func TestMachine_MakeProgress(t *testing.T) {
	t.Run("counters accumulate across events", func(t *testing.T) {
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(workflow.WithClock(mock))
		driveTo(t, m, constants.StatusInProgress)

		mustHandle(t, m, workflow.MakeProgress{Commits: 2, FilesChanged: 3})
		mock.Advance(30 * time.Minute)
		mustHandle(t, m, workflow.MakeProgress{Commits: 1, FilesChanged: 4})

		st, ok := m.Current().(workflow.InProgress)
		require.True(t, ok)
		assert.Equal(t, 3, st.Progress.CommitsMade)
		assert.Equal(t, 7, st.Progress.FilesChanged)
		assert.Equal(t, 30, st.Progress.ElapsedMinutes)
		assert.Zero(t, st.Progress.CompletionPercentage)
	})

	t.Run("negative deltas are ignored", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusInProgress)

		mustHandle(t, m, workflow.MakeProgress{Commits: 2, FilesChanged: 3})
		mustHandle(t, m, workflow.MakeProgress{Commits: -5, FilesChanged: -1})

		st, ok := m.Current().(workflow.InProgress)
		require.True(t, ok)
		assert.Equal(t, 2, st.Progress.CommitsMade)
		assert.Equal(t, 3, st.Progress.FilesChanged)
	})
}

func TestMachine_BlockerRoundTrip(t *testing.T) {
	t.Run("blocker is retained verbatim", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusInProgress)
		mustHandle(t, m, workflow.MakeProgress{Commits: 3, FilesChanged: 4})

		blocker := domain.TestFailureBlocker{TestName: "t1", Reason: "assertion failed"}
		mustHandle(t, m, workflow.EncounterBlocker{Blocker: blocker})

		st, ok := m.Current().(workflow.Blocked)
		require.True(t, ok, "expected Blocked, got %T", m.Current())
		assert.Equal(t, blocker, st.Blocker)
		assert.Equal(t, 3, st.Progress.CommitsMade)
	})

	t.Run("resolve forces completion to the default resume value", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusInProgress)
		mustHandle(t, m, workflow.MakeProgress{Commits: 3, FilesChanged: 4})
		mustHandle(t, m, workflow.EncounterBlocker{Blocker: domain.BuildFailureBlocker{Reason: "linker error"}})
		mustHandle(t, m, workflow.ResolveBlocker{})

		st, ok := m.Current().(workflow.InProgress)
		require.True(t, ok, "expected InProgress, got %T", m.Current())
		assert.InDelta(t, 50.0, st.Progress.CompletionPercentage, 0.0001)
		assert.Equal(t, 3, st.Progress.CommitsMade)
		assert.Equal(t, 4, st.Progress.FilesChanged)
	})

	t.Run("resolve honors a configured resume value", func(t *testing.T) {
		m := workflow.NewMachine(workflow.WithResumeCompletion(25))
		driveTo(t, m, constants.StatusBlocked)
		mustHandle(t, m, workflow.ResolveBlocker{})

		st, ok := m.Current().(workflow.InProgress)
		require.True(t, ok)
		assert.InDelta(t, 25.0, st.Progress.CompletionPercentage, 0.0001)
	})
}

func TestMachine_ReviewTieBreak(t *testing.T) {
	t.Run("one blocking entry outweighs approvals", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusUnderReview)

		feedback := []domain.ReviewFeedback{cleanFeedback(), blockingFeedback()}
		mustHandle(t, m, workflow.ReviewReceived{Feedback: feedback})

		st, ok := m.Current().(workflow.ChangesRequested)
		require.True(t, ok, "expected ChangesRequested, got %T", m.Current())
		assert.Equal(t, feedback, st.Feedback)
	})

	t.Run("all clean entries approve", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusUnderReview)

		mustHandle(t, m, workflow.ReviewReceived{Feedback: []domain.ReviewFeedback{cleanFeedback(), {Reviewer: "r3", Approved: true}}})
		assert.Equal(t, constants.StatusApproved, m.Status())
	})

	t.Run("empty feedback approves", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusUnderReview)

		mustHandle(t, m, workflow.ReviewReceived{})
		assert.Equal(t, constants.StatusApproved, m.Status())
	})
}

func TestMachine_ChangesCycle(t *testing.T) {
	t.Run("changes made returns to review", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusChangesRequested)

		mustHandle(t, m, workflow.ChangesMade{})
		st, ok := m.Current().(workflow.UnderReview)
		require.True(t, ok)
		assert.Equal(t, testPR(), st.PR)

		mustHandle(t, m, workflow.ReviewReceived{Feedback: []domain.ReviewFeedback{cleanFeedback()}})
		assert.Equal(t, constants.StatusApproved, m.Status())
	})

	t.Run("direct approval after changes", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusChangesRequested)

		mustHandle(t, m, workflow.ApprovalReceived{})
		assert.Equal(t, constants.StatusApproved, m.Status())
	})
}

func TestMachine_MergeObstacles(t *testing.T) {
	t.Run("conflict resolution returns to approved not merged", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusApproved)

		conflicts := []domain.Conflict{{Path: "go.sum", AutoResolvable: true}}
		mustHandle(t, m, workflow.MergeConflictDetected{Conflicts: conflicts})

		st, ok := m.Current().(workflow.MergeConflict)
		require.True(t, ok)
		assert.Equal(t, conflicts, st.Conflicts)

		mustHandle(t, m, workflow.ConflictsResolved{})
		assert.Equal(t, constants.StatusApproved, m.Status())
	})

	t.Run("ci fix returns to approved not merged", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusApproved)

		failures := []domain.CheckFailure{{JobName: "lint", Message: "gofmt diff", AutoFixable: true}}
		mustHandle(t, m, workflow.CIFailureDetected{Failures: failures})

		st, ok := m.Current().(workflow.CIFailure)
		require.True(t, ok)
		assert.Equal(t, failures, st.Failures)

		mustHandle(t, m, workflow.CIFixed{})
		assert.Equal(t, constants.StatusApproved, m.Status())
	})

	t.Run("second merge attempt can complete", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusMergeConflict)

		mustHandle(t, m, workflow.ConflictsResolved{})
		mustHandle(t, m, workflow.MergeCompleted{Work: testWork()})
		assert.Equal(t, constants.StatusMerged, m.Status())
	})
}

func TestMachine_ForceAbandon(t *testing.T) {
	for _, status := range liveStatuses() {
		t.Run("valid from "+status.String(), func(t *testing.T) {
			m := workflow.NewMachine()
			driveTo(t, m, status)

			reason := domain.CriticalFailure{Reason: "unrecoverable workspace"}
			mustHandle(t, m, workflow.ForceAbandon{Reason: reason})

			st, ok := m.Current().(workflow.Abandoned)
			require.True(t, ok, "expected Abandoned, got %T", m.Current())
			assert.Equal(t, testIssue(), st.Issue)
			assert.Equal(t, reason, st.Reason)
		})
	}

	t.Run("rejected from merged", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusMerged)

		err := m.Handle(context.Background(), workflow.ForceAbandon{Reason: domain.RequirementsChanged{}})
		require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
	})

	t.Run("rejected from abandoned", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusAbandoned)

		err := m.Handle(context.Background(), workflow.ForceAbandon{Reason: domain.RequirementsChanged{}})
		require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
	})
}

func TestMachine_TimeoutPreemption(t *testing.T) {
	t.Run("zero box abandons on the next event", func(t *testing.T) {
		m := workflow.NewMachine(workflow.WithMaxWorkHours(0))
		driveTo(t, m, constants.StatusAssigned)

		mustHandle(t, m, workflow.StartWork{})

		st, ok := m.Current().(workflow.Abandoned)
		require.True(t, ok, "expected Abandoned, got %T", m.Current())
		assert.Equal(t, constants.AbandonTimeoutExceeded, st.Reason.Kind())
	})

	t.Run("zero box pre-empts even force abandon", func(t *testing.T) {
		m := workflow.NewMachine(workflow.WithMaxWorkHours(0))
		driveTo(t, m, constants.StatusAssigned)

		mustHandle(t, m, workflow.ForceAbandon{Reason: domain.RequirementsChanged{}})

		st, ok := m.Current().(workflow.Abandoned)
		require.True(t, ok)
		assert.Equal(t, constants.AbandonTimeoutExceeded, st.Reason.Kind(),
			"timeout must win over the event's own reason")
	})

	t.Run("expired box discards the queued event", func(t *testing.T) {
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(workflow.WithClock(mock), workflow.WithMaxWorkHours(8))
		driveTo(t, m, constants.StatusInProgress)

		mock.Advance(8*time.Hour + time.Minute)
		mustHandle(t, m, workflow.MakeProgress{Commits: 1})

		st, ok := m.Current().(workflow.Abandoned)
		require.True(t, ok, "expected Abandoned, got %T", m.Current())
		assert.Equal(t, testIssue(), st.Issue)

		history := m.History()
		last := history[len(history)-1]
		assert.Equal(t, "timeout_exceeded", last.Event)
		assert.Equal(t, constants.StatusAbandoned, last.ToStatus)
	})

	t.Run("exactly at the limit still processes", func(t *testing.T) {
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(workflow.WithClock(mock), workflow.WithMaxWorkHours(8))
		driveTo(t, m, constants.StatusInProgress)

		mock.Advance(8 * time.Hour)
		mustHandle(t, m, workflow.MakeProgress{Commits: 1})
		assert.Equal(t, constants.StatusInProgress, m.Status())
	})

	t.Run("box only runs while work is started", func(t *testing.T) {
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(workflow.WithClock(mock), workflow.WithMaxWorkHours(8))
		driveTo(t, m, constants.StatusAssigned)

		mock.Advance(9 * time.Hour)
		assert.False(t, m.TimedOut())
		mustHandle(t, m, workflow.StartWork{})
		assert.Equal(t, constants.StatusInProgress, m.Status())
	})

	t.Run("terminal states outlive the box", func(t *testing.T) {
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(workflow.WithClock(mock), workflow.WithMaxWorkHours(8))
		driveTo(t, m, constants.StatusMerged)

		mock.Advance(24 * time.Hour)
		assert.False(t, m.TimedOut())
		mustHandle(t, m, workflow.Reset{})
		assert.Equal(t, constants.StatusNone, m.Status())
	})

	t.Run("timed out reports before the abandoning event", func(t *testing.T) {
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(workflow.WithClock(mock), workflow.WithMaxWorkHours(1))
		driveTo(t, m, constants.StatusInProgress)

		assert.False(t, m.TimedOut())
		mock.Advance(90 * time.Minute)
		assert.True(t, m.TimedOut())
	})
}

func TestMachine_Reset(t *testing.T) {
	for _, status := range liveStatuses() {
		t.Run("rejected from "+status.String(), func(t *testing.T) {
			m := workflow.NewMachine()
			driveTo(t, m, status)

			err := m.Handle(context.Background(), workflow.Reset{})
			require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
			assert.Equal(t, status, m.Status())
		})
	}

	t.Run("clears a merged workflow", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusMerged)

		mustHandle(t, m, workflow.Reset{})

		assert.Nil(t, m.Current())
		assert.Equal(t, constants.StatusNone, m.Status())
		assert.Empty(t, m.Agent())

		history := m.History()
		last := history[len(history)-1]
		assert.Equal(t, "reset", last.Event)
		assert.Equal(t, constants.StatusNone, last.ToStatus)
	})

	t.Run("clears an abandoned workflow", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusAbandoned)

		mustHandle(t, m, workflow.Reset{})
		assert.Equal(t, constants.StatusNone, m.Status())
	})

	t.Run("a fresh assignment works after reset", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusMerged)
		mustHandle(t, m, workflow.Reset{})

		mustHandle(t, m, workflow.AssignAgent{Issue: domain.Issue{Number: 43, Title: "next up"}, Agent: "a2", Workspace: testWorkspace(), WorkspaceReady: true})
		assert.Equal(t, constants.StatusAssigned, m.Status())
		assert.Equal(t, domain.AgentID("a2"), m.Agent())
	})
}

func TestMachine_AutoRecover(t *testing.T) {
	for _, status := range liveStatuses() {
		t.Run("keeps state in "+status.String(), func(t *testing.T) {
			m := workflow.NewMachine()
			driveTo(t, m, status)
			before := m.Current()

			mustHandle(t, m, workflow.AutoRecover{})

			assert.Equal(t, before, m.Current())
			history := m.History()
			last := history[len(history)-1]
			assert.Equal(t, "auto_recover", last.Event)
			require.NotNil(t, last.FromStatus)
			assert.Equal(t, status, *last.FromStatus)
			assert.Equal(t, status, last.ToStatus)
		})
	}

	t.Run("rejected with no workflow", func(t *testing.T) {
		m := workflow.NewMachine()
		err := m.Handle(context.Background(), workflow.AutoRecover{})
		require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
	})

	t.Run("rejected from terminal states", func(t *testing.T) {
		m := workflow.NewMachine()
		driveTo(t, m, constants.StatusMerged)
		err := m.Handle(context.Background(), workflow.AutoRecover{})
		require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
	})
}

func TestMachine_Totality(t *testing.T) {
	statuses := append([]constants.WorkflowStatus{constants.StatusNone}, liveStatuses()...)
	statuses = append(statuses, constants.StatusMerged, constants.StatusAbandoned)

	for _, status := range statuses {
		for _, ev := range allEvents() {
			name := status.String() + "/" + ev.Name()
			t.Run(name, func(t *testing.T) {
				m := workflow.NewMachine()
				if status != constants.StatusNone {
					driveTo(t, m, status)
				}

				var err error
				require.NotPanics(t, func() {
					err = m.Handle(context.Background(), ev)
				})
				if err != nil {
					assert.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
				}
			})
		}
	}
}

func TestMachine_InvalidTransitionDetail(t *testing.T) {
	m := workflow.NewMachine()
	before := len(m.History())

	err := m.Handle(context.Background(), workflow.StartWork{})
	require.ErrorIs(t, err, gaffererrors.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "start_work")
	assert.Contains(t, err.Error(), "none")
	assert.Len(t, m.History(), before, "rejected events must not touch history")
}

func TestMachine_HistoryChain(t *testing.T) {
	m := workflow.NewMachine()
	driveTo(t, m, constants.StatusMerged)

	history := m.History()
	require.NotEmpty(t, history)

	assert.Nil(t, history[0].FromStatus, "first record starts from the no-state")
	for i := 1; i < len(history); i++ {
		require.NotNil(t, history[i].FromStatus, "record %d", i)
		assert.Equal(t, history[i-1].ToStatus, *history[i].FromStatus,
			"record %d must chain from the prior record", i)
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp),
			"record %d timestamp must not move backwards", i)
	}

	t.Run("returned slice is a copy", func(t *testing.T) {
		first := m.History()
		first[0].Event = "tampered"
		assert.NotEqual(t, "tampered", m.History()[0].Event)
	})
}

func TestMachine_TerminalHook(t *testing.T) {
	t.Run("fires on merge", func(t *testing.T) {
		var finals []workflow.State
		var records []domain.TransitionRecord
		m := workflow.NewMachine(workflow.WithTerminalHook(func(final workflow.State, record domain.TransitionRecord) {
			finals = append(finals, final)
			records = append(records, record)
		}))

		driveTo(t, m, constants.StatusMerged)

		require.Len(t, finals, 1)
		assert.IsType(t, workflow.Merged{}, finals[0])
		assert.Equal(t, constants.StatusMerged, records[0].ToStatus)
	})

	t.Run("fires on abandonment but not on live transitions", func(t *testing.T) {
		var count int
		m := workflow.NewMachine(workflow.WithTerminalHook(func(workflow.State, domain.TransitionRecord) {
			count++
		}))

		driveTo(t, m, constants.StatusInProgress)
		assert.Zero(t, count)

		mustHandle(t, m, workflow.ForceAbandon{Reason: domain.DependencyIssues{}})
		assert.Equal(t, 1, count)

		mustHandle(t, m, workflow.Reset{})
		assert.Equal(t, 1, count, "reset is not a terminal transition")
	})

	t.Run("fires on timeout abandonment", func(t *testing.T) {
		var got workflow.State
		mock := clock.NewMock(testBaseTime)
		m := workflow.NewMachine(
			workflow.WithClock(mock),
			workflow.WithMaxWorkHours(1),
			workflow.WithTerminalHook(func(final workflow.State, _ domain.TransitionRecord) {
				got = final
			}),
		)
		driveTo(t, m, constants.StatusInProgress)

		mock.Advance(2 * time.Hour)
		mustHandle(t, m, workflow.CompleteWork{})

		st, ok := got.(workflow.Abandoned)
		require.True(t, ok, "expected Abandoned, got %T", got)
		assert.Equal(t, constants.AbandonTimeoutExceeded, st.Reason.Kind())
	})
}

func TestMachine_Snapshot(t *testing.T) {
	mock := clock.NewMock(testBaseTime)
	m := workflow.NewMachine(workflow.WithClock(mock), workflow.WithMaxWorkHours(8))

	t.Run("initial", func(t *testing.T) {
		snap := m.Snapshot()
		assert.Equal(t, constants.StatusNone, snap.Status)
		assert.Empty(t, snap.AgentID)
		assert.Nil(t, snap.StartedAt)
		assert.Zero(t, snap.TransitionCount)
		assert.Nil(t, snap.LastTransitionAt)
		assert.Equal(t, 8*time.Hour, snap.TimeRemaining)
	})

	t.Run("after work starts", func(t *testing.T) {
		mock.Advance(10 * time.Minute)
		mustHandle(t, m, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", Workspace: testWorkspace(), WorkspaceReady: true})
		mock.Advance(5 * time.Minute)
		mustHandle(t, m, workflow.StartWork{})
		mock.Advance(time.Hour)

		snap := m.Snapshot()
		assert.Equal(t, constants.StatusInProgress, snap.Status)
		assert.Equal(t, domain.AgentID("a1"), snap.AgentID)
		require.NotNil(t, snap.StartedAt)
		assert.Equal(t, testBaseTime.Add(15*time.Minute), *snap.StartedAt)
		assert.Equal(t, 75*time.Minute, snap.Uptime)
		assert.Equal(t, 7*time.Hour, snap.TimeRemaining)
		assert.Equal(t, 2, snap.TransitionCount)
		require.NotNil(t, snap.LastTransitionAt)
		assert.Equal(t, testBaseTime.Add(15*time.Minute), *snap.LastTransitionAt)
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		mock.Advance(20 * time.Hour)
		snap := m.Snapshot()
		assert.Zero(t, snap.TimeRemaining)
	})
}

func TestMachine_ConcurrentReads(t *testing.T) {
	m := workflow.NewMachine()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_ = m.Snapshot()
					_ = m.History()
					_ = m.Status()
				}
			}
		}()
	}

	driveTo(t, m, constants.StatusMerged)
	close(stop)
	wg.Wait()

	assert.Equal(t, constants.StatusMerged, m.Status())
}

func TestMachine_ContextCancellation(t *testing.T) {
	m := workflow.NewMachine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Handle(ctx, workflow.AssignAgent{Issue: testIssue(), Agent: "a1", WorkspaceReady: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, constants.StatusNone, m.Status())
}
