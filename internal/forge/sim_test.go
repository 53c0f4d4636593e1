package forge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

func TestSim_NextAssignment(t *testing.T) {
	t.Run("ranks by priority then number and consumes", func(t *testing.T) {
		sim := NewSim()
		sim.QueueIssue(domain.Issue{Number: 5, Title: "five", Priority: constants.PriorityMedium})
		sim.QueueIssue(domain.Issue{Number: 9, Title: "nine", Priority: constants.PriorityHigh})
		sim.QueueIssue(domain.Issue{Number: 2, Title: "two", Priority: constants.PriorityHigh})

		var order []int
		for i := 0; i < 3; i++ {
			issue, err := sim.NextAssignment(context.Background())
			require.NoError(t, err)
			order = append(order, issue.Number)
		}

		assert.Equal(t, []int{2, 9, 5}, order)

		_, err := sim.NextAssignment(context.Background())
		assert.ErrorIs(t, err, gaffererrors.ErrNoAssignment)
	})

	t.Run("empty queue", func(t *testing.T) {
		_, err := NewSim().NextAssignment(context.Background())
		assert.ErrorIs(t, err, gaffererrors.ErrNoAssignment)
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewSim().NextAssignment(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSim_FetchIssue(t *testing.T) {
	sim := NewSim()
	sim.QueueIssue(domain.Issue{Number: 42, Title: "add retry helper", Priority: constants.PriorityHigh})

	t.Run("known issue survives assignment", func(t *testing.T) {
		_, err := sim.NextAssignment(context.Background())
		require.NoError(t, err)

		issue, err := sim.FetchIssue(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, "add retry helper", issue.Title)
	})

	t.Run("unknown issue", func(t *testing.T) {
		_, err := sim.FetchIssue(context.Background(), 999)
		assert.ErrorIs(t, err, gaffererrors.ErrIssueNotFound)
	})
}

func TestSim_CreateBranch(t *testing.T) {
	sim := NewSim()

	require.NoError(t, sim.CreateBranch(context.Background(), "fix/42-add-retry-helper", ""))
	assert.True(t, sim.HasBranch("fix/42-add-retry-helper"))
	assert.False(t, sim.HasBranch("fix/43-unrelated"))

	err := sim.CreateBranch(context.Background(), "fix/42-add-retry-helper", "main")
	assert.ErrorIs(t, err, gaffererrors.ErrBranchExists)

	err = sim.CreateBranch(context.Background(), "", "main")
	assert.ErrorIs(t, err, gaffererrors.ErrEmptyValue)
}

func TestSim_CreatePR(t *testing.T) {
	sim := NewSim()

	first, err := sim.CreatePR(context.Background(), PROptions{Title: "one", HeadBranch: "fix/1"})
	require.NoError(t, err)
	second, err := sim.CreatePR(context.Background(), PROptions{Title: "two", HeadBranch: "fix/2"})
	require.NoError(t, err)

	assert.Equal(t, simFirstPRNumber, first.Number)
	assert.Equal(t, simFirstPRNumber+1, second.Number)
	assert.Equal(t, "fix/2", second.Branch)

	_, err = sim.CreatePR(context.Background(), PROptions{HeadBranch: "fix/3"})
	assert.ErrorIs(t, err, gaffererrors.ErrEmptyValue)
}

func TestSim_ListReviews(t *testing.T) {
	t.Run("scripted rounds consume in order", func(t *testing.T) {
		sim := NewSim()
		pr, err := sim.CreatePR(context.Background(), PROptions{Title: "t", HeadBranch: "h"})
		require.NoError(t, err)

		blocking := []domain.ReviewFeedback{{
			Reviewer:         "bob",
			RequestedChanges: []domain.RequestedChange{{Path: "main.go", Description: "rename"}},
		}}
		sim.ScriptReviews(pr.Number, blocking)

		round, err := sim.ListReviews(context.Background(), pr.Number)
		require.NoError(t, err)
		require.Len(t, round, 1)
		assert.True(t, round[0].Blocking())

		// Script exhausted: defaults to approval.
		round, err = sim.ListReviews(context.Background(), pr.Number)
		require.NoError(t, err)
		require.Len(t, round, 1)
		assert.True(t, round[0].Approved)
		assert.False(t, round[0].Blocking())
	})

	t.Run("unknown PR", func(t *testing.T) {
		_, err := NewSim().ListReviews(context.Background(), 999)
		assert.ErrorIs(t, err, gaffererrors.ErrPRNotFound)
	})
}

func TestSim_AttemptMerge(t *testing.T) {
	t.Run("scripted outcomes consume in order", func(t *testing.T) {
		sim := NewSim()
		pr, err := sim.CreatePR(context.Background(), PROptions{Title: "t", HeadBranch: "h"})
		require.NoError(t, err)

		sim.ScriptMerge(pr.Number, MergeResult{
			Conflicts: []domain.Conflict{{Path: "go.sum", AutoResolvable: true}},
		})

		result, err := sim.AttemptMerge(context.Background(), pr.Number)
		require.NoError(t, err)
		assert.False(t, result.Merged)
		require.Len(t, result.Conflicts, 1)

		// Script exhausted: defaults to a landed merge.
		result, err = sim.AttemptMerge(context.Background(), pr.Number)
		require.NoError(t, err)
		assert.True(t, result.Merged)
	})

	t.Run("unknown PR", func(t *testing.T) {
		_, err := NewSim().AttemptMerge(context.Background(), 999)
		assert.ErrorIs(t, err, gaffererrors.ErrPRNotFound)
	})
}

func TestSim_Labels(t *testing.T) {
	sim := NewSim()
	sim.QueueIssue(domain.Issue{Number: 42, Title: "t", Labels: []string{"bug"}})

	require.NoError(t, sim.AddLabel(context.Background(), 42, constants.WorkingLabel))
	assert.Equal(t, []string{"bug", constants.WorkingLabel}, sim.Labels(42))

	// Adding again is idempotent.
	require.NoError(t, sim.AddLabel(context.Background(), 42, constants.WorkingLabel))
	assert.Len(t, sim.Labels(42), 2)

	require.NoError(t, sim.RemoveLabel(context.Background(), 42, constants.WorkingLabel))
	assert.Equal(t, []string{"bug"}, sim.Labels(42))

	// Removing an absent label, or from an unknown issue, is a no-op.
	require.NoError(t, sim.RemoveLabel(context.Background(), 42, "never-there"))
	require.NoError(t, sim.RemoveLabel(context.Background(), 999, "whatever"))

	err := sim.AddLabel(context.Background(), 999, constants.WorkingLabel)
	assert.ErrorIs(t, err, gaffererrors.ErrIssueNotFound)

	// Mutating the returned slice does not leak into the Sim.
	labels := sim.Labels(42)
	labels[0] = "mutated"
	assert.Equal(t, []string{"bug"}, sim.Labels(42))
}
