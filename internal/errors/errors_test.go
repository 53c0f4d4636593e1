package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// testError is a custom error type used to test default branches
// in UserMessage and Actionable without matching any sentinel.
type testError struct {
	msg string
}

func (e testError) Error() string {
	return e.msg
}

func TestSentinelErrors_Existence(t *testing.T) {
	// Verify all sentinel errors exist and are non-nil
	sentinels := []struct {
		name string
		err  error
	}{
		{"ErrInvalidTransition", gaffererrors.ErrInvalidTransition},
		{"ErrWorkflowNotStarted", gaffererrors.ErrWorkflowNotStarted},
		{"ErrWorkflowFinished", gaffererrors.ErrWorkflowFinished},
		{"ErrMaxRetriesExceeded", gaffererrors.ErrMaxRetriesExceeded},
		{"ErrEscalated", gaffererrors.ErrEscalated},
		{"ErrFixFailed", gaffererrors.ErrFixFailed},
		{"ErrForgeOperation", gaffererrors.ErrForgeOperation},
		{"ErrForgeRateLimited", gaffererrors.ErrForgeRateLimited},
		{"ErrNoAssignment", gaffererrors.ErrNoAssignment},
		{"ErrMergeBlocked", gaffererrors.ErrMergeBlocked},
		{"ErrSlotsExhausted", gaffererrors.ErrSlotsExhausted},
		{"ErrAuditClosed", gaffererrors.ErrAuditClosed},
	}

	for _, tc := range sentinels {
		t.Run(tc.name, func(t *testing.T) {
			require.Error(t, tc.err, "%s should not be nil", tc.name)
			assert.NotEmpty(t, tc.err.Error(), "%s should have a message", tc.name)
		})
	}
}

func TestSentinelErrors_Messages(t *testing.T) {
	// Verify all sentinel errors have lowercase messages per Go conventions
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"ErrInvalidTransition", gaffererrors.ErrInvalidTransition, "invalid state transition"},
		{"ErrWorkflowNotStarted", gaffererrors.ErrWorkflowNotStarted, "workflow not started"},
		{"ErrMaxRetriesExceeded", gaffererrors.ErrMaxRetriesExceeded, "maximum retry attempts exceeded"},
		{"ErrEscalated", gaffererrors.ErrEscalated, "escalated to human"},
		{"ErrForgeOperation", gaffererrors.ErrForgeOperation, "forge operation failed"},
		{"ErrForgeRateLimited", gaffererrors.ErrForgeRateLimited, "forge rate limited"},
		{"ErrNoAssignment", gaffererrors.ErrNoAssignment, "no assignment available"},
		{"ErrMergeBlocked", gaffererrors.ErrMergeBlocked, "merge blocked"},
		{"ErrSlotsExhausted", gaffererrors.ErrSlotsExhausted, "no worker slots available"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	// Ensure each sentinel error is unique and errors.Is() distinguishes them
	allErrors := []error{
		gaffererrors.ErrInvalidTransition,
		gaffererrors.ErrWorkflowNotStarted,
		gaffererrors.ErrWorkflowFinished,
		gaffererrors.ErrMaxRetriesExceeded,
		gaffererrors.ErrEscalated,
		gaffererrors.ErrFixFailed,
		gaffererrors.ErrForgeOperation,
		gaffererrors.ErrForgeRateLimited,
		gaffererrors.ErrForgeAuthFailed,
		gaffererrors.ErrNoAssignment,
		gaffererrors.ErrMergeBlocked,
		gaffererrors.ErrSlotsExhausted,
		gaffererrors.ErrCoordinatorStopped,
		gaffererrors.ErrAuditClosed,
		gaffererrors.ErrFeedbackMalformed,
	}

	for i, errA := range allErrors {
		for j, errB := range allErrors {
			if i == j {
				assert.ErrorIs(t, errA, errB)
				continue
			}
			assert.NotErrorIs(t, errA, errB, "sentinel %d and %d must be distinct", i, j)
		}
	}
}

func TestSentinelErrors_WrappingPreservesIdentity(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"wrapped ErrInvalidTransition", gaffererrors.ErrInvalidTransition},
		{"wrapped ErrForgeOperation", gaffererrors.ErrForgeOperation},
		{"wrapped ErrMaxRetriesExceeded", gaffererrors.ErrMaxRetriesExceeded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer context: %w", tc.sentinel)
			assert.ErrorIs(t, wrapped, tc.sentinel)

			doubleWrapped := fmt.Errorf("another layer: %w", wrapped)
			assert.ErrorIs(t, doubleWrapped, tc.sentinel)
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, gaffererrors.Wrap(nil, "context"))
	})

	t.Run("adds context and preserves chain", func(t *testing.T) {
		err := gaffererrors.Wrap(gaffererrors.ErrMergeBlocked, "merging pull request")
		require.Error(t, err)
		assert.Equal(t, "merging pull request: merge blocked", err.Error())
		assert.ErrorIs(t, err, gaffererrors.ErrMergeBlocked)
	})
}

func TestWrapf(t *testing.T) {
	t.Run("returns nil for nil error", func(t *testing.T) {
		assert.NoError(t, gaffererrors.Wrapf(nil, "context %d", 42))
	})

	t.Run("interpolates format arguments", func(t *testing.T) {
		err := gaffererrors.Wrapf(gaffererrors.ErrPRNotFound, "fetching pull request #%d", 17)
		require.Error(t, err)
		assert.Equal(t, "fetching pull request #17: pull request not found", err.Error())
		assert.ErrorIs(t, err, gaffererrors.ErrPRNotFound)
	})
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			err:      nil,
			expected: "",
		},
		{
			name:     "known sentinel returns friendly message",
			err:      gaffererrors.ErrSlotsExhausted,
			expected: "All worker slots are occupied.",
		},
		{
			name:     "wrapped sentinel still matches",
			err:      fmt.Errorf("starting workflow: %w", gaffererrors.ErrSlotsExhausted),
			expected: "All worker slots are occupied.",
		},
		{
			name:     "unknown error falls back to original message",
			err:      testError{msg: "something odd"},
			expected: "something odd",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, gaffererrors.UserMessage(tc.err))
		})
	}
}

func TestActionable(t *testing.T) {
	t.Run("nil error returns empty message and action", func(t *testing.T) {
		msg, action := gaffererrors.Actionable(nil)
		assert.Empty(t, msg)
		assert.Empty(t, action)
	})

	t.Run("sentinel with action returns both", func(t *testing.T) {
		msg, action := gaffererrors.Actionable(gaffererrors.ErrForgeAuthFailed)
		assert.Equal(t, "Host authentication failed.", msg)
		assert.Contains(t, action, "gh auth login")
	})

	t.Run("sentinel without action returns empty action", func(t *testing.T) {
		msg, action := gaffererrors.Actionable(gaffererrors.ErrAuditClosed)
		assert.Equal(t, "The audit sink is closed.", msg)
		assert.Empty(t, action)
	})

	t.Run("unknown error returns message with no action", func(t *testing.T) {
		msg, action := gaffererrors.Actionable(errors.New("mystery failure"))
		assert.Equal(t, "mystery failure", msg)
		assert.Empty(t, action)
	})
}
