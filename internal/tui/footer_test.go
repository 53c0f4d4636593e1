package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/constants"
)

func TestNewActionFooter_BlockedSuggestsAbandon(t *testing.T) {
	t.Parallel()

	footer := NewActionFooter(StatusView{
		RunID:       "run-1",
		Status:      constants.StatusBlocked,
		CanContinue: true,
	})

	require.True(t, footer.HasItems())
	items := footer.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "gaffer abandon", items[0].Action)
	assert.Equal(t, "run-1", items[0].RunID)
	assert.Equal(t, constants.StatusBlocked, items[0].Status)
}

func TestNewActionFooter_HealthyRunHasNoItems(t *testing.T) {
	t.Parallel()

	footer := NewActionFooter(StatusView{
		RunID:       "run-1",
		Status:      constants.StatusInProgress,
		CanContinue: true,
	})

	assert.False(t, footer.HasItems())
	assert.Nil(t, footer.Items())
}

func TestNewActionFooter_StoppedRunSuggestsAbandon(t *testing.T) {
	t.Parallel()

	footer := NewActionFooter(StatusView{
		RunID:       "run-1",
		Status:      constants.StatusUnderReview,
		CanContinue: false,
	})

	require.True(t, footer.HasItems())
	assert.Equal(t, "gaffer abandon", footer.Items()[0].Action)
}

func TestNewActionFooter_ConcludedRunHasNoItems(t *testing.T) {
	t.Parallel()

	for _, status := range []constants.WorkflowStatus{constants.StatusMerged, constants.StatusAbandoned} {
		footer := NewActionFooter(StatusView{
			RunID:       "run-1",
			Status:      status,
			CanContinue: false,
		})
		assert.False(t, footer.HasItems(), "status %s", status)
	}
}

func TestActionFooter_RenderPlain(t *testing.T) {
	t.Parallel()

	footer := NewActionFooter(StatusView{
		RunID:       "run-1",
		Status:      constants.StatusBlocked,
		CanContinue: true,
	})

	var buf bytes.Buffer
	require.NoError(t, footer.RenderPlain(&buf))

	assert.Equal(t, "\nRun: gaffer abandon\n", buf.String())
}

func TestActionFooter_RenderEmptyWritesNothing(t *testing.T) {
	t.Parallel()

	footer := NewActionFooter(StatusView{
		Status:      constants.StatusInProgress,
		CanContinue: true,
	})

	var buf bytes.Buffer
	require.NoError(t, footer.Render(&buf))
	assert.Empty(t, buf.String())
}

func TestActionFooter_Render(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	footer := NewActionFooter(StatusView{
		RunID:       "run-1",
		Status:      constants.StatusBlocked,
		CanContinue: true,
	})

	var buf bytes.Buffer
	require.NoError(t, footer.Render(&buf))
	assert.Contains(t, buf.String(), "Run: gaffer abandon")
}

func TestActionFooter_ToJSON(t *testing.T) {
	t.Parallel()

	footer := NewActionFooter(StatusView{
		RunID:       "run-1",
		Status:      constants.StatusBlocked,
		CanContinue: true,
	})

	out := footer.ToJSON()
	require.Len(t, out, 1)
	assert.Equal(t, "run-1", out[0]["run_id"])
	assert.Equal(t, "gaffer abandon", out[0]["action"])

	empty := NewActionFooter(StatusView{Status: constants.StatusMerged})
	assert.Nil(t, empty.ToJSON())
}
