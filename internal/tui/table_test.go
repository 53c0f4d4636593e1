package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/domain"
)

func sampleTransitions() []domain.TransitionRecord {
	from := constants.StatusInProgress
	ts := time.Date(2026, 8, 25, 14, 3, 22, 0, time.UTC)

	return []domain.TransitionRecord{
		{
			ToStatus:  constants.StatusUnassigned,
			Event:     "assign_agent",
			Timestamp: ts,
			Duration:  850 * time.Millisecond,
		},
		{
			FromStatus: &from,
			ToStatus:   constants.StatusReadyForReview,
			Event:      "complete_work",
			Timestamp:  ts.Add(2 * time.Minute),
			Duration:   1200 * time.Millisecond,
		},
	}
}

func TestTransitionTable_Headers(t *testing.T) {
	t.Parallel()

	wide := NewTransitionTable(sampleTransitions(), WithTableWidth(120))
	assert.False(t, wide.IsNarrow())
	assert.Equal(t, []string{"TIME", "FROM", "TO", "EVENT", "TOOK"}, wide.Headers())

	narrow := NewTransitionTable(sampleTransitions(), WithTableWidth(60))
	assert.True(t, narrow.IsNarrow())
	assert.Equal(t, []string{"TIME", "FROM", "TO", "EVENT"}, narrow.Headers())
}

func TestTransitionTable_ToTableData(t *testing.T) {
	t.Parallel()

	table := NewTransitionTable(sampleTransitions(), WithTableWidth(120))
	headers, rows := table.ToTableData()

	require.Len(t, headers, 5)
	require.Len(t, rows, 2)

	// First transition comes out of no-state.
	assert.Equal(t, "14:03:22", rows[0][0])
	assert.Equal(t, "-", rows[0][1])
	assert.Equal(t, "unassigned", rows[0][2])
	assert.Equal(t, "assign_agent", rows[0][3])
	assert.Equal(t, "850ms", rows[0][4])

	assert.Equal(t, "in_progress", rows[1][1])
	assert.Equal(t, "ready_for_review", rows[1][2])
	assert.Equal(t, "1.2s", rows[1][4])
}

func TestTransitionTable_ToTableData_Narrow(t *testing.T) {
	t.Parallel()

	table := NewTransitionTable(sampleTransitions(), WithTableWidth(60))
	headers, rows := table.ToTableData()

	require.Len(t, headers, 4)
	for _, row := range rows {
		assert.Len(t, row, 4)
	}
}

func TestTransitionTable_Render(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	var buf bytes.Buffer
	table := NewTransitionTable(sampleTransitions(), WithTableWidth(120))
	require.NoError(t, table.Render(&buf))

	got := buf.String()
	assert.Contains(t, got, "TIME")
	assert.Contains(t, got, "TOOK")
	assert.Contains(t, got, "ready_for_review")
	assert.Contains(t, got, "complete_work")
}

func TestTransitionTable_RenderEmpty(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	CheckNoColor()

	var buf bytes.Buffer
	table := NewTransitionTable(nil, WithTableWidth(120))
	require.NoError(t, table.Render(&buf))

	// Header only, no data rows.
	assert.Contains(t, buf.String(), "TIME")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestTransitionTable_LongEventTruncated(t *testing.T) {
	t.Parallel()

	records := []domain.TransitionRecord{
		{
			ToStatus:  constants.StatusInProgress,
			Event:     "an_extremely_long_event_name_that_never_ends",
			Timestamp: time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
		},
	}

	table := NewTransitionTable(records, WithTableWidth(120))
	_, rows := table.ToTableData()

	require.Len(t, rows, 1)
	event := rows[0][3]
	assert.LessOrEqual(t, len([]rune(event)), maxEventWidth)
	assert.Contains(t, event, "…")
}

func TestTransitionTable_RowsCopy(t *testing.T) {
	t.Parallel()

	records := sampleTransitions()
	table := NewTransitionTable(records, WithTableWidth(120))

	rows := table.Rows()
	require.Len(t, rows, 2)

	rows[0].Event = "mutated"
	assert.Equal(t, "assign_agent", table.Rows()[0].Event)
}

func TestTransitionTable_RowsNil(t *testing.T) {
	t.Parallel()

	table := NewTransitionTable(nil, WithTableWidth(120))
	assert.Nil(t, table.Rows())
}
