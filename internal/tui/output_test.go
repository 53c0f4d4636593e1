package tui

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

func TestNewOutput_FormatSelection(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	_, isJSON := NewOutput(&buf, FormatJSON).(*JSONOutput)
	assert.True(t, isJSON)

	_, isTTY := NewOutput(&buf, FormatText).(*TTYOutput)
	assert.True(t, isTTY)

	// Unknown formats fall back to TTY.
	_, isTTY = NewOutput(&buf, "").(*TTYOutput)
	assert.True(t, isTTY)
}

func TestTTYOutput_Messages(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	out.Success("merged cleanly")
	out.Warning("work window is almost exhausted")
	out.Info("polling for reviews")

	got := buf.String()
	assert.Contains(t, got, "✓ merged cleanly")
	assert.Contains(t, got, "⚠ work window is almost exhausted")
	assert.Contains(t, got, "ℹ polling for reviews")
}

func TestTTYOutput_ErrorWithSuggestion(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	out.Error(gaffererrors.ErrWorkflowNotStarted)

	got := buf.String()
	assert.Contains(t, got, "✗ No workflow is running.")
	assert.Contains(t, got, "▸ Try: Start one with 'gaffer run'.")
}

func TestTTYOutput_ErrorWithoutSuggestion(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	out.Error(assert.AnError)

	got := buf.String()
	assert.Contains(t, got, "✗ "+assert.AnError.Error())
	assert.NotContains(t, got, "Try:")
}

func TestTTYOutput_ErrorNil(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	out.Error(nil)
	assert.Empty(t, buf.String())
}

func TestTTYOutput_Table(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	out.Table(
		[]string{"EVENT", "COUNT"},
		[][]string{
			{"merge_completed", "3"},
			{"ci_failure_detected", "1"},
		},
	)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Contains(t, lines[0], "EVENT")
	assert.Contains(t, lines[0], "COUNT")
	assert.Contains(t, lines[1], "merge_completed")
	assert.Contains(t, lines[2], "ci_failure_detected")

	// Columns widen to the longest cell, so COUNT starts at the same
	// offset on every line.
	assert.Equal(t, strings.Index(lines[1], "3"), strings.Index(lines[2], "1"))
}

func TestTTYOutput_JSON(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	require.NoError(t, out.JSON(map[string]int{"issue": 42}))

	// Pretty-printed with two-space indent.
	assert.Contains(t, buf.String(), "\n  \"issue\": 42\n")
}

func TestJSONOutput_Messages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewJSONOutput(&buf)

	out.Success("issue assigned")
	out.Warning("retrying")
	out.Info("idle")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	var msg jsonMessage
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &msg))
	assert.Equal(t, "success", msg.Type)
	assert.Equal(t, "issue assigned", msg.Message)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &msg))
	assert.Equal(t, "warning", msg.Type)

	require.NoError(t, json.Unmarshal([]byte(lines[2]), &msg))
	assert.Equal(t, "info", msg.Type)
}

func TestJSONOutput_Error(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewJSONOutput(&buf)

	wrapped := gaffererrors.Wrap(gaffererrors.ErrWorkflowNotStarted, "status command")
	out.Error(wrapped)

	var payload jsonError
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))

	assert.Equal(t, "error", payload.Type)
	assert.Equal(t, "No workflow is running.", payload.Message)
	assert.Equal(t, "Start one with 'gaffer run'.", payload.Suggestion)
	assert.Equal(t, gaffererrors.ErrWorkflowNotStarted.Error(), payload.Details)
}

func TestJSONOutput_ErrorNil(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewJSONOutput(&buf)

	out.Error(nil)
	assert.Empty(t, buf.String())
}

func TestJSONOutput_Table(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewJSONOutput(&buf)

	out.Table(
		[]string{"EVENT", "COUNT"},
		[][]string{{"merge_completed", "3"}},
	)

	var payload jsonTable
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))

	assert.Equal(t, "table", payload.Type)
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, "merge_completed", payload.Rows[0]["EVENT"])
	assert.Equal(t, "3", payload.Rows[0]["COUNT"])
}

func TestJSONOutput_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewJSONOutput(&buf)

	require.NoError(t, out.JSON(map[string]string{"status": "merged"}))
	assert.JSONEq(t, `{"status":"merged"}`, buf.String())
}
