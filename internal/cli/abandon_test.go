package cli

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/coordinator"
	"github.com/gafferworks/gaffer/internal/domain"
	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// readAbandonRequest decodes the request file the command dropped.
func readAbandonRequest(t *testing.T) abandonRequestDoc {
	t.Helper()

	path, err := config.AbandonRequestPath()
	require.NoError(t, err)
	data, err := os.ReadFile(path) //nolint:gosec // test-owned temp path
	require.NoError(t, err)

	var doc abandonRequestDoc
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func TestAbandonCommand_WritesRequestFile(t *testing.T) {
	setTestHome(t)

	stdout, _, err := executeCommand(t, "abandon")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Abandon request recorded")

	doc := readAbandonRequest(t)
	assert.Equal(t, string(constants.AbandonRequirementsChanged), doc.Reason)
	assert.Empty(t, doc.Detail)
}

func TestAbandonCommand_ReasonAndDetail(t *testing.T) {
	setTestHome(t)

	_, _, err := executeCommand(t, "abandon",
		"--reason", string(constants.AbandonCriticalFailure),
		"--detail", "design heads the wrong way")

	require.NoError(t, err)

	doc := readAbandonRequest(t)
	assert.Equal(t, string(constants.AbandonCriticalFailure), doc.Reason)
	assert.Equal(t, "design heads the wrong way", doc.Detail)
}

func TestAbandonCommand_InvalidReason(t *testing.T) {
	setTestHome(t)

	_, _, err := executeCommand(t, "abandon", "--reason", "bored")

	require.Error(t, err)
	assert.ErrorIs(t, err, gaffererrors.ErrInvalidArgument)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))

	path, pathErr := config.AbandonRequestPath()
	require.NoError(t, pathErr)
	assert.NoFileExists(t, path)
}

func TestAbandonCommand_SchedulerReasonsRejected(t *testing.T) {
	setTestHome(t)

	// Timeout and blocker abandonment belong to the scheduler, not the
	// operator.
	_, _, err := executeCommand(t, "abandon", "--reason", string(constants.AbandonTimeoutExceeded))

	require.Error(t, err)
	assert.ErrorIs(t, err, gaffererrors.ErrInvalidArgument)
}

func TestAbandonCommand_JSON(t *testing.T) {
	setTestHome(t)

	stdout, _, err := executeCommand(t, "--output", "json", "abandon",
		"--reason", string(constants.AbandonDependencyIssues))

	require.NoError(t, err)

	var result abandonResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, string(constants.AbandonDependencyIssues), result.Reason)
	assert.FileExists(t, result.Path)
}

func TestAbandonCommand_WarnsWithoutCheckpoint(t *testing.T) {
	setTestHome(t)

	stdout, _, err := executeCommand(t, "abandon")

	require.NoError(t, err)
	assert.Contains(t, stdout, "applies to the next run")
}

func TestAbandonCommand_WarnsWhenConcluded(t *testing.T) {
	setTestHome(t)

	saveTestCheckpoint(t, coordinator.Checkpoint{
		SchemaVersion: constants.CheckpointSchemaVersion,
		RunID:         "0f8f1c1e-9d8e-4a6e-8a3a-2d1a0b9c8d7e",
		Status:        constants.StatusMerged,
		Issue:         domain.Issue{Number: 42},
		SavedAt:       time.Now(),
	})

	stdout, _, err := executeCommand(t, "abandon")

	require.NoError(t, err)
	assert.Contains(t, stdout, "already concluded")
}
