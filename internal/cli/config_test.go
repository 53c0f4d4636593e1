package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/config"
	"github.com/gafferworks/gaffer/internal/constants"
)

func TestConfigShowCommand_Defaults(t *testing.T) {
	setTestHome(t)

	stdout, _, err := executeCommand(t, "config", "show", "--defaults")

	require.NoError(t, err)
	assert.Contains(t, stdout, "kind: sim")
	assert.Contains(t, stdout, "max_work_hours:")
	assert.Contains(t, stdout, "source: forge")
}

func TestConfigShowCommand_JSON(t *testing.T) {
	setTestHome(t)

	stdout, _, err := executeCommand(t, "--output", "json", "config", "show")

	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(stdout), &cfg))
	assert.Equal(t, constants.ForgeKindSim, cfg.Forge.Kind)
	assert.Positive(t, cfg.Workflow.MaxWorkHours)
}

func TestConfigShowCommand_ProjectOverride(t *testing.T) {
	setTestHome(t)

	workDir := t.TempDir()
	project := "forge:\n  kind: gh\n  base_branch: develop\n"
	require.NoError(t, os.WriteFile(
		filepath.Join(workDir, constants.ProjectConfigName), []byte(project), 0o600))

	stdout, _, err := executeCommand(t, "config", "show", "-C", workDir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "kind: gh")
	assert.Contains(t, stdout, "base_branch: develop")
}

func TestConfigPathCommand_Text(t *testing.T) {
	home := setTestHome(t)

	stdout, _, err := executeCommand(t, "config", "path")

	require.NoError(t, err)
	for _, label := range []string{"Global config", "Logs", "Checkpoint", "Audit trail", "Review drop", "Run lock"} {
		assert.Contains(t, stdout, label)
	}
	assert.Greater(t, strings.Count(stdout, home), 3)
}

func TestConfigPathCommand_JSON(t *testing.T) {
	home := setTestHome(t)

	stdout, _, err := executeCommand(t, "--output", "json", "config", "path")

	require.NoError(t, err)

	var paths configPaths
	require.NoError(t, json.Unmarshal([]byte(stdout), &paths))
	assert.True(t, strings.HasPrefix(paths.GlobalConfig, home))
	assert.True(t, strings.HasPrefix(paths.Checkpoint, home))
	assert.True(t, strings.HasPrefix(paths.Audit, home))
	assert.True(t, strings.HasPrefix(paths.RunLock, home))
	assert.Equal(t, constants.ProjectConfigName, paths.ProjectConfig)
}
