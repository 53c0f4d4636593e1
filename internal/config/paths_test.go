package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferworks/gaffer/internal/constants"
)

func TestHomeDir_Success(t *testing.T) {
	t.Setenv("GAFFER_HOME", "")

	dir, err := HomeDir()
	require.NoError(t, err)

	// Should contain .gaffer
	assert.Contains(t, dir, constants.GafferHome)

	// Should be absolute path
	assert.True(t, filepath.IsAbs(dir))
}

func TestHomeDir_FollowsHomeEnv(t *testing.T) {
	fakeHome := t.TempDir()
	t.Setenv("HOME", fakeHome)
	t.Setenv("GAFFER_HOME", "")

	dir, err := HomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(fakeHome, constants.GafferHome), dir)
}

func TestHomeDir_GafferHomeOverride(t *testing.T) {
	override := t.TempDir()
	t.Setenv("GAFFER_HOME", override)

	dir, err := HomeDir()
	require.NoError(t, err)

	assert.Equal(t, override, dir)
}

func TestGlobalConfigPath_Success(t *testing.T) {
	t.Setenv("GAFFER_HOME", "")

	path, err := GlobalConfigPath()
	require.NoError(t, err)

	assert.Contains(t, path, constants.GafferHome)
	assert.Contains(t, path, constants.GlobalConfigName)
	assert.True(t, filepath.IsAbs(path))
}

func TestProjectConfigPath(t *testing.T) {
	path := ProjectConfigPath()

	assert.Equal(t, constants.ProjectConfigName, path)
}

func TestHomeDataPaths(t *testing.T) {
	fakeHome := t.TempDir()
	t.Setenv("HOME", fakeHome)
	t.Setenv("GAFFER_HOME", "")

	base := filepath.Join(fakeHome, constants.GafferHome)

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"logs_dir", LogsDirPath, filepath.Join(base, constants.LogsDir)},
		{"checkpoint", CheckpointPath, filepath.Join(base, constants.CheckpointFileName)},
		{"audit", AuditPath, filepath.Join(base, constants.AuditDBFileName)},
		{"abandon_request", AbandonRequestPath, filepath.Join(base, constants.AbandonRequestFileName)},
		{"review_drop", ReviewDropPath, filepath.Join(base, constants.ReviewDropDir)},
		{"run_lock", RunLockPath, filepath.Join(base, constants.RunLockFileName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
