package flock

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

func TestAcquire_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deep", "nested", "run.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Release() })

	assert.FileExists(t, path)
}

func TestAcquire_RecordsHolderPID(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Release() })

	raw, err := os.ReadFile(path) //nolint:gosec // test-owned temp path
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(raw))
}

func TestAcquire_HeldLockFails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Release() })

	second, err := Acquire(path)
	require.ErrorIs(t, err, gaffererrors.ErrRunLockHeld)
	assert.Nil(t, second)

	// The conflict error names the holder.
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestRelease_AllowsReacquire(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestRelease_SecondCallIsNoOp(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.lock")

	lock, err := Acquire(path)
	require.NoError(t, err)

	require.NoError(t, lock.Release())
	require.NoError(t, lock.Release())
}
