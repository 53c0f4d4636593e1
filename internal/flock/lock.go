package flock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// File permissions for the lock file and its parent directory.
const (
	lockDirPerm  = 0o750
	lockFilePerm = 0o600
)

// RunLock is an acquired scheduler lock. The process holds it from Acquire
// until Release or process exit, whichever comes first.
type RunLock struct {
	file *os.File
}

// Acquire takes the exclusive run lock at path, creating the file and its
// parent directory as needed. On success the holder's PID is written to the
// file for diagnostics. If another process holds the lock, the returned error
// wraps errors.ErrRunLockHeld and names the holder when its PID is readable.
func Acquire(path string) (*RunLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), lockDirPerm); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm) //#nosec G304 -- path is constructed internally
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := exclusive(file.Fd()); err != nil {
		_ = file.Close()
		if pid := holderPID(path); pid != "" {
			return nil, fmt.Errorf("%w by pid %s", gaffererrors.ErrRunLockHeld, pid)
		}
		return nil, gaffererrors.ErrRunLockHeld
	}

	if err := stampPID(file); err != nil {
		_ = unlock(file.Fd())
		_ = file.Close()
		return nil, err
	}

	return &RunLock{file: file}, nil
}

// Release drops the lock and closes the underlying file. The lock file itself
// stays on disk; removing it would race with a concurrent Acquire that has
// already opened it. Calls after the first are no-ops.
func (l *RunLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}

	err := unlock(l.file.Fd())
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil

	if err != nil {
		return fmt.Errorf("release run lock: %w", err)
	}
	return nil
}

// stampPID records the holding process ID in the lock file.
func stampPID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	return nil
}

// holderPID reads the PID recorded by the current lock holder. Returns the
// empty string when the file is unreadable or holds no PID.
func holderPID(path string) string {
	raw, err := os.ReadFile(path) //#nosec G304 -- path is constructed internally
	if err != nil {
		return ""
	}
	pid := strings.TrimSpace(string(raw))
	if _, err := strconv.Atoi(pid); err != nil {
		return ""
	}
	return pid
}
