package forge

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	gaffererrors "github.com/gafferworks/gaffer/internal/errors"
)

// CommandExecutor executes shell commands. Used for testing.
type CommandExecutor interface {
	// Execute runs a command and returns its standard output.
	Execute(ctx context.Context, workDir, name string, args ...string) ([]byte, error)
}

// defaultCommandExecutor is the default implementation using exec.Command.
// Unit tests mock the CommandExecutor interface to avoid external
// dependencies; integration tests cover these paths.
type defaultCommandExecutor struct{}

// Execute runs a command using the standard exec package.
func (e *defaultCommandExecutor) Execute(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return runHostCommand(ctx, workDir, name, args...)
}

// runHostCommand executes a gh or git command and returns its stdout.
// Stderr is folded into the error text so callers can classify failures.
func runHostCommand(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally, not user input
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check for context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Include stderr in error for debugging and classification
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s %s failed [%s]: %w", name, firstArg(args), strings.TrimSpace(stderr.String()), gaffererrors.ErrCommandFailed)
		}
		return nil, fmt.Errorf("%s %s failed: %w", name, firstArg(args), gaffererrors.ErrCommandFailed)
	}

	return stdout.Bytes(), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
