// Package main provides the entry point for the gaffer CLI.
package main

import (
	"context"
	"os"

	"github.com/gafferworks/gaffer/internal/cli"
)

// Build metadata, injected via -ldflags at release time.
//
//nolint:gochecknoglobals // ldflags injection requires package-level variables
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	cli.CloseLogFile()
	os.Exit(cli.ExitCodeForError(err))
}
