package config

import (
	"os"
	"path/filepath"

	"github.com/gafferworks/gaffer/internal/constants"
	"github.com/gafferworks/gaffer/internal/errors"
)

// HomeDir returns the path to the Gaffer home directory, typically ~/.gaffer
// on Unix systems. Both the global configuration and run state (checkpoint,
// audit trail, logs) live under it. A non-empty GAFFER_HOME environment
// variable overrides the default location.
//
// Returns an error if the user's home directory cannot be determined.
func HomeDir() (string, error) {
	if dir := os.Getenv("GAFFER_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.GafferHome), nil
}

// GlobalConfigPath returns the full path to the global configuration file.
// This is typically ~/.gaffer/config.yaml on Unix systems.
func GlobalConfigPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get global config path")
	}
	return filepath.Join(dir, constants.GlobalConfigName), nil
}

// ProjectConfigPath returns the relative path to the project configuration
// file. This is always .gaffer.yaml at the project root.
func ProjectConfigPath() string {
	return constants.ProjectConfigName
}

// LogsDirPath returns the directory that holds Gaffer log files, typically
// ~/.gaffer/logs.
func LogsDirPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get logs path")
	}
	return filepath.Join(dir, constants.LogsDir), nil
}

// CheckpointPath returns the path of the workflow checkpoint file, typically
// ~/.gaffer/checkpoint.json.
func CheckpointPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get checkpoint path")
	}
	return filepath.Join(dir, constants.CheckpointFileName), nil
}

// AuditPath returns the default path of the transition audit database,
// typically ~/.gaffer/audit.db. A non-empty Audit.Path takes precedence.
func AuditPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get audit path")
	}
	return filepath.Join(dir, constants.AuditDBFileName), nil
}

// AbandonRequestPath returns the path of the abandon request drop file,
// typically ~/.gaffer/abandon.json.
func AbandonRequestPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get abandon request path")
	}
	return filepath.Join(dir, constants.AbandonRequestFileName), nil
}

// ReviewDropPath returns the default directory watched by the file review
// source, typically ~/.gaffer/reviews. A non-empty Review.DropDir takes
// precedence.
func ReviewDropPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get review drop path")
	}
	return filepath.Join(dir, constants.ReviewDropDir), nil
}

// RunLockPath returns the path of the scheduler run lock file, typically
// ~/.gaffer/run.lock.
func RunLockPath() (string, error) {
	dir, err := HomeDir()
	if err != nil {
		return "", errors.Wrap(err, "get run lock path")
	}
	return filepath.Join(dir, constants.RunLockFileName), nil
}
