package constants

// Log file names and patterns.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.gaffer/logs/gaffer.log
	CLILogFileName = "gaffer.log"
)

// Log rotation settings for the global CLI log file.
const (
	// LogMaxSizeMB is the maximum size in megabytes before rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files to retain.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum age in days of a retained file.
	LogMaxAgeDays = 30

	// LogCompress enables gzip compression of rotated files.
	LogCompress = true
)

// Configuration file names.
const (
	// GlobalConfigName is the name of the global Gaffer configuration file.
	// This file is located in the Gaffer home directory.
	GlobalConfigName = "config.yaml"

	// ProjectConfigName is the name of the project-specific Gaffer
	// configuration file. This file is located in the project root directory.
	ProjectConfigName = ".gaffer.yaml"
)

// Branch prefix patterns used for Git branch naming.
const (
	// BranchPrefixFix is the prefix for bug fix branches.
	BranchPrefixFix = "fix/"

	// BranchPrefixFeat is the prefix for feature branches.
	BranchPrefixFeat = "feat/"

	// BranchPrefixChore is the prefix for maintenance/chore branches.
	BranchPrefixChore = "chore/"

	// BranchPrefixDocs is the prefix for documentation branches.
	BranchPrefixDocs = "docs/"

	// BranchPrefixTest is the prefix for test-related branches.
	BranchPrefixTest = "test/"
)
