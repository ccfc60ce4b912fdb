// Package constants provides centralized constant values used throughout coxswain.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by coxswain for organizing data.
const (
	// CoxswainHome is the hidden directory name where coxswain stores all its data.
	// This directory is created in the user's home directory.
	CoxswainHome = ".coxswain"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"

	// WorktreesDir is the directory name where agent worktrees are created
	// when no explicit base path is configured.
	WorktreesDir = "worktrees"

	// ExportsDir is the directory name where incident exports are written.
	ExportsDir = "exports"
)

// File names.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.coxswain/logs/coxswain.log
	CLILogFileName = "coxswain.log"

	// GlobalConfigName is the name of the global coxswain configuration file.
	GlobalConfigName = "config.yaml"

	// StoreFileName is the name of the SQLite database file.
	StoreFileName = "coxswain.db"
)

// Default branch naming.
const (
	// DefaultBaseBranch is the trunk branch that workflow branches fork from
	// and ultimately merge into.
	DefaultBaseBranch = "main"

	// DefaultAgentBranchPrefix prefixes per-agent worktree branch names.
	DefaultAgentBranchPrefix = "agent-"

	// DefaultWorkflowBranchPrefix prefixes per-workflow integration branch names.
	DefaultWorkflowBranchPrefix = "workflow-"
)

// Timeout configurations.
const (
	// DefaultGitTimeout bounds individual git command executions.
	DefaultGitTimeout = 2 * time.Minute

	// DefaultTerminateTimeout bounds a single agent termination attempt
	// during forced workflow deletion.
	DefaultTerminateTimeout = 30 * time.Second
)

// Log rotation settings for the global CLI log file.
const (
	// LogMaxSizeMB is the maximum size in megabytes before rotation.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated files to retain.
	LogMaxBackups = 3

	// LogMaxAgeDays is the maximum age in days to retain rotated files.
	LogMaxAgeDays = 30

	// LogCompress controls gzip compression of rotated files.
	LogCompress = true
)

// TimeFormatCompact is used for timestamp suffixes in generated branch names.
const TimeFormatCompact = "20060102-150405"

// FullSHALength is the length of a full 40-hex git commit id.
const FullSHALength = 40

// ShortIDLength is the number of identifier characters used when embedding
// a workflow id in a branch name.
const ShortIDLength = 8
