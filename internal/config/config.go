// Package config provides configuration management for coxswain with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. Environment variables (COXSWAIN_* prefix)
//  2. Project config (.coxswain/config.yaml)
//  3. Global config (~/.coxswain/config.yaml)
//  4. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants and internal/errors,
// but MUST NOT import internal/domain or other internal packages.
package config

import "time"

// Config is the root configuration structure for coxswain.
type Config struct {
	// Git contains settings for the shared repository and trunk branch.
	Git GitConfig `yaml:"git" mapstructure:"git"`

	// Worktree contains settings for per-agent worktree isolation.
	Worktree WorktreeConfig `yaml:"worktree" mapstructure:"worktree"`

	// Workflow contains settings for workflow integration branches and the
	// final review gate.
	Workflow WorkflowConfig `yaml:"workflow" mapstructure:"workflow"`

	// Merge contains the deterministic conflict resolution policy.
	Merge MergeConfig `yaml:"merge" mapstructure:"merge"`

	// Store contains persistence settings.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Export contains incident export settings.
	Export ExportConfig `yaml:"export" mapstructure:"export"`
}

// GitConfig contains settings for the shared repository.
type GitConfig struct {
	// RepoPath is the path to the main repository. Empty means the current
	// working directory (the repo root is detected from it).
	RepoPath string `yaml:"repo_path" mapstructure:"repo_path"`

	// BaseBranch is the trunk branch that agent and workflow branches fork
	// from and merge into.
	// Default: "main"
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`

	// CommandTimeout bounds individual git command executions.
	// Default: 2 minutes
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`
}

// WorktreeConfig contains settings for agent worktree isolation.
type WorktreeConfig struct {
	// BasePath is the directory agent worktrees are created under.
	// Empty means ~/.coxswain/worktrees.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	// BranchPrefix prefixes the deterministic per-agent branch name.
	// Default: "agent-"
	BranchPrefix string `yaml:"branch_prefix" mapstructure:"branch_prefix"`
}

// WorkflowConfig contains settings for workflow integration branches.
type WorkflowConfig struct {
	// BranchPrefix prefixes the per-workflow integration branch name.
	// Default: "workflow-"
	BranchPrefix string `yaml:"branch_prefix" mapstructure:"branch_prefix"`

	// RequireFinalReview gates workflow completion behind a human
	// approve/reject decision instead of auto-merging to trunk.
	// Default: false
	RequireFinalReview bool `yaml:"require_final_review" mapstructure:"require_final_review"`
}

// Conflict resolution strategy identifiers.
const (
	// StrategyNewestFileWins resolves each conflicted file to the side whose
	// latest commit touching that file is newer.
	StrategyNewestFileWins = "newest_file_wins"
)

// MergeConfig contains the deterministic conflict resolution policy.
type MergeConfig struct {
	// ConflictStrategy selects the file-level resolution policy.
	// Default: "newest_file_wins"
	ConflictStrategy string `yaml:"conflict_strategy" mapstructure:"conflict_strategy"`

	// PreferChildOnTie breaks exact timestamp ties in favor of the agent's
	// (child) version over the existing (parent) version.
	// Default: true
	PreferChildOnTie bool `yaml:"prefer_child_on_tie" mapstructure:"prefer_child_on_tie"`
}

// StoreConfig contains persistence settings.
type StoreConfig struct {
	// Path is the SQLite database file. Empty means ~/.coxswain/coxswain.db.
	Path string `yaml:"path" mapstructure:"path"`
}

// ExportConfig contains incident export settings.
type ExportConfig struct {
	// IncidentLoggingEnabled controls whether incident memories are exported
	// when a workflow completes.
	// Default: false
	IncidentLoggingEnabled bool `yaml:"incident_logging_enabled" mapstructure:"incident_logging_enabled"`

	// OutputDir is where incident exports are written. Empty means
	// ~/.coxswain/exports.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}
