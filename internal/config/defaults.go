package config

import (
	"github.com/spf13/viper"

	"github.com/mtessler/coxswain/internal/constants"
)

// DefaultConfig returns a new Config with sensible default values.
// These defaults are used as the base layer that can be overridden by
// config files, environment variables, and CLI flags.
func DefaultConfig() *Config {
	return &Config{
		Git: GitConfig{
			// BaseBranch: "main" is the modern Git default.
			// Projects using "master" should override in their config.
			BaseBranch: constants.DefaultBaseBranch,

			CommandTimeout: constants.DefaultGitTimeout,
		},
		Worktree: WorktreeConfig{
			// BasePath: empty means ~/.coxswain/worktrees.
			BasePath: "",

			BranchPrefix: constants.DefaultAgentBranchPrefix,
		},
		Workflow: WorkflowConfig{
			BranchPrefix: constants.DefaultWorkflowBranchPrefix,

			// RequireFinalReview: false means workflow branches auto-merge
			// to trunk on completion. Teams wanting a human gate opt in.
			RequireFinalReview: false,
		},
		Merge: MergeConfig{
			ConflictStrategy: StrategyNewestFileWins,

			// PreferChildOnTie: the agent did the most recent work, so exact
			// timestamp ties go to its version.
			PreferChildOnTie: true,
		},
		Store: StoreConfig{
			// Path: empty means ~/.coxswain/coxswain.db.
			Path: "",
		},
		Export: ExportConfig{
			IncidentLoggingEnabled: false,
			OutputDir:              "",
		},
	}
}

// setDefaults registers default values on a Viper instance so config files
// and environment variables only need to specify overrides.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("git.base_branch", d.Git.BaseBranch)
	v.SetDefault("git.command_timeout", d.Git.CommandTimeout)
	v.SetDefault("worktree.base_path", d.Worktree.BasePath)
	v.SetDefault("worktree.branch_prefix", d.Worktree.BranchPrefix)
	v.SetDefault("workflow.branch_prefix", d.Workflow.BranchPrefix)
	v.SetDefault("workflow.require_final_review", d.Workflow.RequireFinalReview)
	v.SetDefault("merge.conflict_strategy", d.Merge.ConflictStrategy)
	v.SetDefault("merge.prefer_child_on_tie", d.Merge.PreferChildOnTie)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("export.incident_logging_enabled", d.Export.IncidentLoggingEnabled)
	v.SetDefault("export.output_dir", d.Export.OutputDir)
}
