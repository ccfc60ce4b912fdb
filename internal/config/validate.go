package config

import (
	"github.com/mtessler/coxswain/internal/errors"
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - Git base branch must not be empty
//   - Git command timeout must be positive
//   - Worktree and workflow branch prefixes must not be empty
//   - Merge conflict strategy must be a known strategy
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validateGitConfig(&cfg.Git); err != nil {
		return err
	}

	if err := validateBranchPrefixes(cfg); err != nil {
		return err
	}

	return validateMergeConfig(&cfg.Merge)
}

// validateGitConfig checks Git-specific configuration values.
func validateGitConfig(cfg *GitConfig) error {
	if cfg.BaseBranch == "" {
		return errors.Wrap(errors.ErrConfigInvalidGit,
			"git.base_branch must not be empty")
	}
	if cfg.CommandTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidGit,
			"git.command_timeout must be positive, got %s", cfg.CommandTimeout)
	}
	return nil
}

// validateBranchPrefixes ensures branch names remain deterministic and
// distinguishable between agent and workflow branches.
func validateBranchPrefixes(cfg *Config) error {
	if cfg.Worktree.BranchPrefix == "" {
		return errors.Wrap(errors.ErrConfigInvalidGit,
			"worktree.branch_prefix must not be empty")
	}
	if cfg.Workflow.BranchPrefix == "" {
		return errors.Wrap(errors.ErrConfigInvalidGit,
			"workflow.branch_prefix must not be empty")
	}
	return nil
}

// validateMergeConfig checks the conflict resolution policy.
func validateMergeConfig(cfg *MergeConfig) error {
	switch cfg.ConflictStrategy {
	case StrategyNewestFileWins:
		return nil
	default:
		return errors.Wrapf(errors.ErrConfigInvalidMerge,
			"merge.conflict_strategy %q is not supported", cfg.ConflictStrategy)
	}
}
