package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtessler/coxswain/internal/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "main", cfg.Git.BaseBranch)
	assert.Equal(t, 2*time.Minute, cfg.Git.CommandTimeout)
	assert.Equal(t, "agent-", cfg.Worktree.BranchPrefix)
	assert.Equal(t, "workflow-", cfg.Workflow.BranchPrefix)
	assert.False(t, cfg.Workflow.RequireFinalReview)
	assert.Equal(t, StrategyNewestFileWins, cfg.Merge.ConflictStrategy)
	assert.True(t, cfg.Merge.PreferChildOnTie)
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, Validate(DefaultConfig()))
}

func TestValidate(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		err := Validate(nil)
		assert.ErrorIs(t, err, errors.ErrConfigNil)
	})

	t.Run("empty base branch", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Git.BaseBranch = ""
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidGit)
	})

	t.Run("non-positive command timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Git.CommandTimeout = 0
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidGit)
	})

	t.Run("empty worktree branch prefix", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Worktree.BranchPrefix = ""
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidGit)
	})

	t.Run("empty workflow branch prefix", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Workflow.BranchPrefix = ""
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidGit)
	})

	t.Run("unknown conflict strategy", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Merge.ConflictStrategy = "oldest_file_wins"
		assert.ErrorIs(t, Validate(cfg), errors.ErrConfigInvalidMerge)
	})
}

func TestLoadUsesDefaultsWithoutConfigFiles(t *testing.T) {
	// Point HOME at an empty directory so no global config is found.
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "main", cfg.Git.BaseBranch)
	assert.Equal(t, StrategyNewestFileWins, cfg.Merge.ConflictStrategy)
}

func TestLoadHonorsEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("COXSWAIN_GIT_BASE_BRANCH", "trunk")
	t.Setenv("COXSWAIN_WORKFLOW_REQUIRE_FINAL_REVIEW", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "trunk", cfg.Git.BaseBranch)
	assert.True(t, cfg.Workflow.RequireFinalReview)
}

func TestStorePathFallsBackToGlobalDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	path, err := cfg.StorePath()
	require.NoError(t, err)
	assert.Contains(t, path, ".coxswain")

	cfg.Store.Path = "/tmp/custom.db"
	path, err = cfg.StorePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", path)
}
