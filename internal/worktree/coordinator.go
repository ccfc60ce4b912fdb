package worktree

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/ctxutil"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/git"
	"github.com/mtessler/coxswain/internal/store"
)

// Coordinator provisions one isolated worktree per agent and tears it down
// again. All operations are serialized per agent id through AgentLocks;
// unrelated agents never contend.
type Coordinator struct {
	store    *store.Store
	cfg      *config.Config
	locks    *AgentLocks
	logger   zerolog.Logger
	repoPath string
	basePath string
}

// NewCoordinator creates a Coordinator for the configured repository.
func NewCoordinator(ctx context.Context, s *store.Store, cfg *config.Config, locks *AgentLocks, logger zerolog.Logger) (*Coordinator, error) {
	repoPath := cfg.Git.RepoPath
	if repoPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		repoPath = wd
	}
	root, err := git.DetectRepoRoot(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	basePath, err := cfg.WorktreeBasePath()
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		store:    s,
		cfg:      cfg,
		locks:    locks,
		logger:   logger.With().Str("component", "worktree").Logger(),
		repoPath: root,
		basePath: basePath,
	}, nil
}

// BranchFor returns the deterministic branch name for an agent.
func (c *Coordinator) BranchFor(agentID string) string {
	return git.GenerateBranchName(c.cfg.Worktree.BranchPrefix, agentID)
}

// PathFor returns the checkout directory for an agent.
func (c *Coordinator) PathFor(agentID string) string {
	return filepath.Join(c.basePath, git.SanitizeBranchName(agentID))
}

// Create provisions a worktree for the agent: a fresh branch forked from
// the trunk tip, checked out in its own directory. Fails with
// ErrWorktreeExists when a live worktree or branch already exists for the
// agent.
func (c *Coordinator) Create(ctx context.Context, agentID string) (*domain.Worktree, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id", coxerrors.ErrEmptyValue)
	}

	unlock := c.locks.Lock(agentID)
	defer unlock()

	if wt, err := c.store.Q().GetActiveWorktree(ctx, agentID); err == nil {
		return nil, fmt.Errorf("%w: agent %s at %s", coxerrors.ErrWorktreeExists, agentID, wt.Path)
	} else if !errors.Is(err, coxerrors.ErrWorktreeNotFound) {
		return nil, err
	}

	branch := c.BranchFor(agentID)
	runner := git.NewCLIRunnerAt(c.repoPath)
	exists, err := runner.BranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: branch %s", coxerrors.ErrWorktreeExists, branch)
	}

	baseSHA, err := runner.RevParse(ctx, c.cfg.Git.BaseBranch)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve trunk tip: %w", err)
	}

	path := c.PathFor(agentID)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create worktree base directory: %w", err)
	}
	if err := git.AddWorktree(ctx, c.repoPath, path, branch, baseSHA); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	wt := &domain.Worktree{
		AgentID:   agentID,
		Path:      path,
		Branch:    branch,
		BaseSHA:   baseSHA,
		Status:    constants.WorktreeStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.Q().CreateWorktree(ctx, wt); err != nil {
		// Roll the checkout back so the record and the filesystem agree.
		_ = git.RemoveWorktree(ctx, c.repoPath, path, true)
		_ = runner.DeleteBranch(ctx, branch, true)
		return nil, err
	}

	c.logger.Info().Str("agent_id", agentID).Str("branch", branch).
		Str("path", path).Str("base_sha", baseSHA).Msg("worktree created")
	return wt, nil
}

// Changes returns the files changed in the agent's worktree since the given
// commit (the fork point when sinceCommit is empty), including uncommitted
// working tree changes. Read-only: never mutates worktree or record state.
func (c *Coordinator) Changes(ctx context.Context, agentID, sinceCommit string) ([]git.FileChange, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	wt, err := c.store.Q().GetActiveWorktree(ctx, agentID)
	if err != nil {
		return nil, err
	}

	since := sinceCommit
	if since == "" {
		since = wt.BaseSHA
	}

	runner := git.NewCLIRunnerAt(wt.Path)
	committed, err := runner.DiffNameStatus(ctx, since, "HEAD")
	if err != nil {
		return nil, err
	}
	uncommitted, err := runner.StatusPorcelain(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(committed))
	changes := make([]git.FileChange, 0, len(committed)+len(uncommitted))
	for _, ch := range committed {
		seen[ch.Path] = true
		changes = append(changes, ch)
	}
	for _, ch := range uncommitted {
		if !seen[ch.Path] {
			changes = append(changes, ch)
		}
	}
	return changes, nil
}

// CommitWork stages and commits everything in the agent's worktree and
// appends the commit to the audit trail. Returns an empty id when there was
// nothing to commit.
func (c *Coordinator) CommitWork(ctx context.Context, agentID, message string) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}
	if message == "" {
		return "", fmt.Errorf("%w: commit message", coxerrors.ErrEmptyValue)
	}

	unlock := c.locks.Lock(agentID)
	defer unlock()

	wt, err := c.store.Q().GetActiveWorktree(ctx, agentID)
	if err != nil {
		return "", err
	}

	runner := git.NewCLIRunnerAt(wt.Path)
	if err := runner.AddAll(ctx); err != nil {
		return "", err
	}
	staged, err := runner.HasStagedChanges(ctx)
	if err != nil {
		return "", err
	}
	if !staged {
		c.logger.Debug().Str("agent_id", agentID).Msg("commit requested with no changes")
		return "", nil
	}

	sha, err := runner.Commit(ctx, message)
	if err != nil {
		return "", err
	}

	if err := c.store.Q().CreateWorktreeCommit(ctx, &domain.WorktreeCommit{
		AgentID:   agentID,
		CommitSHA: sha,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	c.logger.Info().Str("agent_id", agentID).Str("commit", sha).Msg("worktree commit recorded")
	return sha, nil
}

// Cleanup removes the agent's checkout and local branch and marks the
// record removed. It refuses with ErrAgentActive while the agent is in a
// non-terminal state. Idempotent: cleaning an already-removed or unknown
// worktree is a no-op.
func (c *Coordinator) Cleanup(ctx context.Context, agentID string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	unlock := c.locks.Lock(agentID)
	defer unlock()

	wt, err := c.store.Q().GetWorktree(ctx, agentID)
	if errors.Is(err, coxerrors.ErrWorktreeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if wt.Status == constants.WorktreeStatusRemoved {
		return nil
	}

	// A live agent's checkout is never pulled out from under it. An
	// unknown agent row has nothing left to protect.
	agent, err := c.store.Q().GetAgent(ctx, agentID)
	if err != nil && !errors.Is(err, coxerrors.ErrAgentNotFound) {
		return err
	}
	if err == nil && agent.Status.IsActive() {
		return fmt.Errorf("%w: %s is %s", coxerrors.ErrAgentActive, agentID, agent.Status)
	}

	// The directory may already be gone; tolerate and prune.
	if err := git.RemoveWorktree(ctx, c.repoPath, wt.Path, true); err != nil {
		c.logger.Warn().Err(err).Str("agent_id", agentID).
			Msg("worktree remove failed; pruning stale entries")
		if err := git.PruneWorktrees(ctx, c.repoPath); err != nil {
			return err
		}
	}

	runner := git.NewCLIRunnerAt(c.repoPath)
	exists, err := runner.BranchExists(ctx, wt.Branch)
	if err != nil {
		return err
	}
	if exists {
		if err := runner.DeleteBranch(ctx, wt.Branch, true); err != nil {
			return err
		}
	}

	if err := c.store.Q().MarkWorktreeRemoved(ctx, agentID); err != nil {
		return err
	}

	c.logger.Info().Str("agent_id", agentID).Str("branch", wt.Branch).Msg("worktree cleaned up")
	return nil
}
