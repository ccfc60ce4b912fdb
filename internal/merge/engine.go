package merge

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
	"github.com/mtessler/coxswain/internal/flock"
	"github.com/mtessler/coxswain/internal/git"
	"github.com/mtessler/coxswain/internal/store"
	"github.com/mtessler/coxswain/internal/worktree"
)

// Result describes the outcome of a merge.
type Result struct {
	// MergedTo is the target branch the merge was applied to.
	MergedTo string `json:"merged_to"`
	// Status is success, conflict_resolved, or failed.
	Status constants.MergeStatus `json:"status"`
	// CommitSHA is the 40-hex merge commit id; empty when nothing was
	// merged or the merge failed.
	CommitSHA string `json:"commit_sha,omitempty"`
	// ConflictsResolved lists the per-file policy decisions, in the order
	// they were recorded.
	ConflictsResolved []Resolution `json:"conflicts_resolved,omitempty"`
}

// Resolution is one file-level conflict decision.
type Resolution struct {
	FilePath string `json:"file_path"`
	Winner   string `json:"winner"`
	Reason   string `json:"reason"`
}

// Engine merges agent branches into parent branches. Merges onto the same
// target branch are serialized through a per-target work queue; merges onto
// different targets proceed independently, with a file lock serializing the
// window where each one mutates the shared working tree. Cleanup and merge
// for the same agent are mutually exclusive through the shared AgentLocks.
type Engine struct {
	store    *store.Store
	cfg      *config.Config
	locks    *worktree.AgentLocks
	queues   *branchQueues
	logger   zerolog.Logger
	repoPath string
}

// NewEngine creates a merge engine for the configured repository.
func NewEngine(ctx context.Context, s *store.Store, cfg *config.Config, locks *worktree.AgentLocks, logger zerolog.Logger) (*Engine, error) {
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

	return &Engine{
		store:    s,
		cfg:      cfg,
		locks:    locks,
		queues:   newBranchQueues(),
		logger:   logger.With().Str("component", "merge").Logger(),
		repoPath: root,
	}, nil
}

// Close drains the per-branch merge queues. In-flight merges finish first.
func (e *Engine) Close() {
	e.queues.close()
}

// MergeToParent folds the agent's branch into targetBranch (the trunk when
// empty). Uncommitted worktree changes are committed first so they ride the
// merge. On failure no partial merge is committed and the agent's branch
// stays intact for manual recovery.
func (e *Engine) MergeToParent(ctx context.Context, agentID, targetBranch string) (*Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if agentID == "" {
		return nil, fmt.Errorf("%w: agent id", coxerrors.ErrEmptyValue)
	}

	target := targetBranch
	if target == "" {
		target = e.cfg.Git.BaseBranch
	}

	// Holding the agent lock across the merge keeps cleanup from deleting
	// the branch mid-merge.
	unlock := e.locks.Lock(agentID)
	defer unlock()

	wt, err := e.store.Q().GetActiveWorktree(ctx, agentID)
	if err != nil {
		return nil, err
	}

	if err := e.commitPending(ctx, wt, agentID, target); err != nil {
		return nil, err
	}

	result, err := e.MergeBranch(ctx, wt.Branch, target, agentID)
	if err != nil {
		return result, err
	}

	e.logger.Info().Str("agent_id", agentID).Str("branch", wt.Branch).
		Str("target", target).Str("status", string(result.Status)).
		Str("commit", result.CommitSHA).Msg("agent branch merged")
	return result, nil
}

// commitPending commits uncommitted work in the agent's checkout so the
// merge carries the worktree's full state, and records the commit on the
// audit trail. No-op on a clean tree.
func (e *Engine) commitPending(ctx context.Context, wt *domain.Worktree, agentID, target string) error {
	runner := git.NewCLIRunnerAt(wt.Path)
	if err := runner.AddAll(ctx); err != nil {
		return err
	}
	staged, err := runner.HasStagedChanges(ctx)
	if err != nil {
		return err
	}
	if !staged {
		return nil
	}

	message := fmt.Sprintf("Auto-commit pending changes before merge into %s", target)
	sha, err := runner.Commit(ctx, message)
	if err != nil {
		return err
	}
	if err := e.store.Q().CreateWorktreeCommit(ctx, &domain.WorktreeCommit{
		AgentID:   agentID,
		CommitSHA: sha,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return err
	}

	e.logger.Info().Str("agent_id", agentID).Str("commit", sha).
		Msg("pending worktree changes auto-committed")
	return nil
}

// MergeBranch folds source into target, serialized per target branch.
// actorID is recorded on conflict audit rows: the agent id for agent
// merges, the workflow id for workflow-to-trunk merges.
func (e *Engine) MergeBranch(ctx context.Context, source, target, actorID string) (*Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if source == "" || target == "" {
		return nil, fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	return e.queues.submit(ctx, target, func(ctx context.Context) (*Result, error) {
		return e.performMerge(ctx, source, target, actorID)
	})
}

// performMerge runs on the target branch's queue worker, so it is the only
// writer to that branch ref.
func (e *Engine) performMerge(ctx context.Context, source, target, actorID string) (*Result, error) {
	failed := &Result{MergedTo: target, Status: constants.MergeStatusFailed}
	runner := git.NewCLIRunnerAt(e.repoPath)

	for _, branch := range []string{source, target} {
		exists, err := runner.BranchExists(ctx, branch)
		if err != nil {
			return failed, err
		}
		if !exists {
			return failed, fmt.Errorf("%w: %s", coxerrors.ErrBranchNotFound, branch)
		}
	}

	// Nothing to merge: report success without touching the target.
	ahead, err := runner.CommitsBetween(ctx, target, source)
	if err != nil {
		return failed, err
	}
	if len(ahead) == 0 {
		return &Result{MergedTo: target, Status: constants.MergeStatusSuccess}, nil
	}

	// Queues serialize per target, but every target shares the one
	// working tree. The lock also keeps concurrent coxswain processes
	// out of a half-finished merge.
	unlock, err := e.lockWorkingTree()
	if err != nil {
		return failed, err
	}
	defer unlock()

	if err := runner.Checkout(ctx, target); err != nil {
		return failed, fmt.Errorf("%w: %s", coxerrors.ErrMergeExecution, err)
	}

	mergeErr := runner.MergeNoCommit(ctx, source)
	switch {
	case mergeErr == nil:
		sha, err := runner.Commit(ctx, fmt.Sprintf("Merge %s into %s", source, target))
		if err != nil {
			_ = runner.AbortMerge(ctx)
			return failed, fmt.Errorf("%w: %s", coxerrors.ErrMergeExecution, err)
		}
		return &Result{MergedTo: target, Status: constants.MergeStatusSuccess, CommitSHA: sha}, nil

	case errors.Is(mergeErr, coxerrors.ErrMergeConflicts):
		return e.resolveConflicts(ctx, runner, source, target, actorID)

	default:
		// MergeNoCommit already aborted the partial merge.
		return failed, fmt.Errorf("%w: %s", coxerrors.ErrMergeExecution, mergeErr)
	}
}

// lockWorkingTree takes an exclusive lock on the repository checkout,
// blocking until any other merge releases it. The returned func unlocks.
func (e *Engine) lockWorkingTree() (func(), error) {
	path := filepath.Join(e.repoPath, ".git", "coxswain-merge.lock")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 -- path is derived from the configured repo
	if err != nil {
		return nil, fmt.Errorf("open working tree lock: %w", err)
	}
	if err := flock.ExclusiveBlocking(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock working tree: %w", err)
	}
	return func() {
		_ = flock.Unlock(f.Fd())
		_ = f.Close()
	}, nil
}

// resolveConflicts applies newest-file-wins to every conflicted file. All
// decisions are persisted in one transaction before the merge commit is
// created, so the audit trail always explains a landed merge.
func (e *Engine) resolveConflicts(ctx context.Context, runner *git.CLIRunner, source, target, actorID string) (*Result, error) {
	failed := &Result{MergedTo: target, Status: constants.MergeStatusFailed}

	files, err := runner.ConflictedFiles(ctx)
	if err != nil {
		_ = runner.AbortMerge(ctx)
		return failed, err
	}

	decisions := make([]decision, 0, len(files))
	for _, f := range files {
		parentTime, err := runner.LatestCommitTimeForFile(ctx, target, f)
		if err != nil {
			_ = runner.AbortMerge(ctx)
			return failed, err
		}
		childTime, err := runner.LatestCommitTimeForFile(ctx, source, f)
		if err != nil {
			_ = runner.AbortMerge(ctx)
			return failed, err
		}

		d, ok := decideWinner(f, parentTime, childTime, e.cfg.Merge.PreferChildOnTie)
		if !ok {
			_ = runner.AbortMerge(ctx)
			return failed, fmt.Errorf("%w: no commit history for %s on either side",
				coxerrors.ErrMergeUnresolvable, f)
		}
		decisions = append(decisions, d)
	}

	// Durably record every decision before the merge commit finalizes.
	now := time.Now().UTC()
	err = e.store.WithTx(ctx, func(q *store.Queries) error {
		for _, d := range decisions {
			if err := q.CreateConflictResolution(ctx, &domain.MergeConflictResolution{
				AgentID:      actorID,
				TargetBranch: target,
				FilePath:     d.FilePath,
				Winner:       d.Winner,
				Reason:       d.Reason,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = runner.AbortMerge(ctx)
		return failed, err
	}

	for _, d := range decisions {
		if err := runner.ResolveConflict(ctx, d.Winner, d.FilePath); err != nil {
			_ = runner.AbortMerge(ctx)
			return failed, fmt.Errorf("%w: %s", coxerrors.ErrMergeExecution, err)
		}
	}
	if err := runner.AddAll(ctx); err != nil {
		_ = runner.AbortMerge(ctx)
		return failed, fmt.Errorf("%w: %s", coxerrors.ErrMergeExecution, err)
	}

	sha, err := runner.Commit(ctx, fmt.Sprintf(
		"Merge %s into %s (auto-resolved %d conflicts)", source, target, len(decisions)))
	if err != nil {
		_ = runner.AbortMerge(ctx)
		return failed, fmt.Errorf("%w: %s", coxerrors.ErrMergeExecution, err)
	}

	resolutions := make([]Resolution, len(decisions))
	for i, d := range decisions {
		resolutions[i] = Resolution{FilePath: d.FilePath, Winner: d.Winner, Reason: d.Reason}
		e.logger.Info().Str("file", d.FilePath).Str("winner", d.Winner).
			Str("target", target).Msg("conflict resolved")
	}

	return &Result{
		MergedTo:          target,
		Status:            constants.MergeStatusConflictResolved,
		CommitSHA:         sha,
		ConflictsResolved: resolutions,
	}, nil
}
