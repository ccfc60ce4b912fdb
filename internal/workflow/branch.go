// Package workflow governs the lifecycle of workflow integration branches:
// creation, diff inspection, the final-merge review gate, completion, and
// cascade deletion.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/mtessler/coxswain/internal/config"
	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/ctxutil"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
	"github.com/mtessler/coxswain/internal/git"
	"github.com/mtessler/coxswain/internal/merge"
	"github.com/mtessler/coxswain/internal/store"
)

// BranchInfo describes a workflow's integration branch.
type BranchInfo struct {
	BranchName     string `json:"branch_name"`
	CreatedFromSHA string `json:"created_from_sha"`
	AlreadyExisted bool   `json:"already_existed"`
}

// Diff summarizes everything a workflow branch changed relative to trunk.
type Diff struct {
	Branch       string           `json:"branch"`
	MergeBaseSHA string           `json:"merge_base_sha"`
	Files        []git.FileChange `json:"files"`
	Stat         git.DiffStat     `json:"stat"`
	Commits      []git.Commit     `json:"commits"`
	Patch        string           `json:"patch,omitempty"`
}

// Manager owns workflow integration branches. All trunk-bound merges go
// through the merge engine's per-target queue.
type Manager struct {
	store    *store.Store
	cfg      *config.Config
	engine   *merge.Engine
	logger   zerolog.Logger
	repoPath string
}

// NewManager creates a branch manager rooted at the configured repository.
func NewManager(ctx context.Context, s *store.Store, cfg *config.Config, engine *merge.Engine, logger zerolog.Logger) (*Manager, error) {
	startPath := cfg.Git.RepoPath
	if startPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		startPath = wd
	}

	repoPath, err := git.DetectRepoRoot(ctx, startPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:    s,
		cfg:      cfg,
		engine:   engine,
		logger:   logger.With().Str("component", "workflow").Logger(),
		repoPath: repoPath,
	}, nil
}

// BranchFor returns the deterministic integration branch name for a workflow.
func (m *Manager) BranchFor(workflowID string) string {
	return git.GenerateBranchName(m.cfg.Workflow.BranchPrefix, shortID(workflowID))
}

// CreateWorkflowBranch creates the workflow's integration branch forked from
// the trunk tip, or returns the recorded branch when it already exists.
// Repeated calls never duplicate branches and always return the same fork
// SHA. When final review is required the workflow's merge gate is armed at
// creation time.
func (m *Manager) CreateWorkflowBranch(ctx context.Context, workflowID string) (*BranchInfo, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if workflowID == "" {
		return nil, fmt.Errorf("%w: workflow id", coxerrors.ErrEmptyValue)
	}

	wf, err := m.store.Q().GetWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.HasBranch() {
		return &BranchInfo{
			BranchName:     wf.BranchName,
			CreatedFromSHA: wf.CreatedFromSHA,
			AlreadyExisted: true,
		}, nil
	}

	runner := git.NewCLIRunnerAt(m.repoPath)
	name := m.BranchFor(workflowID)
	trunk := m.cfg.Git.BaseBranch

	baseSHA, err := runner.RevParse(ctx, trunk)
	if err != nil {
		return nil, fmt.Errorf("resolve trunk tip: %w", err)
	}

	existed := false
	if err = runner.CreateBranch(ctx, name, trunk); err != nil {
		if !errors.Is(err, coxerrors.ErrBranchExists) {
			return nil, err
		}
		// Branch exists but was never recorded: adopt it and record the
		// fork point it actually diverged from.
		existed = true
		baseSHA, err = runner.MergeBase(ctx, trunk, name)
		if err != nil {
			return nil, fmt.Errorf("resolve fork point: %w", err)
		}
	}

	wf.BranchName = name
	wf.BranchCreated = true
	wf.CreatedFromSHA = baseSHA
	if m.cfg.Workflow.RequireFinalReview {
		wf.FinalMergeStatus = constants.FinalMergePendingReview
	}
	if err = m.store.Q().UpdateWorkflow(ctx, wf); err != nil {
		if !existed {
			// Roll back the branch so a retry starts clean.
			_ = runner.DeleteBranch(ctx, name, true)
		}
		return nil, err
	}

	m.logger.Info().Str("workflow_id", workflowID).Str("branch", name).
		Str("created_from", baseSHA).Bool("already_existed", existed).
		Msg("workflow branch ready")
	return &BranchInfo{BranchName: name, CreatedFromSHA: baseSHA, AlreadyExisted: existed}, nil
}

// WorkflowDiff reports what the branch changed relative to trunk: files,
// aggregate counts, the commit log, the merge base, and the raw patch. An
// unmodified branch reports zero changes.
func (m *Manager) WorkflowDiff(ctx context.Context, branch string) (*Diff, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if branch == "" {
		return nil, fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	runner := git.NewCLIRunnerAt(m.repoPath)
	exists, err := runner.BranchExists(ctx, branch)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", coxerrors.ErrBranchNotFound, branch)
	}

	trunk := m.cfg.Git.BaseBranch
	mergeBase, err := runner.MergeBase(ctx, trunk, branch)
	if err != nil {
		return nil, err
	}

	diff := &Diff{Branch: branch, MergeBaseSHA: mergeBase}
	if diff.Commits, err = runner.CommitsBetween(ctx, trunk, branch); err != nil {
		return nil, err
	}
	if len(diff.Commits) == 0 {
		return diff, nil
	}

	if diff.Files, err = runner.DiffNameStatus(ctx, mergeBase, branch); err != nil {
		return nil, err
	}
	if diff.Stat, err = runner.DiffStat(ctx, mergeBase, branch); err != nil {
		return nil, err
	}
	if diff.Patch, err = runner.DiffText(ctx, mergeBase, branch); err != nil {
		return nil, err
	}
	return diff, nil
}

// MergeWorkflowToBase folds the workflow branch into trunk through the merge
// engine. This is the single point where integration work graduates into
// trunk; conflict audit rows carry the workflow id as the actor.
func (m *Manager) MergeWorkflowToBase(ctx context.Context, workflowID, branch string) (*merge.Result, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}
	if workflowID == "" || branch == "" {
		return nil, fmt.Errorf("%w: workflow id and branch", coxerrors.ErrEmptyValue)
	}

	result, err := m.engine.MergeBranch(ctx, branch, m.cfg.Git.BaseBranch, workflowID)
	if err != nil {
		return result, err
	}

	// A branch with no commits ahead of trunk merges as a no-op with no
	// merge commit. The merged state still needs a concrete commit id, so
	// record the trunk tip the branch is already contained in.
	if result.Status == constants.MergeStatusSuccess && result.CommitSHA == "" {
		runner := git.NewCLIRunnerAt(m.repoPath)
		sha, err := runner.RevParse(ctx, m.cfg.Git.BaseBranch)
		if err != nil {
			return result, err
		}
		result.CommitSHA = sha
	}

	m.logger.Info().Str("workflow_id", workflowID).Str("branch", branch).
		Str("status", string(result.Status)).Str("commit", result.CommitSHA).
		Msg("workflow branch merged to trunk")
	return result, nil
}

// shortID truncates an identifier for branch naming.
func shortID(id string) string {
	if len(id) > constants.ShortIDLength {
		return id[:constants.ShortIDLength]
	}
	return id
}
