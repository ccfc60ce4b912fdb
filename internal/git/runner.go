// Package git provides Git operations for coxswain.
// This file defines the Runner interface for git CLI operations.
package git

import (
	"context"
	"time"
)

// Runner defines operations against a single git repository.
// All operations run in the runner's working directory and use context for
// cancellation. Implementations must never leave a partial merge behind:
// any failed merge is aborted before the error is returned.
type Runner interface {
	// RevParse resolves a ref to its full 40-hex commit id.
	RevParse(ctx context.Context, ref string) (string, error)

	// CurrentBranch returns the name of the currently checked out branch.
	// Returns an error in detached HEAD state.
	CurrentBranch(ctx context.Context) (string, error)

	// BranchExists checks if a local branch exists in the repository.
	BranchExists(ctx context.Context, name string) (bool, error)

	// CreateBranch creates a new branch from the specified base without
	// checking it out. If base is empty, creates from current HEAD.
	CreateBranch(ctx context.Context, name, base string) error

	// DeleteBranch deletes a branch. If force is true, deletes even if not merged.
	DeleteBranch(ctx context.Context, name string, force bool) error

	// Checkout switches the working tree to the named branch.
	Checkout(ctx context.Context, branch string) error

	// MergeBase returns the best common ancestor of two refs.
	MergeBase(ctx context.Context, a, b string) (string, error)

	// MergeNoCommit attempts to merge branch into the current branch without
	// committing. Returns an error wrapping ErrMergeConflicts when the merge
	// stopped on conflicted files; the caller resolves or aborts.
	MergeNoCommit(ctx context.Context, branch string) error

	// AbortMerge cancels an in-progress merge, restoring the pre-merge state.
	AbortMerge(ctx context.Context) error

	// ConflictedFiles lists paths that are unmerged in the index.
	ConflictedFiles(ctx context.Context) ([]string, error)

	// ResolveConflict takes one side of a conflicted file: "ours" keeps the
	// current branch version, "theirs" takes the incoming version.
	ResolveConflict(ctx context.Context, side, path string) error

	// AddAll stages every change in the working tree.
	AddAll(ctx context.Context) error

	// Commit creates a commit with the given message. Returns the commit id.
	Commit(ctx context.Context, message string) (string, error)

	// HasStagedChanges reports whether the index differs from HEAD.
	HasStagedChanges(ctx context.Context) (bool, error)

	// StatusPorcelain returns the machine-readable working tree status lines.
	StatusPorcelain(ctx context.Context) ([]FileChange, error)

	// CommitsBetween lists commits reachable from head but not base,
	// oldest first.
	CommitsBetween(ctx context.Context, base, head string) ([]Commit, error)

	// DiffNameStatus lists files changed between two refs.
	DiffNameStatus(ctx context.Context, base, head string) ([]FileChange, error)

	// DiffStat returns aggregate insertion/deletion counts between two refs.
	DiffStat(ctx context.Context, base, head string) (DiffStat, error)

	// DiffText returns the full textual diff between two refs.
	DiffText(ctx context.Context, base, head string) (string, error)

	// LatestCommitTimeForFile returns the author timestamp of the newest
	// commit on ref that touched path. Returns the zero time if no commit
	// on ref touched the path.
	LatestCommitTimeForFile(ctx context.Context, ref, path string) (time.Time, error)
}

// CLIRunner implements Runner by shelling out to the git CLI.
type CLIRunner struct {
	workDir string
}

// NewCLIRunner creates a Runner rooted at the given working directory.
// The directory must be inside a git repository; the repository root is
// detected and used for all subsequent commands.
func NewCLIRunner(ctx context.Context, workDir string) (*CLIRunner, error) {
	root, err := DetectRepoRoot(ctx, workDir)
	if err != nil {
		return nil, err
	}
	return &CLIRunner{workDir: root}, nil
}

// NewCLIRunnerAt creates a Runner without root detection. Used for worktree
// checkouts where commands must run in the checkout itself.
func NewCLIRunnerAt(workDir string) *CLIRunner {
	return &CLIRunner{workDir: workDir}
}

// WorkDir returns the directory the runner executes commands in.
func (r *CLIRunner) WorkDir() string {
	return r.workDir
}

// Ensure CLIRunner implements Runner.
var _ Runner = (*CLIRunner)(nil)
