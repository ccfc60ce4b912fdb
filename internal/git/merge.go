// Package git provides Git operations for coxswain.
// This file provides merge, staging, and commit operations.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/mtessler/coxswain/internal/ctxutil"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

// Conflict resolution sides for ResolveConflict.
const (
	SideOurs   = "ours"
	SideTheirs = "theirs"
)

// MergeBase returns the best common ancestor of two refs.
func (r *CLIRunner) MergeBase(ctx context.Context, a, b string) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	sha, err := RunCommand(ctx, r.workDir, "merge-base", a, b)
	if err != nil {
		return "", fmt.Errorf("failed to find merge base of %s and %s: %w", a, b, err)
	}
	return sha, nil
}

// MergeNoCommit merges branch into the current branch without committing.
// Returns an error wrapping ErrMergeConflicts when the merge stopped on
// conflicted files; the in-progress merge is left for the caller to resolve
// or abort. Any other merge failure is aborted before returning.
func (r *CLIRunner) MergeNoCommit(ctx context.Context, branch string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if branch == "" {
		return fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	_, mergeErr := RunCommand(ctx, r.workDir, "merge", "--no-commit", "--no-ff", branch)
	if mergeErr == nil {
		return nil
	}

	// A non-zero exit with unmerged paths means conflicts, not failure.
	conflicted, err := r.ConflictedFiles(ctx)
	if err == nil && len(conflicted) > 0 {
		return fmt.Errorf("%w: %s into current branch (%d files)",
			coxerrors.ErrMergeConflicts, branch, len(conflicted))
	}

	// Real failure: make sure no partial merge state is left behind.
	_ = r.AbortMerge(ctx)
	return fmt.Errorf("failed to merge %s: %w", branch, mergeErr)
}

// AbortMerge cancels an in-progress merge, restoring the pre-merge state.
// Safe to call when no merge is in progress.
func (r *CLIRunner) AbortMerge(ctx context.Context) error {
	_, err := RunCommand(ctx, r.workDir, "merge", "--abort")
	if err != nil && !strings.Contains(err.Error(), "MERGE_HEAD") {
		return fmt.Errorf("failed to abort merge: %w", err)
	}
	return nil
}

// ConflictedFiles lists paths that are unmerged in the index, sorted and
// deduplicated.
func (r *CLIRunner) ConflictedFiles(ctx context.Context) ([]string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	output, err := RunCommand(ctx, r.workDir, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicted files: %w", err)
	}
	if output == "" {
		return nil, nil
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// ResolveConflict takes one side of a conflicted file and stages it.
// SideOurs keeps the current branch version, SideTheirs takes the incoming
// version.
func (r *CLIRunner) ResolveConflict(ctx context.Context, side, path string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if side != SideOurs && side != SideTheirs {
		return fmt.Errorf("invalid conflict side %q: %w", side, coxerrors.ErrMergeExecution)
	}
	if path == "" {
		return fmt.Errorf("%w: file path", coxerrors.ErrEmptyValue)
	}

	if _, err := RunCommand(ctx, r.workDir, "checkout", "--"+side, "--", path); err != nil {
		// checkout --ours/--theirs fails for delete/modify conflicts where
		// one side has no version of the file. Taking the side that deleted
		// it means removing the path.
		if _, rmErr := RunCommand(ctx, r.workDir, "rm", "--", path); rmErr != nil {
			return fmt.Errorf("failed to resolve %s as %s: %w", path, side, err)
		}
		return nil
	}
	if _, err := RunCommand(ctx, r.workDir, "add", "--", path); err != nil {
		return fmt.Errorf("failed to stage resolved file %s: %w", path, err)
	}
	return nil
}

// AddAll stages every change in the working tree.
func (r *CLIRunner) AddAll(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := RunCommand(ctx, r.workDir, "add", "-A"); err != nil {
		return fmt.Errorf("failed to stage changes: %w", err)
	}
	return nil
}

// Commit creates a commit with the given message and returns its full id.
func (r *CLIRunner) Commit(ctx context.Context, message string) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}
	if message == "" {
		return "", fmt.Errorf("%w: commit message", coxerrors.ErrEmptyValue)
	}

	if _, err := RunCommand(ctx, r.workDir, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return r.RevParse(ctx, "HEAD")
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *CLIRunner) HasStagedChanges(ctx context.Context) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}

	output, err := RunCommand(ctx, r.workDir, "diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("failed to check staged changes: %w", err)
	}
	return output != "", nil
}
