// Package git provides Git operations for coxswain.
// This file provides repository detection and worktree plumbing.
package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

// WorktreeEntry contains information about a registered git worktree.
type WorktreeEntry struct {
	// Path is the absolute path to the worktree directory.
	Path string
	// Branch is the branch name (without refs/heads/ prefix).
	Branch string
	// Head is the HEAD commit SHA.
	Head string
	// IsPrunable indicates the worktree directory is missing on disk.
	IsPrunable bool
	// IsLocked indicates the worktree has a lock file.
	IsLocked bool
}

// DetectRepoRoot returns the absolute path of the repository containing path.
// For linked worktrees this is the worktree root, not the main repository.
func DetectRepoRoot(ctx context.Context, path string) (string, error) {
	toplevel, err := RunCommand(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("%w: %s", coxerrors.ErrNotGitRepo, path)
	}
	return filepath.Clean(toplevel), nil
}

// IsLinkedWorktree reports whether path is inside a linked worktree rather
// than the main checkout.
func IsLinkedWorktree(ctx context.Context, path string) (bool, error) {
	gitDir, err := RunCommand(ctx, path, "rev-parse", "--git-dir")
	if err != nil {
		return false, fmt.Errorf("%w: %s", coxerrors.ErrNotGitRepo, path)
	}
	return strings.Contains(gitDir, "worktrees/") || strings.Contains(gitDir, "worktrees\\"), nil
}

// AddWorktree registers a new worktree at path on a fresh branch created
// from base.
func AddWorktree(ctx context.Context, repoPath, path, branch, base string) error {
	_, err := RunCommand(ctx, repoPath, "worktree", "add", "-b", branch, path, base)
	if err != nil {
		return fmt.Errorf("failed to add worktree %s: %w", path, err)
	}
	return nil
}

// RemoveWorktree unregisters and deletes the worktree at path. Force removes
// the worktree even with uncommitted changes.
func RemoveWorktree(ctx context.Context, repoPath, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	_, err := RunCommand(ctx, repoPath, args...)
	if err != nil {
		return fmt.Errorf("failed to remove worktree %s: %w", path, err)
	}
	return nil
}

// PruneWorktrees removes stale administrative entries for worktree
// directories that no longer exist on disk.
func PruneWorktrees(ctx context.Context, repoPath string) error {
	_, err := RunCommand(ctx, repoPath, "worktree", "prune")
	if err != nil {
		return fmt.Errorf("failed to prune worktrees: %w", err)
	}
	return nil
}

// ListWorktrees returns all worktrees registered with the repository.
func ListWorktrees(ctx context.Context, repoPath string) ([]WorktreeEntry, error) {
	output, err := RunCommand(ctx, repoPath, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("failed to list worktrees: %w", err)
	}
	return parseWorktreeListOutput(output), nil
}

// FindWorktreeByPath returns the registered worktree entry for the given
// path, or ErrWorktreeNotFound.
func FindWorktreeByPath(ctx context.Context, repoPath, path string) (*WorktreeEntry, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: worktree path", coxerrors.ErrEmptyValue)
	}

	worktrees, err := ListWorktrees(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	clean := filepath.Clean(path)
	for i := range worktrees {
		if filepath.Clean(worktrees[i].Path) == clean {
			return &worktrees[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", coxerrors.ErrWorktreeNotFound, path)
}

// parseWorktreeListOutput parses `git worktree list --porcelain` output.
// Entries are separated by blank lines; each entry starts with a
// "worktree <path>" line.
func parseWorktreeListOutput(output string) []WorktreeEntry {
	var entries []WorktreeEntry
	var current *WorktreeEntry

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if current != nil {
				entries = append(entries, *current)
				current = nil
			}
			continue
		}

		switch {
		case strings.HasPrefix(line, "worktree "):
			if current != nil {
				entries = append(entries, *current)
			}
			current = &WorktreeEntry{Path: strings.TrimPrefix(line, "worktree ")}
		case current == nil:
			// Ignore stray lines before the first worktree header.
		case strings.HasPrefix(line, "HEAD "):
			current.Head = strings.TrimPrefix(line, "HEAD ")
		case strings.HasPrefix(line, "branch "):
			current.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		case line == "prunable" || strings.HasPrefix(line, "prunable "):
			current.IsPrunable = true
		case line == "locked" || strings.HasPrefix(line, "locked "):
			current.IsLocked = true
		}
	}
	if current != nil {
		entries = append(entries, *current)
	}

	return entries
}
