// Package git provides Git operations for coxswain.
// This file provides branch naming utilities and branch operations.
package git

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mtessler/coxswain/internal/ctxutil"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

// branchNameRegex matches any character that is NOT a lowercase letter,
// digit, or hyphen.
var branchNameRegex = regexp.MustCompile(`[^a-z0-9-]+`)

// SanitizeBranchName sanitizes a branch name component by:
// - Converting to lowercase
// - Replacing non-alphanumeric characters with hyphens
// - Collapsing consecutive hyphens
// - Trimming leading/trailing hyphens
//
// Example: "Fix Login Bug!" -> "fix-login-bug"
func SanitizeBranchName(name string) string {
	name = strings.ToLower(name)
	name = branchNameRegex.ReplaceAllString(name, "-")
	for strings.Contains(name, "--") {
		name = strings.ReplaceAll(name, "--", "-")
	}
	return strings.Trim(name, "-")
}

// GenerateBranchName creates a branch name from a prefix and identifier.
// The format is "{prefix}{sanitized-id}".
//
// Example: GenerateBranchName("agent-", "Agent 01") -> "agent-agent-01"
func GenerateBranchName(prefix, id string) string {
	sanitized := SanitizeBranchName(id)
	if sanitized == "" {
		sanitized = "unnamed"
	}
	return prefix + sanitized
}

// CurrentBranch returns the name of the currently checked out branch.
func (r *CLIRunner) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	name, err := RunCommand(ctx, r.workDir, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: detached HEAD", coxerrors.ErrBranchNotFound)
	}
	return name, nil
}

// BranchExists checks if a local branch exists.
func (r *CLIRunner) BranchExists(ctx context.Context, name string) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}
	if name == "" {
		return false, fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	// branch --list exits 0 whether or not the branch exists.
	output, err := RunCommand(ctx, r.workDir, "branch", "--list", name)
	if err != nil {
		return false, err
	}
	return output != "", nil
}

// CreateBranch creates a branch from base without checking it out.
// An empty base creates from the current HEAD.
func (r *CLIRunner) CreateBranch(ctx context.Context, name, base string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	exists, err := r.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", coxerrors.ErrBranchExists, name)
	}

	args := []string{"branch", name}
	if base != "" {
		args = append(args, base)
	}
	if _, err := RunCommand(ctx, r.workDir, args...); err != nil {
		return fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	return nil
}

// DeleteBranch deletes a local branch.
func (r *CLIRunner) DeleteBranch(ctx context.Context, name string, force bool) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	flag := "-d"
	if force {
		flag = "-D"
	}
	if _, err := RunCommand(ctx, r.workDir, "branch", flag, name); err != nil {
		return fmt.Errorf("failed to delete branch %s: %w", name, err)
	}
	return nil
}

// Checkout switches the working tree to the named branch.
func (r *CLIRunner) Checkout(ctx context.Context, branch string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if branch == "" {
		return fmt.Errorf("%w: branch name", coxerrors.ErrEmptyValue)
	}

	if _, err := RunCommand(ctx, r.workDir, "checkout", branch); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// RevParse resolves a ref to its full 40-hex commit id.
func (r *CLIRunner) RevParse(ctx context.Context, ref string) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}
	if ref == "" {
		return "", fmt.Errorf("%w: ref", coxerrors.ErrEmptyValue)
	}

	sha, err := RunCommand(ctx, r.workDir, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	return sha, nil
}
