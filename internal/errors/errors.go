// Package errors provides centralized error handling for coxswain.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrWorkflowNotReady indicates a workflow cannot be completed because
	// tasks or agents assigned to it are still in a non-terminal state.
	ErrWorkflowNotReady = errors.New("workflow has active work")

	// ErrWorkflowActive indicates a destructive operation was refused because
	// the workflow is active and the force flag was not set.
	ErrWorkflowActive = errors.New("workflow is active")

	// ErrWorkflowNotFound indicates the requested workflow does not exist.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrAgentNotFound indicates the requested agent does not exist.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentActive indicates a destructive operation was refused because
	// the agent is still in a non-terminal state.
	ErrAgentActive = errors.New("agent is active")

	// ErrMergeConflicts indicates a merge stopped on conflicted files.
	// The merge is left in progress so the caller can resolve or abort.
	ErrMergeConflicts = errors.New("merge has conflicts")

	// ErrMergeUnresolvable indicates the conflict policy could not
	// deterministically choose a winner for a conflicted file.
	ErrMergeUnresolvable = errors.New("merge conflict unresolvable")

	// ErrMergeExecution indicates a VCS-level failure during a merge.
	// Finalization downgrades this to a review-required state.
	ErrMergeExecution = errors.New("merge execution failed")

	// ErrReferentialDeletion indicates a cascade delete failed and the
	// entire transaction was rolled back.
	ErrReferentialDeletion = errors.New("cascade deletion failed")

	// ErrWorktreeExists indicates a live worktree or branch already exists
	// for the agent.
	ErrWorktreeExists = errors.New("worktree already exists")

	// ErrWorktreeNotFound indicates no worktree is registered for the agent.
	ErrWorktreeNotFound = errors.New("worktree not found")

	// ErrBranchExists indicates a branch with the requested name already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrBranchNotFound indicates the requested branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrNotGitRepo indicates the path is not inside a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrGitOperation indicates that a git command (worktree, merge, diff, etc.)
	// failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrNotAWorktree indicates the path is not a registered git worktree.
	ErrNotAWorktree = errors.New("not a git worktree")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidGit indicates an invalid Git configuration value.
	ErrConfigInvalidGit = errors.New("invalid Git configuration")

	// ErrConfigInvalidMerge indicates an invalid merge policy configuration value.
	ErrConfigInvalidMerge = errors.New("invalid merge configuration")

	// ErrStoreClosed indicates an operation was attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)
