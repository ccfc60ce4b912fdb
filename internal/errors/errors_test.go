package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrWorkflowNotReady,
		ErrWorkflowActive,
		ErrWorkflowNotFound,
		ErrAgentNotFound,
		ErrMergeUnresolvable,
		ErrMergeExecution,
		ErrReferentialDeletion,
		ErrWorktreeExists,
		ErrWorktreeNotFound,
		ErrBranchExists,
		ErrBranchNotFound,
		ErrNotGitRepo,
		ErrGitOperation,
		ErrNotAWorktree,
		ErrEmptyValue,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			if stderrors.Is(a, b) {
				t.Errorf("sentinel %v should not match %v", a, b)
			}
		}
	}
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("failed to complete workflow 'abc': %w", ErrWorkflowNotReady)
	if !stderrors.Is(wrapped, ErrWorkflowNotReady) {
		t.Error("wrapped error should match ErrWorkflowNotReady")
	}

	doubleWrapped := fmt.Errorf("api layer: %w", wrapped)
	if !stderrors.Is(doubleWrapped, ErrWorkflowNotReady) {
		t.Error("double-wrapped error should match ErrWorkflowNotReady")
	}
}
