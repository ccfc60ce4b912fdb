package constants

// AgentStatus represents the lifecycle state of an autonomous agent.
// Status values use snake_case for serialization compatibility.
type AgentStatus string

// Agent status constants.
const (
	// AgentStatusWorking indicates the agent is actively executing a task.
	AgentStatusWorking AgentStatus = "working"

	// AgentStatusIdle indicates the agent is alive but has no current task.
	AgentStatusIdle AgentStatus = "idle"

	// AgentStatusPending indicates the agent is spawning and not yet ready.
	AgentStatusPending AgentStatus = "pending"

	// AgentStatusTerminated indicates the agent process has been stopped.
	// This is the only terminal agent state.
	AgentStatusTerminated AgentStatus = "terminated"
)

// IsActive returns true for agent states that block workflow completion
// and deletion. Terminated is the only inactive state.
func (s AgentStatus) IsActive() bool {
	switch s {
	case AgentStatusWorking, AgentStatusIdle, AgentStatusPending:
		return true
	case AgentStatusTerminated:
		return false
	default:
		return false
	}
}

// ActiveAgentStatuses lists every agent state considered active.
// Used for SQL IN clauses when counting blocking agents.
func ActiveAgentStatuses() []AgentStatus {
	return []AgentStatus{AgentStatusWorking, AgentStatusIdle, AgentStatusPending}
}

// WorkflowStatus represents the overall state of a workflow.
//
// The state machine follows this flow:
//
//	Active → PendingFinalReview → {Completed, Failed}
//	Active → Completed  (no-branch / auto-merge path)
type WorkflowStatus string

// Workflow status constants.
const (
	// WorkflowStatusActive indicates the workflow is in progress.
	WorkflowStatusActive WorkflowStatus = "active"

	// WorkflowStatusPendingFinalReview indicates the workflow finished its
	// work but is paused awaiting an external approve/reject decision on
	// its integration branch.
	WorkflowStatusPendingFinalReview WorkflowStatus = "pending_final_review"

	// WorkflowStatusCompleted indicates the workflow finished successfully.
	WorkflowStatusCompleted WorkflowStatus = "completed"

	// WorkflowStatusFailed indicates the workflow ended without its work
	// reaching trunk (for example a rejected final merge).
	WorkflowStatusFailed WorkflowStatus = "failed"
)

// FinalMergeStatus represents a workflow's integration state relative to trunk.
//
// The state machine follows this flow:
//
//	NotApplicable → Merged                    (auto-merge path)
//	PendingReview → Approved → Merged         (review path)
//	PendingReview → Rejected                  (terminal)
type FinalMergeStatus string

// Final merge status constants.
const (
	// FinalMergeNotApplicable indicates no review gate is configured; the
	// workflow branch auto-merges into trunk on completion.
	FinalMergeNotApplicable FinalMergeStatus = "not_applicable"

	// FinalMergePendingReview indicates the merge awaits a human decision.
	FinalMergePendingReview FinalMergeStatus = "pending_review"

	// FinalMergeApproved indicates a reviewer approved the merge.
	FinalMergeApproved FinalMergeStatus = "approved"

	// FinalMergeMerged indicates the workflow branch landed on trunk and a
	// merge commit id was recorded. This transition is never rolled back.
	FinalMergeMerged FinalMergeStatus = "merged"

	// FinalMergeRejected indicates a reviewer rejected the merge. Terminal.
	// The workflow branch is preserved for forensic recovery.
	FinalMergeRejected FinalMergeStatus = "rejected"
)

// TaskStatus represents the state of a scheduling unit owned by a workflow.
// Tasks are referenced by this core only for precondition checks.
type TaskStatus string

// Task status constants.
const (
	TaskStatusPending              TaskStatus = "pending"
	TaskStatusAssigned             TaskStatus = "assigned"
	TaskStatusInProgress           TaskStatus = "in_progress"
	TaskStatusUnderReview          TaskStatus = "under_review"
	TaskStatusValidationInProgress TaskStatus = "validation_in_progress"
	TaskStatusDone                 TaskStatus = "done"
	TaskStatusFailed               TaskStatus = "failed"
	TaskStatusCancelled            TaskStatus = "cancelled"
)

// ActiveTaskStatuses lists every task state that blocks workflow completion.
func ActiveTaskStatuses() []TaskStatus {
	return []TaskStatus{
		TaskStatusPending,
		TaskStatusAssigned,
		TaskStatusInProgress,
		TaskStatusUnderReview,
		TaskStatusValidationInProgress,
	}
}

// IsTerminal returns true for task states with no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDone, TaskStatusFailed, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// PhaseExecutionStatus represents the state of a phase execution record.
type PhaseExecutionStatus string

// Phase execution status constants.
const (
	PhaseExecutionPending    PhaseExecutionStatus = "pending"
	PhaseExecutionInProgress PhaseExecutionStatus = "in_progress"
	PhaseExecutionCompleted  PhaseExecutionStatus = "completed"
)

// WorktreeStatus represents the state of an agent worktree record.
type WorktreeStatus string

// Worktree status constants.
const (
	// WorktreeStatusActive indicates the checkout and branch exist on disk.
	WorktreeStatusActive WorktreeStatus = "active"

	// WorktreeStatusRemoved indicates cleanup ran; the row is kept so the
	// commit audit trail survives until workflow deletion cascades it.
	WorktreeStatusRemoved WorktreeStatus = "removed"
)

// MergeStatus represents the outcome of a merge operation.
type MergeStatus string

// Merge status constants.
const (
	// MergeStatusSuccess indicates a conflict-free merge.
	MergeStatusSuccess MergeStatus = "success"

	// MergeStatusConflictResolved indicates conflicts occurred and the
	// deterministic policy resolved every one of them.
	MergeStatusConflictResolved MergeStatus = "conflict_resolved"

	// MergeStatusFailed indicates the merge was aborted with zero partial
	// mutation; the source branch remains intact for manual recovery.
	MergeStatusFailed MergeStatus = "failed"
)
