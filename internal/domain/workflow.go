package domain

import (
	"time"

	"github.com/mtessler/coxswain/internal/constants"
)

// Workflow is the top-level unit of work. It owns zero-or-one integration
// branch forked from trunk; the branch aggregates all of the workflow's
// agent work ahead of an optional human review gate.
//
// A workflow reaches FinalMergeStatus merged only after a concrete merge
// commit id is recorded in FinalMergeCommitSHA; that transition is never
// rolled back.
type Workflow struct {
	// ID is the unique identifier for this workflow.
	ID string `json:"id"`

	// Name is the human-readable workflow name.
	Name string `json:"name"`

	// Description explains what the workflow is building.
	Description string `json:"description,omitempty"`

	// Status is the overall workflow state.
	Status constants.WorkflowStatus `json:"status"`

	// BranchName is the per-workflow integration branch, empty until created.
	BranchName string `json:"workflow_branch_name,omitempty"`

	// BranchCreated records whether the integration branch exists.
	BranchCreated bool `json:"workflow_branch_created"`

	// CreatedFromSHA is the trunk tip the branch was forked from.
	CreatedFromSHA string `json:"created_from_sha,omitempty"`

	// FinalMergeStatus is the integration state relative to trunk.
	FinalMergeStatus constants.FinalMergeStatus `json:"final_merge_status"`

	// FinalMergeCommitSHA is the 40-hex merge commit id once merged.
	FinalMergeCommitSHA string `json:"final_merge_commit_sha,omitempty"`

	// FinalMergeReviewedAt is when a reviewer approved or rejected the merge.
	FinalMergeReviewedAt *time.Time `json:"final_merge_reviewed_at,omitempty"`

	// FinalMergeReviewedBy identifies the reviewer.
	FinalMergeReviewedBy string `json:"final_merge_reviewed_by,omitempty"`

	// CreatedAt is when the workflow was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the workflow was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// HasBranch reports whether the workflow has a recorded integration branch.
func (w *Workflow) HasBranch() bool {
	return w.BranchName != "" && w.BranchCreated
}

// Task is a scheduling unit owned by a workflow. This core references tasks
// only for precondition checks (no active task means the workflow may
// finalize) and for cascade deletion.
type Task struct {
	ID               string               `json:"id"`
	WorkflowID       string               `json:"workflow_id"`
	PhaseID          string               `json:"phase_id,omitempty"`
	Title            string               `json:"title"`
	Status           constants.TaskStatus `json:"status"`
	AssignedAgentID  string               `json:"assigned_agent_id,omitempty"`
	CreatedByAgentID string               `json:"created_by_agent_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Phase is an ordered stage of a workflow.
type Phase struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Name       string    `json:"name"`
	Order      int       `json:"order"`
	CreatedAt  time.Time `json:"created_at"`
}

// PhaseExecution records one run of a phase. Dangling executions are
// finalized with a synthetic summary when the workflow completes.
type PhaseExecution struct {
	ID                int64                          `json:"id"`
	PhaseID           string                         `json:"phase_id"`
	Status            constants.PhaseExecutionStatus `json:"status"`
	CompletionSummary string                         `json:"completion_summary,omitempty"`
	CompletedAt       *time.Time                     `json:"completed_at,omitempty"`
	CreatedAt         time.Time                      `json:"created_at"`
}

// ValidationReview records an automated review verdict for a task.
type ValidationReview struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	Verdict   string    `json:"verdict"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkflowResult is an artifact produced by a completed workflow.
type WorkflowResult struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// DiagnosticRun records one orchestrator health sweep over a workflow.
type DiagnosticRun struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}

// BoardConfig holds per-workflow ticket board settings.
type BoardConfig struct {
	ID         int64     `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Columns    string    `json:"columns"`
	CreatedAt  time.Time `json:"created_at"`
}
