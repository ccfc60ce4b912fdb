package domain

import (
	"time"

	"github.com/mtessler/coxswain/internal/constants"
)

// Worktree is the 1:1 filesystem+branch pair bound to an agent. It is
// created when the agent spawns and destroyed by cleanup; the record is kept
// (status "removed") so the commit audit trail survives until the owning
// workflow is deleted.
type Worktree struct {
	// AgentID is the owning agent. One live worktree per agent.
	AgentID string `json:"agent_id"`

	// Path is the absolute filesystem path of the checkout.
	Path string `json:"path"`

	// Branch is the dedicated branch the worktree is checked out on.
	// Deterministic: configured prefix + agent id.
	Branch string `json:"branch"`

	// BaseSHA is the trunk tip the branch was forked from.
	BaseSHA string `json:"base_sha"`

	// Status is active while the checkout exists on disk.
	Status constants.WorktreeStatus `json:"status"`

	// CreatedAt is when the worktree was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// WorktreeCommit is an append-only audit record of a commit produced inside
// an agent worktree.
type WorktreeCommit struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	CommitSHA string    `json:"commit_sha"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// MergeConflictResolution is an audit record of a file-level conflict and
// the deterministic decision taken. Rows are written durably before the
// merge commit finalizes so the full decision history can be reconstructed.
type MergeConflictResolution struct {
	ID           int64     `json:"id"`
	AgentID      string    `json:"agent_id"`
	TargetBranch string    `json:"target_branch"`
	FilePath     string    `json:"file_path"`
	Winner       string    `json:"winner"` // "ours" (parent) or "theirs" (child)
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conflict winner sides as recorded in the audit trail. "ours" is the
// existing parent branch version, "theirs" the agent's child version.
const (
	ConflictWinnerParent = "ours"
	ConflictWinnerChild  = "theirs"
)
