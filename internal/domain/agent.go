// Package domain provides shared domain types for the coxswain orchestration system.
package domain

import (
	"time"

	"github.com/mtessler/coxswain/internal/constants"
)

// Agent represents an autonomous worker identity. An active agent owns at
// most one Worktree; the worktree is created on spawn and destroyed on
// cleanup, never force-removed while its agent is active.
type Agent struct {
	// ID is the unique identifier for this agent.
	ID string `json:"id"`

	// Status is the current lifecycle state of the agent.
	Status constants.AgentStatus `json:"status"`

	// CurrentTaskID references the task the agent is working on, if any.
	// Nulled before agent deletion during workflow teardown.
	CurrentTaskID string `json:"current_task_id,omitempty"`

	// SystemPrompt is the instruction set the agent was spawned with.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// CreatedAt is when the agent was spawned.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the agent record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// AgentLog is a diagnostic log line captured from an agent session.
type AgentLog struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentResult records the output an agent produced for a task.
type AgentResult struct {
	ID        int64     `json:"id"`
	TaskID    string    `json:"task_id"`
	AgentID   string    `json:"agent_id"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"created_at"`
}

// Memory is a knowledge record an agent persisted during its work.
// Incident-type memories feed the incident exporter on workflow completion.
type Memory struct {
	ID            int64     `json:"id"`
	AgentID       string    `json:"agent_id,omitempty"`
	RelatedTaskID string    `json:"related_task_id,omitempty"`
	Kind          string    `json:"kind"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// MemoryKindIncident marks memories exported by the incident exporter.
const MemoryKindIncident = "incident"

// DiagnosticReport is an automated health analysis recorded against an agent.
type DiagnosticReport struct {
	ID        int64     `json:"id"`
	AgentID   string    `json:"agent_id"`
	Verdict   string    `json:"verdict"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// SteeringRecord is a manual course-correction issued to an agent.
type SteeringRecord struct {
	ID          int64     `json:"id"`
	AgentID     string    `json:"agent_id"`
	Instruction string    `json:"instruction"`
	CreatedAt   time.Time `json:"created_at"`
}
