package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

const agentColumns = `id, status, current_task_id, system_prompt, created_at, updated_at`

// CreateAgent inserts an agent row.
func (q *Queries) CreateAgent(ctx context.Context, a *domain.Agent) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Status), nullable(a.CurrentTaskID), nullable(a.SystemPrompt),
		fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create agent %s: %w", a.ID, err)
	}
	return nil
}

// GetAgent returns the agent or ErrAgentNotFound.
func (q *Queries) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)

	a, err := scanAgent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", coxerrors.ErrAgentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent %s: %w", id, err)
	}
	return a, nil
}

// UpdateAgentStatus transitions an agent to the given status.
func (q *Queries) UpdateAgentStatus(ctx context.Context, agentID string, status constants.AgentStatus) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE agents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), fmtTime(nowUTC()), agentID)
	if err != nil {
		return fmt.Errorf("failed to update agent %s status: %w", agentID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", coxerrors.ErrAgentNotFound, agentID)
	}
	return nil
}

// ClearAgentTask nulls the agent's current task reference.
func (q *Queries) ClearAgentTask(ctx context.Context, agentID string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE agents SET current_task_id = NULL, updated_at = ? WHERE id = ?`,
		fmtTime(nowUTC()), agentID)
	if err != nil {
		return fmt.Errorf("failed to clear agent %s task: %w", agentID, err)
	}
	return nil
}

// ListActiveAgentsForWorkflow returns agents in an active status that are
// tied to the workflow, either through an assigned task or through their
// current task.
func (q *Queries) ListActiveAgentsForWorkflow(ctx context.Context, workflowID string) ([]*domain.Agent, error) {
	active := constants.ActiveAgentStatuses()
	placeholders := make([]string, len(active))
	statusArgs := make([]any, len(active))
	for i, s := range active {
		placeholders[i] = "?"
		statusArgs[i] = string(s)
	}
	in := strings.Join(placeholders, ", ")

	query := `
		SELECT DISTINCT a.` + strings.ReplaceAll(agentColumns, ", ", ", a.") + `
		FROM agents a
		LEFT JOIN tasks assigned ON assigned.assigned_agent_id = a.id
		LEFT JOIN tasks current ON current.id = a.current_task_id
		WHERE a.status IN (` + in + `)
		  AND (assigned.workflow_id = ? OR current.workflow_id = ?)
		ORDER BY a.id`

	args := append(statusArgs, workflowID, workflowID)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active agents for workflow %s: %w", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	var agents []*domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// ListAgentsForWorkflow returns every agent tied to the workflow through
// tasks, regardless of status.
func (q *Queries) ListAgentsForWorkflow(ctx context.Context, workflowID string) ([]*domain.Agent, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT DISTINCT a.`+strings.ReplaceAll(agentColumns, ", ", ", a.")+`
		FROM agents a
		LEFT JOIN tasks assigned ON assigned.assigned_agent_id = a.id
		LEFT JOIN tasks current ON current.id = a.current_task_id
		WHERE assigned.workflow_id = ? OR current.workflow_id = ?
		ORDER BY a.id`, workflowID, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents for workflow %s: %w", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	var agents []*domain.Agent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func scanAgent(s scanner) (*domain.Agent, error) {
	var (
		a                    domain.Agent
		status               string
		taskID, prompt       sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&a.ID, &status, &taskID, &prompt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = constants.AgentStatus(status)
	a.CurrentTaskID = taskID.String
	a.SystemPrompt = prompt.String
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

// CreateAgentLog appends a diagnostic log line for an agent.
func (q *Queries) CreateAgentLog(ctx context.Context, l *domain.AgentLog) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agent_logs (agent_id, level, message, created_at)
		VALUES (?, ?, ?, ?)`,
		l.AgentID, l.Level, l.Message, fmtTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create agent log: %w", err)
	}
	return nil
}

// CreateMemory appends a knowledge record.
func (q *Queries) CreateMemory(ctx context.Context, m *domain.Memory) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO memories (agent_id, related_task_id, kind, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		nullable(m.AgentID), nullable(m.RelatedTaskID), m.Kind, m.Content,
		fmtTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create memory: %w", err)
	}
	return nil
}

// ListIncidentMemories returns incident-kind memories tied to the
// workflow's tasks, ordered by creation.
func (q *Queries) ListIncidentMemories(ctx context.Context, workflowID string) ([]*domain.Memory, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT m.id, m.agent_id, m.related_task_id, m.kind, m.content, m.created_at
		FROM memories m
		JOIN tasks t ON t.id = m.related_task_id
		WHERE t.workflow_id = ? AND m.kind = ?
		ORDER BY m.created_at, m.id`,
		workflowID, domain.MemoryKindIncident)
	if err != nil {
		return nil, fmt.Errorf("failed to list incident memories for workflow %s: %w", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	var memories []*domain.Memory
	for rows.Next() {
		var (
			m               domain.Memory
			agentID, taskID sql.NullString
			createdAt       string
		)
		if err := rows.Scan(&m.ID, &agentID, &taskID, &m.Kind, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.AgentID = agentID.String
		m.RelatedTaskID = taskID.String
		m.CreatedAt = parseTime(createdAt)
		memories = append(memories, &m)
	}
	return memories, rows.Err()
}

// CreateDiagnosticReport appends an automated health verdict for an agent.
func (q *Queries) CreateDiagnosticReport(ctx context.Context, dr *domain.DiagnosticReport) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO diagnostic_reports (agent_id, verdict, details, created_at)
		VALUES (?, ?, ?, ?)`,
		dr.AgentID, dr.Verdict, nullable(dr.Details), fmtTime(dr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create diagnostic report: %w", err)
	}
	return nil
}

// CreateSteeringRecord appends a manual course-correction for an agent.
func (q *Queries) CreateSteeringRecord(ctx context.Context, sr *domain.SteeringRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO steering_records (agent_id, instruction, created_at)
		VALUES (?, ?, ?)`,
		sr.AgentID, sr.Instruction, fmtTime(sr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create steering record: %w", err)
	}
	return nil
}
