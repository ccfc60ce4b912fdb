package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
)

const taskColumns = `id, workflow_id, phase_id, title, status,
	assigned_agent_id, created_by_agent_id, created_at, updated_at`

// CreateTask inserts a task row.
func (q *Queries) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WorkflowID, nullable(t.PhaseID), t.Title, string(t.Status),
		nullable(t.AssignedAgentID), nullable(t.CreatedByAgentID),
		fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", t.ID, err)
	}
	return nil
}

// ListTasksByWorkflow returns every task owned by the workflow.
func (q *Queries) ListTasksByWorkflow(ctx context.Context, workflowID string) ([]*domain.Task, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE workflow_id = ? ORDER BY created_at, id`,
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for workflow %s: %w", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanTasks(rows)
}

// ListActiveTasks returns the workflow's tasks in a non-terminal status.
func (q *Queries) ListActiveTasks(ctx context.Context, workflowID string) ([]*domain.Task, error) {
	active := constants.ActiveTaskStatuses()
	placeholders := make([]string, len(active))
	args := make([]any, 0, len(active)+1)
	args = append(args, workflowID)
	for i, s := range active {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks
		 WHERE workflow_id = ? AND status IN (`+strings.Join(placeholders, ", ")+`)
		 ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tasks for workflow %s: %w", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanTasks(rows)
}

// CountTasksByStatus returns a status -> count map for the workflow's tasks.
func (q *Queries) CountTasksByStatus(ctx context.Context, workflowID string) (map[constants.TaskStatus]int, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks WHERE workflow_id = ? GROUP BY status`,
		workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks for workflow %s: %w", workflowID, err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[constants.TaskStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[constants.TaskStatus(status)] = count
	}
	return counts, rows.Err()
}

// UpdateTaskStatus transitions a task to the given status.
func (q *Queries) UpdateTaskStatus(ctx context.Context, taskID string, status constants.TaskStatus) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), fmtTime(nowUTC()), taskID)
	if err != nil {
		return fmt.Errorf("failed to update task %s status: %w", taskID, err)
	}
	return nil
}

func scanTasks(rows *sql.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		var (
			t                    domain.Task
			phaseID              sql.NullString
			status               string
			assignedTo, madeBy   sql.NullString
			createdAt, updatedAt string
		)
		err := rows.Scan(&t.ID, &t.WorkflowID, &phaseID, &t.Title, &status,
			&assignedTo, &madeBy, &createdAt, &updatedAt)
		if err != nil {
			return nil, err
		}
		t.PhaseID = phaseID.String
		t.Status = constants.TaskStatus(status)
		t.AssignedAgentID = assignedTo.String
		t.CreatedByAgentID = madeBy.String
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}

// CreateValidationReview appends an automated review verdict for a task.
func (q *Queries) CreateValidationReview(ctx context.Context, vr *domain.ValidationReview) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO validation_reviews (task_id, verdict, notes, created_at)
		VALUES (?, ?, ?, ?)`,
		vr.TaskID, vr.Verdict, nullable(vr.Notes), fmtTime(vr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create validation review: %w", err)
	}
	return nil
}

// CreateAgentResult appends the output an agent produced for a task.
func (q *Queries) CreateAgentResult(ctx context.Context, ar *domain.AgentResult) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO agent_results (task_id, agent_id, summary, created_at)
		VALUES (?, ?, ?, ?)`,
		ar.TaskID, ar.AgentID, ar.Summary, fmtTime(ar.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create agent result: %w", err)
	}
	return nil
}
