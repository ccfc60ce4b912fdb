package store

import (
	"context"
	"fmt"
	"strings"
)

// DeletionCounts maps table names to the number of rows removed by a
// workflow cascade deletion.
type DeletionCounts map[string]int64

// Total sums the per-table counts.
func (c DeletionCounts) Total() int64 {
	var total int64
	for _, n := range c {
		total += n
	}
	return total
}

// CascadeDeleteWorkflow removes a workflow and every dependent row in
// leaf-to-root order. Agent-side foreign keys (tasks.assigned_agent_id,
// tasks.created_by_agent_id, agents.current_task_id) are nulled before
// their targets are deleted; the schema has no ON DELETE CASCADE, so any
// missed dependency fails the transaction loudly.
//
// Run inside Store.WithTx: a failure at any step rolls back every prior
// step.
func (q *Queries) CascadeDeleteWorkflow(ctx context.Context, workflowID string) (DeletionCounts, error) {
	counts := make(DeletionCounts)

	phaseIDs, err := q.stringColumn(ctx,
		`SELECT id FROM phases WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, err
	}
	taskIDs, err := q.stringColumn(ctx,
		`SELECT id FROM tasks WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, err
	}
	agentIDs, err := q.stringColumn(ctx, `
		SELECT DISTINCT assigned_agent_id FROM tasks
		WHERE workflow_id = ? AND assigned_agent_id IS NOT NULL
		UNION
		SELECT DISTINCT created_by_agent_id FROM tasks
		WHERE workflow_id = ? AND created_by_agent_id IS NOT NULL`,
		workflowID, workflowID)
	if err != nil {
		return nil, err
	}
	ticketIDs, err := q.stringColumn(ctx,
		`SELECT id FROM tickets WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, err
	}

	// 1. Phase executions (children of phases).
	counts["phase_executions"], err = q.deleteIn(ctx,
		"phase_executions", "phase_id", phaseIDs)
	if err != nil {
		return nil, err
	}

	// 2. Ticket children.
	for _, table := range []string{"ticket_comments", "ticket_history", "ticket_commits"} {
		counts[table], err = q.deleteIn(ctx, table, "ticket_id", ticketIDs)
		if err != nil {
			return nil, err
		}
	}

	// 3. Tickets.
	counts["tickets"], err = q.deleteBy(ctx, "tickets", "workflow_id", workflowID)
	if err != nil {
		return nil, err
	}

	// 4. Task children.
	counts["memories"], err = q.deleteIn(ctx, "memories", "related_task_id", taskIDs)
	if err != nil {
		return nil, err
	}
	counts["agent_results"], err = q.deleteIn(ctx, "agent_results", "task_id", taskIDs)
	if err != nil {
		return nil, err
	}
	counts["validation_reviews"], err = q.deleteIn(ctx, "validation_reviews", "task_id", taskIDs)
	if err != nil {
		return nil, err
	}

	// 4b. Agent children: commit and conflict audit rows first, then the
	// worktree rows they describe, then diagnostics and logs. Conflict
	// audit rows also cover workflow-to-trunk merges, recorded under the
	// workflow id as actor.
	counts["worktree_commits"], err = q.deleteIn(ctx, "worktree_commits", "agent_id", agentIDs)
	if err != nil {
		return nil, err
	}
	counts["merge_conflict_resolutions"], err = q.deleteIn(ctx,
		"merge_conflict_resolutions", "agent_id", append(agentIDs, workflowID))
	if err != nil {
		return nil, err
	}
	for _, table := range []string{
		"worktrees", "diagnostic_reports", "steering_records", "agent_logs",
	} {
		counts[table], err = q.deleteIn(ctx, table, "agent_id", agentIDs)
		if err != nil {
			return nil, err
		}
	}
	// Remaining memories attached to these agents directly.
	agentMemories, err := q.deleteIn(ctx, "memories", "agent_id", agentIDs)
	if err != nil {
		return nil, err
	}
	counts["memories"] += agentMemories

	// 5. Tasks, after nulling their agent references.
	if _, err := q.db.ExecContext(ctx, `
		UPDATE tasks SET assigned_agent_id = NULL, created_by_agent_id = NULL
		WHERE workflow_id = ?`, workflowID); err != nil {
		return nil, fmt.Errorf("failed to clear task agent references: %w", err)
	}
	counts["tasks"], err = q.deleteBy(ctx, "tasks", "workflow_id", workflowID)
	if err != nil {
		return nil, err
	}

	// 6-8. Workflow-owned records.
	for _, table := range []string{"workflow_results", "diagnostic_runs", "board_configs"} {
		counts[table], err = q.deleteBy(ctx, table, "workflow_id", workflowID)
		if err != nil {
			return nil, err
		}
	}

	// 9. Phases.
	counts["phases"], err = q.deleteBy(ctx, "phases", "workflow_id", workflowID)
	if err != nil {
		return nil, err
	}

	// 10. Agents, after nulling their task references.
	if len(agentIDs) > 0 {
		in, args := inClause(agentIDs)
		if _, err := q.db.ExecContext(ctx,
			`UPDATE agents SET current_task_id = NULL WHERE id IN (`+in+`)`,
			args...); err != nil {
			return nil, fmt.Errorf("failed to clear agent task references: %w", err)
		}
	}
	counts["agents"], err = q.deleteIn(ctx, "agents", "id", agentIDs)
	if err != nil {
		return nil, err
	}

	// 11. The workflow itself.
	counts["workflows"], err = q.deleteBy(ctx, "workflows", "id", workflowID)
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// DeletionPreviewCounts returns the same per-table counts as
// CascadeDeleteWorkflow without deleting anything.
func (q *Queries) DeletionPreviewCounts(ctx context.Context, workflowID string) (DeletionCounts, error) {
	counts := make(DeletionCounts)

	phaseIDs, err := q.stringColumn(ctx,
		`SELECT id FROM phases WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, err
	}
	taskIDs, err := q.stringColumn(ctx,
		`SELECT id FROM tasks WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, err
	}
	agentIDs, err := q.stringColumn(ctx, `
		SELECT DISTINCT assigned_agent_id FROM tasks
		WHERE workflow_id = ? AND assigned_agent_id IS NOT NULL
		UNION
		SELECT DISTINCT created_by_agent_id FROM tasks
		WHERE workflow_id = ? AND created_by_agent_id IS NOT NULL`,
		workflowID, workflowID)
	if err != nil {
		return nil, err
	}
	ticketIDs, err := q.stringColumn(ctx,
		`SELECT id FROM tickets WHERE workflow_id = ?`, workflowID)
	if err != nil {
		return nil, err
	}

	counts["phase_executions"], err = q.countIn(ctx, "phase_executions", "phase_id", phaseIDs)
	if err != nil {
		return nil, err
	}
	for _, table := range []string{"ticket_comments", "ticket_history", "ticket_commits"} {
		counts[table], err = q.countIn(ctx, table, "ticket_id", ticketIDs)
		if err != nil {
			return nil, err
		}
	}
	for _, table := range []string{"agent_results", "validation_reviews"} {
		counts[table], err = q.countIn(ctx, table, "task_id", taskIDs)
		if err != nil {
			return nil, err
		}
	}
	counts["memories"], err = q.countMemories(ctx, taskIDs, agentIDs)
	if err != nil {
		return nil, err
	}
	counts["merge_conflict_resolutions"], err = q.countIn(ctx,
		"merge_conflict_resolutions", "agent_id", append(agentIDs, workflowID))
	if err != nil {
		return nil, err
	}
	for _, table := range []string{
		"worktree_commits", "worktrees",
		"diagnostic_reports", "steering_records", "agent_logs",
	} {
		counts[table], err = q.countIn(ctx, table, "agent_id", agentIDs)
		if err != nil {
			return nil, err
		}
	}
	counts["tickets"] = int64(len(ticketIDs))
	counts["tasks"] = int64(len(taskIDs))
	counts["phases"] = int64(len(phaseIDs))
	counts["agents"] = int64(len(agentIDs))
	for _, table := range []string{"workflow_results", "diagnostic_runs", "board_configs"} {
		counts[table], err = q.countIn(ctx, table, "workflow_id", []string{workflowID})
		if err != nil {
			return nil, err
		}
	}
	counts["workflows"] = 1

	return counts, nil
}

func (q *Queries) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to collect ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (q *Queries) deleteBy(ctx context.Context, table, column, value string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE "+column+" = ?", value) //#nosec G202 -- table and column are compile-time constants
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (q *Queries) deleteIn(ctx context.Context, table, column string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	res, err := q.db.ExecContext(ctx,
		"DELETE FROM "+table+" WHERE "+column+" IN ("+in+")", args...) //#nosec G202 -- table and column are compile-time constants
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return res.RowsAffected()
}

// countMemories counts memory rows attached to the workflow's tasks or
// agents. The cascade deletes a row carrying both references once, so the
// preview must not count it twice.
func (q *Queries) countMemories(ctx context.Context, taskIDs, agentIDs []string) (int64, error) {
	switch {
	case len(taskIDs) == 0 && len(agentIDs) == 0:
		return 0, nil
	case len(agentIDs) == 0:
		return q.countIn(ctx, "memories", "related_task_id", taskIDs)
	case len(taskIDs) == 0:
		return q.countIn(ctx, "memories", "agent_id", agentIDs)
	}

	taskIn, taskArgs := inClause(taskIDs)
	agentIn, agentArgs := inClause(agentIDs)
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories
		 WHERE related_task_id IN (`+taskIn+`) OR agent_id IN (`+agentIn+`)`,
		append(taskArgs, agentArgs...)...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count memories: %w", err)
	}
	return n, nil
}

func (q *Queries) countIn(ctx context.Context, table, column string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	in, args := inClause(ids)
	var n int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+table+" WHERE "+column+" IN ("+in+")", //#nosec G202 -- table and column are compile-time constants
		args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func inClause(ids []string) (string, []any) {
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
