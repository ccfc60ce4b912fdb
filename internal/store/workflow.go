package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

const workflowColumns = `id, name, description, status, branch_name, branch_created,
	created_from_sha, final_merge_status, final_merge_commit_sha,
	final_merge_reviewed_at, final_merge_reviewed_by, created_at, updated_at`

// CreateWorkflow inserts a new workflow row.
func (q *Queries) CreateWorkflow(ctx context.Context, wf *domain.Workflow) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.Name, nullable(wf.Description), string(wf.Status),
		nullable(wf.BranchName), wf.BranchCreated, nullable(wf.CreatedFromSHA),
		string(wf.FinalMergeStatus), nullable(wf.FinalMergeCommitSHA),
		fmtTimePtr(wf.FinalMergeReviewedAt), nullable(wf.FinalMergeReviewedBy),
		fmtTime(wf.CreatedAt), fmtTime(wf.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create workflow %s: %w", wf.ID, err)
	}
	return nil
}

// GetWorkflow returns the workflow or ErrWorkflowNotFound.
func (q *Queries) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = ?`, id)

	wf, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", coxerrors.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow %s: %w", id, err)
	}
	return wf, nil
}

// UpdateWorkflow writes every mutable workflow field and bumps updated_at.
func (q *Queries) UpdateWorkflow(ctx context.Context, wf *domain.Workflow) error {
	wf.UpdatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx, `
		UPDATE workflows SET
			name = ?, description = ?, status = ?, branch_name = ?,
			branch_created = ?, created_from_sha = ?, final_merge_status = ?,
			final_merge_commit_sha = ?, final_merge_reviewed_at = ?,
			final_merge_reviewed_by = ?, updated_at = ?
		WHERE id = ?`,
		wf.Name, nullable(wf.Description), string(wf.Status),
		nullable(wf.BranchName), wf.BranchCreated, nullable(wf.CreatedFromSHA),
		string(wf.FinalMergeStatus), nullable(wf.FinalMergeCommitSHA),
		fmtTimePtr(wf.FinalMergeReviewedAt), nullable(wf.FinalMergeReviewedBy),
		fmtTime(wf.UpdatedAt), wf.ID)
	if err != nil {
		return fmt.Errorf("failed to update workflow %s: %w", wf.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", coxerrors.ErrWorkflowNotFound, wf.ID)
	}
	return nil
}

// ListWorkflows returns all workflows ordered by creation time.
func (q *Queries) ListWorkflows(ctx context.Context) ([]*domain.Workflow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var workflows []*domain.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(s scanner) (*domain.Workflow, error) {
	var (
		wf                             domain.Workflow
		description, branchName        sql.NullString
		createdFromSHA, mergeCommitSHA sql.NullString
		reviewedAt, reviewedBy         sql.NullString
		status, mergeStatus            string
		createdAt, updatedAt           string
	)
	err := s.Scan(&wf.ID, &wf.Name, &description, &status, &branchName,
		&wf.BranchCreated, &createdFromSHA, &mergeStatus, &mergeCommitSHA,
		&reviewedAt, &reviewedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	wf.Description = description.String
	wf.Status = constants.WorkflowStatus(status)
	wf.BranchName = branchName.String
	wf.CreatedFromSHA = createdFromSHA.String
	wf.FinalMergeStatus = constants.FinalMergeStatus(mergeStatus)
	wf.FinalMergeCommitSHA = mergeCommitSHA.String
	wf.FinalMergeReviewedAt = parseTimePtr(reviewedAt)
	wf.FinalMergeReviewedBy = reviewedBy.String
	wf.CreatedAt = parseTime(createdAt)
	wf.UpdatedAt = parseTime(updatedAt)
	return &wf, nil
}

// CreatePhase inserts a phase row.
func (q *Queries) CreatePhase(ctx context.Context, p *domain.Phase) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO phases (id, workflow_id, name, ord, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.WorkflowID, p.Name, p.Order, fmtTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create phase %s: %w", p.ID, err)
	}
	return nil
}

// CreatePhaseExecution inserts a phase execution row and returns its id.
func (q *Queries) CreatePhaseExecution(ctx context.Context, pe *domain.PhaseExecution) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO phase_executions (phase_id, status, completion_summary, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		pe.PhaseID, string(pe.Status), nullable(pe.CompletionSummary),
		fmtTimePtr(pe.CompletedAt), fmtTime(pe.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create phase execution: %w", err)
	}
	return res.LastInsertId()
}

// ListRunningPhaseExecutions returns executions of the workflow's phases
// that have not finished.
func (q *Queries) ListRunningPhaseExecutions(ctx context.Context, workflowID string) ([]*domain.PhaseExecution, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT pe.id, pe.phase_id, pe.status, pe.completion_summary, pe.completed_at, pe.created_at
		FROM phase_executions pe
		JOIN phases p ON p.id = pe.phase_id
		WHERE p.workflow_id = ? AND pe.status = ?
		ORDER BY pe.id`,
		workflowID, string(constants.PhaseExecutionInProgress))
	if err != nil {
		return nil, fmt.Errorf("failed to list running phase executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var execs []*domain.PhaseExecution
	for rows.Next() {
		var (
			pe                   domain.PhaseExecution
			status               string
			summary, completedAt sql.NullString
			createdAt            string
		)
		if err := rows.Scan(&pe.ID, &pe.PhaseID, &status, &summary, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		pe.Status = constants.PhaseExecutionStatus(status)
		pe.CompletionSummary = summary.String
		pe.CompletedAt = parseTimePtr(completedAt)
		pe.CreatedAt = parseTime(createdAt)
		execs = append(execs, &pe)
	}
	return execs, rows.Err()
}

// FinalizePhaseExecution marks an execution completed with a summary.
func (q *Queries) FinalizePhaseExecution(ctx context.Context, id int64, summary string, completedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE phase_executions
		SET status = ?, completion_summary = ?, completed_at = ?
		WHERE id = ?`,
		string(constants.PhaseExecutionCompleted), summary, fmtTime(completedAt), id)
	if err != nil {
		return fmt.Errorf("failed to finalize phase execution %d: %w", id, err)
	}
	return nil
}

// CreateWorkflowResult appends a workflow artifact.
func (q *Queries) CreateWorkflowResult(ctx context.Context, wr *domain.WorkflowResult) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO workflow_results (workflow_id, content, created_at)
		VALUES (?, ?, ?)`,
		wr.WorkflowID, wr.Content, fmtTime(wr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create workflow result: %w", err)
	}
	return nil
}

// CreateDiagnosticRun appends an orchestrator health sweep record.
func (q *Queries) CreateDiagnosticRun(ctx context.Context, dr *domain.DiagnosticRun) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO diagnostic_runs (workflow_id, summary, created_at)
		VALUES (?, ?, ?)`,
		dr.WorkflowID, dr.Summary, fmtTime(dr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create diagnostic run: %w", err)
	}
	return nil
}

// CreateBoardConfig appends a per-workflow ticket board configuration.
func (q *Queries) CreateBoardConfig(ctx context.Context, bc *domain.BoardConfig) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO board_configs (workflow_id, columns, created_at)
		VALUES (?, ?, ?)`,
		bc.WorkflowID, bc.Columns, fmtTime(bc.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create board config: %w", err)
	}
	return nil
}
