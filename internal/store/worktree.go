package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mtessler/coxswain/internal/constants"
	"github.com/mtessler/coxswain/internal/domain"
	coxerrors "github.com/mtessler/coxswain/internal/errors"
)

const worktreeColumns = `agent_id, path, branch, base_sha, status, created_at, updated_at`

// CreateWorktree inserts the agent's worktree row. One row per agent: a
// previous removed row is replaced so the agent can be re-provisioned.
func (q *Queries) CreateWorktree(ctx context.Context, wt *domain.Worktree) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO worktrees (`+worktreeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			path = excluded.path, branch = excluded.branch,
			base_sha = excluded.base_sha, status = excluded.status,
			updated_at = excluded.updated_at`,
		wt.AgentID, wt.Path, wt.Branch, wt.BaseSHA, string(wt.Status),
		fmtTime(wt.CreatedAt), fmtTime(wt.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create worktree for agent %s: %w", wt.AgentID, err)
	}
	return nil
}

// GetWorktree returns the agent's worktree row or ErrWorktreeNotFound.
func (q *Queries) GetWorktree(ctx context.Context, agentID string) (*domain.Worktree, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+worktreeColumns+` FROM worktrees WHERE agent_id = ?`, agentID)

	wt, err := scanWorktree(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: agent %s", coxerrors.ErrWorktreeNotFound, agentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree for agent %s: %w", agentID, err)
	}
	return wt, nil
}

// GetActiveWorktree returns the agent's worktree only if it is active.
func (q *Queries) GetActiveWorktree(ctx context.Context, agentID string) (*domain.Worktree, error) {
	wt, err := q.GetWorktree(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if wt.Status != constants.WorktreeStatusActive {
		return nil, fmt.Errorf("%w: agent %s worktree is %s",
			coxerrors.ErrWorktreeNotFound, agentID, wt.Status)
	}
	return wt, nil
}

// MarkWorktreeRemoved flips the worktree row to removed, keeping the commit
// audit trail until the owning workflow is deleted.
func (q *Queries) MarkWorktreeRemoved(ctx context.Context, agentID string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE worktrees SET status = ?, updated_at = ? WHERE agent_id = ?`,
		string(constants.WorktreeStatusRemoved), fmtTime(nowUTC()), agentID)
	if err != nil {
		return fmt.Errorf("failed to mark worktree removed for agent %s: %w", agentID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: agent %s", coxerrors.ErrWorktreeNotFound, agentID)
	}
	return nil
}

// ListActiveWorktrees returns every worktree row still marked active.
func (q *Queries) ListActiveWorktrees(ctx context.Context) ([]*domain.Worktree, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+worktreeColumns+` FROM worktrees WHERE status = ? ORDER BY agent_id`,
		string(constants.WorktreeStatusActive))
	if err != nil {
		return nil, fmt.Errorf("failed to list active worktrees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var worktrees []*domain.Worktree
	for rows.Next() {
		wt, err := scanWorktree(rows)
		if err != nil {
			return nil, err
		}
		worktrees = append(worktrees, wt)
	}
	return worktrees, rows.Err()
}

func scanWorktree(s scanner) (*domain.Worktree, error) {
	var (
		wt                   domain.Worktree
		status               string
		createdAt, updatedAt string
	)
	err := s.Scan(&wt.AgentID, &wt.Path, &wt.Branch, &wt.BaseSHA, &status,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	wt.Status = constants.WorktreeStatus(status)
	wt.CreatedAt = parseTime(createdAt)
	wt.UpdatedAt = parseTime(updatedAt)
	return &wt, nil
}

// CreateWorktreeCommit appends an audit record of a commit produced inside
// an agent worktree.
func (q *Queries) CreateWorktreeCommit(ctx context.Context, wc *domain.WorktreeCommit) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO worktree_commits (agent_id, commit_sha, message, created_at)
		VALUES (?, ?, ?, ?)`,
		wc.AgentID, wc.CommitSHA, wc.Message, fmtTime(wc.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record worktree commit for agent %s: %w", wc.AgentID, err)
	}
	return nil
}

// ListWorktreeCommits returns the agent's commit audit trail, oldest first.
func (q *Queries) ListWorktreeCommits(ctx context.Context, agentID string) ([]*domain.WorktreeCommit, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, agent_id, commit_sha, message, created_at
		FROM worktree_commits WHERE agent_id = ? ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list worktree commits for agent %s: %w", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	var commits []*domain.WorktreeCommit
	for rows.Next() {
		var (
			wc        domain.WorktreeCommit
			createdAt string
		)
		if err := rows.Scan(&wc.ID, &wc.AgentID, &wc.CommitSHA, &wc.Message, &createdAt); err != nil {
			return nil, err
		}
		wc.CreatedAt = parseTime(createdAt)
		commits = append(commits, &wc)
	}
	return commits, rows.Err()
}

// CreateConflictResolution appends a file-level conflict decision. Written
// inside the merge transaction before the merge commit finalizes.
func (q *Queries) CreateConflictResolution(ctx context.Context, cr *domain.MergeConflictResolution) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO merge_conflict_resolutions
			(agent_id, target_branch, file_path, winner, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cr.AgentID, cr.TargetBranch, cr.FilePath, cr.Winner, cr.Reason,
		fmtTime(cr.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to record conflict resolution for agent %s: %w", cr.AgentID, err)
	}
	return nil
}

// ListConflictResolutions returns the agent's conflict decision history,
// oldest first.
func (q *Queries) ListConflictResolutions(ctx context.Context, agentID string) ([]*domain.MergeConflictResolution, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, agent_id, target_branch, file_path, winner, reason, created_at
		FROM merge_conflict_resolutions WHERE agent_id = ? ORDER BY id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflict resolutions for agent %s: %w", agentID, err)
	}
	defer func() { _ = rows.Close() }()

	var resolutions []*domain.MergeConflictResolution
	for rows.Next() {
		var (
			cr        domain.MergeConflictResolution
			createdAt string
		)
		err := rows.Scan(&cr.ID, &cr.AgentID, &cr.TargetBranch, &cr.FilePath,
			&cr.Winner, &cr.Reason, &createdAt)
		if err != nil {
			return nil, err
		}
		cr.CreatedAt = parseTime(createdAt)
		resolutions = append(resolutions, &cr)
	}
	return resolutions, rows.Err()
}
