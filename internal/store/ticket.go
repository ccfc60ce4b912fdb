package store

import (
	"context"
	"fmt"

	"github.com/mtessler/coxswain/internal/domain"
)

// CreateTicket inserts a board item owned by a workflow.
func (q *Queries) CreateTicket(ctx context.Context, t *domain.Ticket) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tickets (id, workflow_id, title, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.WorkflowID, t.Title, t.Status, fmtTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create ticket %s: %w", t.ID, err)
	}
	return nil
}

// CreateTicketComment appends a discussion entry to a ticket.
func (q *Queries) CreateTicketComment(ctx context.Context, c *domain.TicketComment) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ticket_comments (ticket_id, author, body, created_at)
		VALUES (?, ?, ?, ?)`,
		c.TicketID, c.Author, c.Body, fmtTime(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create ticket comment: %w", err)
	}
	return nil
}

// CreateTicketHistory appends an audit entry of a ticket field change.
func (q *Queries) CreateTicketHistory(ctx context.Context, h *domain.TicketHistory) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ticket_history (ticket_id, field, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		h.TicketID, h.Field, nullable(h.OldValue), nullable(h.NewValue),
		fmtTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create ticket history: %w", err)
	}
	return nil
}

// CreateTicketCommit links a ticket to a commit that addressed it.
func (q *Queries) CreateTicketCommit(ctx context.Context, tc *domain.TicketCommit) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO ticket_commits (ticket_id, commit_sha, created_at)
		VALUES (?, ?, ?)`,
		tc.TicketID, tc.CommitSHA, fmtTime(tc.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create ticket commit: %w", err)
	}
	return nil
}
