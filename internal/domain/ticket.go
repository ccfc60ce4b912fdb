package domain

import "time"

// Ticket is a board item owned by a workflow. Tickets and their children
// participate in cascade deletion only; their CRUD lives outside this core.
type Ticket struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketComment is a discussion entry on a ticket.
type TicketComment struct {
	ID        int64     `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketHistory is an audit entry of a ticket field change.
type TicketHistory struct {
	ID        int64     `json:"id"`
	TicketID  string    `json:"ticket_id"`
	Field     string    `json:"field"`
	OldValue  string    `json:"old_value"`
	NewValue  string    `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketCommit links a ticket to a commit that addressed it.
type TicketCommit struct {
	ID        int64     `json:"id"`
	TicketID  string    `json:"ticket_id"`
	CommitSHA string    `json:"commit_sha"`
	CreatedAt time.Time `json:"created_at"`
}
