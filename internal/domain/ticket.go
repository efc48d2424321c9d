package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
	TicketStatusCancelled  TicketStatus = "cancelled"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved,
		TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status or response mutation is
// permitted. Resolved is not terminal: the agent may still close.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// Ticket is the aggregate for support requests. RequesterID is set at
// creation and never changes. AgentID is nil until an agent claims the
// ticket and does not change once set.
type Ticket struct {
	ID          string
	RequesterID string
	AgentID     *string
	Title       string
	Description string
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
	CancelledAt *time.Time
}

// AssignedTo reports whether the given user is the assigned agent.
func (t *Ticket) AssignedTo(userID string) bool {
	return t.AgentID != nil && *t.AgentID == userID
}
