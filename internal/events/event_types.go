package events

import (
	"time"

	"github.com/spec-kit/customer-care/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketCancelled     EventType = "ticket_cancelled"
	EventResponseAdded       EventType = "response_added"
	EventResponseUpdated     EventType = "response_updated"
	EventResponseDeleted     EventType = "response_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title string `json:"title"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID string `json:"agent_id"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ResponsePayload covers response add/update/delete events.
type ResponsePayload struct {
	ResponseID string `json:"response_id"`
	AuthorID   string `json:"author_id"`
}
