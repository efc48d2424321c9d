package dto

import (
	"time"

	"github.com/spec-kit/customer-care/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTicketRequest payload; absent fields are left unchanged.
type UpdateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// TicketResponse is the wire shape of a ticket.
type TicketResponse struct {
	ID          string              `json:"id"`
	RequesterID string              `json:"requester_id"`
	AgentID     *string             `json:"agent_id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty"`
	CancelledAt *time.Time          `json:"cancelled_at,omitempty"`
}

// TicketPageResponse is a paginated ticket listing.
type TicketPageResponse struct {
	Items    []TicketResponse `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Total    int64            `json:"total"`
}
