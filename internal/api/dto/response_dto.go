package dto

import "time"

// CreateResponseRequest payload.
type CreateResponseRequest struct {
	TicketID string `json:"ticket_id"`
	Content  string `json:"content"`
}

// UpdateResponseRequest payload.
type UpdateResponseRequest struct {
	Content string `json:"content"`
}

// ResponseResponse is the wire shape of a ticket response.
type ResponseResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
