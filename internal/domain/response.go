package domain

import "time"

// Response is a threaded message attached to a ticket, authored by either
// the requester or the assigned agent. TicketID and AuthorID are immutable;
// content is the only mutable field.
type Response struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
