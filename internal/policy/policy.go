// Package policy holds the authorization and lifecycle rules for tickets and
// responses as pure decision functions. Each function takes the caller
// identity and an entity snapshot and returns an explicit allow/deny with a
// reason; nothing here touches persistence, so the rules unit-test in
// isolation and the services stay thin.
package policy

import (
	"github.com/spec-kit/customer-care/internal/domain"
)

// Caller identifies the authenticated principal invoking an operation.
type Caller struct {
	ID   string
	Role domain.Role
}

// IsAgent reports whether the caller holds the agent capability.
func (c Caller) IsAgent() bool {
	return c.Role == domain.RoleAgent
}

// Decision is the outcome of a single authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// CanCreateTicket permits ticket creation to clients only.
func CanCreateTicket(c Caller) Decision {
	if c.IsAgent() {
		return deny("only clients can create tickets")
	}
	return allow()
}

// CanViewTicket permits reads to the requester, the assigned agent, and any
// identity with the agent capability (agents may browse all tickets).
func CanViewTicket(c Caller, t *domain.Ticket) Decision {
	if c.IsAgent() {
		return allow()
	}
	if t.RequesterID == c.ID {
		return allow()
	}
	return deny("ticket belongs to another requester")
}

// CanUpdateTicket permits title/description edits to the requester only.
// Agents, including the assigned agent, never edit ticket content.
func CanUpdateTicket(c Caller, t *domain.Ticket) Decision {
	if c.IsAgent() {
		return deny("agents cannot edit ticket content")
	}
	if t.RequesterID != c.ID {
		return deny("ticket belongs to another requester")
	}
	return allow()
}

// CanCancelTicket permits the requester to cancel a ticket that is open or
// in progress. Resolved tickets can no longer be cancelled.
func CanCancelTicket(c Caller, t *domain.Ticket) Decision {
	if c.IsAgent() || t.RequesterID != c.ID {
		return deny("only the requester may cancel a ticket")
	}
	if t.Status != domain.TicketStatusOpen && t.Status != domain.TicketStatusInProgress {
		return deny("ticket can no longer be cancelled")
	}
	return allow()
}

// CanClaimTicket permits any agent to claim an unassigned open ticket.
// Whether the ticket is actually still claimable is a state question, not a
// permission one; the store's conditional write settles races.
func CanClaimTicket(c Caller) Decision {
	if !c.IsAgent() {
		return deny("only agents can claim tickets")
	}
	return allow()
}

// CanChangeStatus decides whether the caller may move the ticket to the
// given status. Cancellation delegates to the requester rule; every other
// transition belongs to the assigned agent and must follow the lifecycle:
// in_progress moves to resolved or closed, resolved moves to closed.
func CanChangeStatus(c Caller, t *domain.Ticket, next domain.TicketStatus) Decision {
	if next == domain.TicketStatusCancelled {
		return CanCancelTicket(c, t)
	}
	if !c.IsAgent() || !t.AssignedTo(c.ID) {
		return deny("only the assigned agent may change ticket status")
	}
	switch t.Status {
	case domain.TicketStatusInProgress:
		if next == domain.TicketStatusResolved || next == domain.TicketStatusClosed {
			return allow()
		}
	case domain.TicketStatusResolved:
		if next == domain.TicketStatusClosed {
			return allow()
		}
	}
	return deny("status transition not permitted")
}

// CanRespond permits responses from the requester or the currently assigned
// agent while the ticket is in a non-terminal state. An agent who has not
// claimed the ticket may not respond to it.
func CanRespond(c Caller, t *domain.Ticket) Decision {
	if t.Status.Terminal() {
		return deny("ticket no longer accepts responses")
	}
	if c.IsAgent() {
		if !t.AssignedTo(c.ID) {
			return deny("ticket is assigned to another agent")
		}
		return allow()
	}
	if t.RequesterID != c.ID {
		return deny("ticket belongs to another requester")
	}
	return allow()
}

// CanViewResponse mirrors ticket visibility for a single response.
func CanViewResponse(c Caller, t *domain.Ticket) Decision {
	return CanViewTicket(c, t)
}

// CanEditResponse permits content edits to the original author only.
func CanEditResponse(c Caller, r *domain.Response) Decision {
	if r.AuthorID != c.ID {
		return deny("response belongs to another author")
	}
	return allow()
}

// CanDeleteResponse permits deletion to the original author only, symmetric
// with CanEditResponse. Agent capability grants nothing here.
func CanDeleteResponse(c Caller, r *domain.Response) Decision {
	if r.AuthorID != c.ID {
		return deny("response belongs to another author")
	}
	return allow()
}
