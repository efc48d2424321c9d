package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/customer-care/internal/domain"
	"github.com/spec-kit/customer-care/internal/events"
	"github.com/spec-kit/customer-care/internal/policy"
	"github.com/spec-kit/customer-care/internal/repository"
	apperrors "github.com/spec-kit/customer-care/pkg/util"
)

// TicketService coordinates ticket workflows. Authorization and lifecycle
// legality are decided by the policy package against a ticket snapshot; this
// service fetches, asks, applies, and publishes.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(tickets repository.TicketRepository, dispatcher events.Dispatcher) *TicketService {
	return &TicketService{tickets: tickets, dispatcher: dispatcher}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// TicketUpdateInput carries the requester-editable fields. Nil means leave
// unchanged.
type TicketUpdateInput struct {
	Title       *string
	Description *string
}

// TicketListFilter describes listing parameters.
type TicketListFilter struct {
	Status   *domain.TicketStatus
	Search   *string
	Page     int
	PageSize int
}

// TicketPage is one page of a filtered listing.
type TicketPage struct {
	Items    []domain.Ticket
	Page     int
	PageSize int
	Total    int64
}

const defaultPageSize = 10

// ListTickets returns the filtered, paginated set visible to the caller.
// Agents see the global set; clients are scoped to their own tickets before
// any filter applies.
func (s *TicketService) ListTickets(ctx context.Context, caller policy.Caller, filter TicketListFilter) (*TicketPage, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("unrecognized status", nil)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	repoFilter := repository.TicketFilter{
		Status: filter.Status,
		Search: filter.Search,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	}
	if !caller.IsAgent() {
		requesterID := caller.ID
		repoFilter.RequesterID = &requesterID
	}

	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	total, err := s.tickets.CountWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketPage{Items: tickets, Page: page, PageSize: pageSize, Total: total}, nil
}

// CreateTicket creates a ticket for a client; agents are rejected with a
// permission failure. New tickets start open and unassigned.
func (s *TicketService) CreateTicket(ctx context.Context, caller policy.Caller, input TicketCreateInput) (*domain.Ticket, error) {
	if d := policy.CanCreateTicket(caller); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}

	ticket := &domain.Ticket{
		RequesterID: caller.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, caller, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload:  events.TicketCreatedPayload{Title: ticket.Title},
	})
	return ticket, nil
}

// GetTicket fetches a ticket enforcing read visibility.
func (s *TicketService) GetTicket(ctx context.Context, caller policy.Caller, ticketID string) (*domain.Ticket, error) {
	return s.loadVisible(ctx, caller, ticketID)
}

// UpdateTicket edits title/description; owner-only, status untouched.
func (s *TicketService) UpdateTicket(ctx context.Context, caller policy.Caller, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.getByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanUpdateTicket(caller, ticket); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}

	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// CancelTicket moves a ticket to cancelled on behalf of its requester.
func (s *TicketService) CancelTicket(ctx context.Context, caller policy.Caller, ticketID string) (*domain.Ticket, error) {
	return s.ChangeStatus(ctx, caller, ticketID, domain.TicketStatusCancelled)
}

// AssignTicket lets the calling agent claim an unassigned open ticket,
// setting agent_id and advancing to in_progress atomically. Exactly one of
// N concurrent claims succeeds; the rest get a conflict.
func (s *TicketService) AssignTicket(ctx context.Context, caller policy.Caller, ticketID string) (*domain.Ticket, error) {
	if d := policy.CanClaimTicket(caller); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}
	ticket, err := s.getByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AgentID != nil {
		return nil, apperrors.NewConflict("ticket already claimed")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return nil, apperrors.NewConflict("ticket is not open")
	}

	claimed, err := s.tickets.Claim(ctx, ticketID, caller.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The guard failed between our read and the write: lost the race.
			return nil, apperrors.NewConflict("ticket already claimed")
		}
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, caller, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: claimed.ID,
		Payload:  events.TicketAssignedPayload{AgentID: caller.ID},
	})
	return claimed, nil
}

// ChangeStatus moves a ticket along the lifecycle on behalf of the caller.
// Unrecognized statuses are validation failures; out-of-table transitions and
// wrong actors are permission failures.
func (s *TicketService) ChangeStatus(ctx context.Context, caller policy.Caller, ticketID string, next domain.TicketStatus) (*domain.Ticket, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError("unrecognized status", map[string]any{"status": next})
	}
	ticket, err := s.getByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanChangeStatus(caller, ticket, next); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}

	oldStatus := ticket.Status
	ticket.Status = next
	now := time.Now()
	switch next {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusCancelled:
		ticket.CancelledAt = &now
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	eventType := events.EventTicketStatusChanged
	if next == domain.TicketStatusCancelled {
		eventType = events.EventTicketCancelled
	}
	s.publishEvent(ctx, caller, events.Event{
		Type:     eventType,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
		},
	})
	return ticket, nil
}

func (s *TicketService) getByID(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) loadVisible(ctx context.Context, caller policy.Caller, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewTicket(caller, ticket); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}
	return ticket, nil
}

func (s *TicketService) publishEvent(ctx context.Context, caller policy.Caller, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Actor = events.Actor{UserID: caller.ID, Role: caller.Role}
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
