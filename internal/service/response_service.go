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

// ResponseService coordinates the threaded messages attached to tickets.
type ResponseService struct {
	responses  repository.ResponseRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewResponseService constructs the service.
func NewResponseService(responses repository.ResponseRepository, tickets repository.TicketRepository, dispatcher events.Dispatcher) *ResponseService {
	return &ResponseService{responses: responses, tickets: tickets, dispatcher: dispatcher}
}

// ListTicketResponses returns a ticket's thread newest-first, applying the
// ticket's read visibility rule.
func (s *ResponseService) ListTicketResponses(ctx context.Context, caller policy.Caller, ticketID string) ([]domain.Response, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewTicket(caller, ticket); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}
	responses, err := s.responses.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return responses, nil
}

// GetResponse fetches a single response under the parent ticket's
// visibility rule.
func (s *ResponseService) GetResponse(ctx context.Context, caller policy.Caller, responseID string) (*domain.Response, error) {
	response, err := s.loadResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, response.TicketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanViewResponse(caller, ticket); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}
	return response, nil
}

// CreateResponse appends a response authored by the caller. When the
// assigned agent responds to a still-open ticket, the ticket advances to
// in_progress as an explicit post-condition of the same operation, covering
// tickets claimed outside the assign endpoint.
func (s *ResponseService) CreateResponse(ctx context.Context, caller policy.Caller, ticketID, content string) (*domain.Response, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanRespond(caller, ticket); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}

	response := &domain.Response{
		TicketID: ticket.ID,
		AuthorID: caller.ID,
		Content:  strings.TrimSpace(content),
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}

	if caller.IsAgent() && ticket.Status == domain.TicketStatusOpen {
		oldStatus := ticket.Status
		ticket.Status = domain.TicketStatusInProgress
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.publishEvent(ctx, caller, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
			},
		})
	}

	s.publishEvent(ctx, caller, events.Event{
		Type:     events.EventResponseAdded,
		TicketID: ticket.ID,
		Payload:  events.ResponsePayload{ResponseID: response.ID, AuthorID: response.AuthorID},
	})
	return response, nil
}

// UpdateResponse edits content; author-only.
func (s *ResponseService) UpdateResponse(ctx context.Context, caller policy.Caller, responseID, content string) (*domain.Response, error) {
	response, err := s.loadResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if d := policy.CanEditResponse(caller, response); !d.Allowed {
		return nil, apperrors.NewForbidden(d.Reason)
	}

	response.Content = strings.TrimSpace(content)
	if err := s.responses.Update(ctx, response); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, caller, events.Event{
		Type:     events.EventResponseUpdated,
		TicketID: response.TicketID,
		Payload:  events.ResponsePayload{ResponseID: response.ID, AuthorID: response.AuthorID},
	})
	return response, nil
}

// DeleteResponse removes a response; strictly author-only, symmetric with
// UpdateResponse.
func (s *ResponseService) DeleteResponse(ctx context.Context, caller policy.Caller, responseID string) error {
	response, err := s.loadResponse(ctx, responseID)
	if err != nil {
		return err
	}
	if d := policy.CanDeleteResponse(caller, response); !d.Allowed {
		return apperrors.NewForbidden(d.Reason)
	}

	if err := s.responses.Delete(ctx, responseID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, caller, events.Event{
		Type:     events.EventResponseDeleted,
		TicketID: response.TicketID,
		Payload:  events.ResponsePayload{ResponseID: response.ID, AuthorID: response.AuthorID},
	})
	return nil
}

func (s *ResponseService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket")
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *ResponseService) loadResponse(ctx context.Context, responseID string) (*domain.Response, error) {
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("response")
		}
		return nil, apperrors.MapError(err)
	}
	return response, nil
}

func (s *ResponseService) publishEvent(ctx context.Context, caller policy.Caller, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Actor = events.Actor{UserID: caller.ID, Role: caller.Role}
	event.Timestamp = time.Now()
	_ = s.dispatcher.Publish(ctx, event)
}
