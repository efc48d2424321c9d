package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/customer-care/internal/domain"
	"github.com/spec-kit/customer-care/internal/repository"
	apperrors "github.com/spec-kit/customer-care/pkg/util"
)

// In-memory repository fakes. Claim takes the same conditional-write shape
// as the Postgres implementation so the race tests mean something.

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	cp := *ticket
	r.tickets[ticket.ID] = &cp
	return nil
}

func (r *fakeTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *ticket
	return &cp, nil
}

func (r *fakeTicketRepo) Claim(_ context.Context, ticketID, agentID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[ticketID]
	if !ok || ticket.AgentID != nil || ticket.Status != domain.TicketStatusOpen {
		return nil, pgx.ErrNoRows
	}
	id := agentID
	ticket.AgentID = &id
	ticket.Status = domain.TicketStatusInProgress
	ticket.UpdatedAt = time.Now()
	cp := *ticket
	return &cp, nil
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	matched := r.matching(filter)
	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeTicketRepo) CountWithFilter(_ context.Context, filter repository.TicketFilter) (int64, error) {
	return int64(len(r.matching(filter))), nil
}

func (r *fakeTicketRepo) matching(filter repository.TicketFilter) []domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.RequesterID != nil && ticket.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != nil && ticket.Status != *filter.Status {
			continue
		}
		if filter.Search != nil {
			search := *filter.Search
			if !strings.Contains(ticket.Title, search) && !strings.Contains(ticket.Description, search) {
				continue
			}
		}
		matched = append(matched, *ticket)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return matched
}

type fakeResponseRepo struct {
	mu        sync.Mutex
	seq       int
	responses map[string]*domain.Response
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{responses: make(map[string]*domain.Response)}
}

func (r *fakeResponseRepo) Create(_ context.Context, response *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	response.ID = fmt.Sprintf("response-%d", r.seq)
	response.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	response.UpdatedAt = response.CreatedAt
	cp := *response
	r.responses[response.ID] = &cp
	return nil
}

func (r *fakeResponseRepo) Update(_ context.Context, response *domain.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.responses[response.ID]; !ok {
		return pgx.ErrNoRows
	}
	response.UpdatedAt = time.Now()
	cp := *response
	r.responses[response.ID] = &cp
	return nil
}

func (r *fakeResponseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.responses[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.responses, id)
	return nil
}

func (r *fakeResponseRepo) GetByID(_ context.Context, id string) (*domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	response, ok := r.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *response
	return &cp, nil
}

func (r *fakeResponseRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Response, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Response
	for _, response := range r.responses {
		if response.TicketID == ticketID {
			result = append(result, *response)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func errCode(err error) string {
	if err == nil {
		return ""
	}
	return apperrors.ToDomainError(err).Code
}
