package service

import (
	"context"
	"sync"
	"testing"

	"github.com/spec-kit/customer-care/internal/domain"
	"github.com/spec-kit/customer-care/internal/events"
	"github.com/spec-kit/customer-care/internal/policy"
)

var (
	clientA = policy.Caller{ID: "client-a", Role: domain.RoleClient}
	clientB = policy.Caller{ID: "client-b", Role: domain.RoleClient}
	agentX  = policy.Caller{ID: "agent-x", Role: domain.RoleAgent}
	agentY  = policy.Caller{ID: "agent-y", Role: domain.RoleAgent}
)

func newTicketService() (*TicketService, *fakeTicketRepo) {
	repo := newFakeTicketRepo()
	return NewTicketService(repo, events.NewInMemoryDispatcher()), repo
}

func mustCreateTicket(t *testing.T, svc *TicketService, caller policy.Caller, title string) *domain.Ticket {
	t.Helper()
	ticket, err := svc.CreateTicket(context.Background(), caller, TicketCreateInput{Title: title, Description: "desc for " + title})
	if err != nil {
		t.Fatalf("CreateTicket(%q) failed: %v", title, err)
	}
	return ticket
}

func TestCreateAndGetTicket(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()

	created := mustCreateTicket(t, svc, clientA, "  printer on fire  ")
	if created.Title != "printer on fire" {
		t.Fatalf("title not trimmed: %q", created.Title)
	}
	if created.Status != domain.TicketStatusOpen {
		t.Fatalf("new ticket status = %q, want open", created.Status)
	}
	if created.AgentID != nil {
		t.Fatalf("new ticket should be unassigned, got agent %q", *created.AgentID)
	}

	got, err := svc.GetTicket(ctx, clientA, created.ID)
	if err != nil {
		t.Fatalf("GetTicket failed: %v", err)
	}
	if got.ID != created.ID || got.RequesterID != clientA.ID {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestAgentCannotCreateTicket(t *testing.T) {
	svc, _ := newTicketService()

	_, err := svc.CreateTicket(context.Background(), agentX, TicketCreateInput{Title: "t", Description: "d"})
	if errCode(err) != "FORBIDDEN" {
		t.Fatalf("agent create: got %v, want FORBIDDEN", err)
	}
}

func TestGetTicketVisibility(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "vpn down")

	if _, err := svc.GetTicket(ctx, clientB, ticket.ID); errCode(err) != "FORBIDDEN" {
		t.Fatalf("foreign client read: got %v, want FORBIDDEN", err)
	}
	if _, err := svc.GetTicket(ctx, agentX, ticket.ID); err != nil {
		t.Fatalf("agent read failed: %v", err)
	}
	if _, err := svc.GetTicket(ctx, clientA, "ticket-missing"); errCode(err) != "NOT_FOUND" {
		t.Fatalf("missing id: got %v, want NOT_FOUND", err)
	}
}

func TestUpdateTicketOwnerOnly(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "old title")

	title := "new title"
	updated, err := svc.UpdateTicket(ctx, clientA, ticket.ID, TicketUpdateInput{Title: &title})
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if updated.Title != "new title" {
		t.Fatalf("title = %q, want %q", updated.Title, "new title")
	}
	if updated.Description != ticket.Description {
		t.Fatalf("description changed unexpectedly: %q", updated.Description)
	}

	if _, err := svc.UpdateTicket(ctx, clientB, ticket.ID, TicketUpdateInput{Title: &title}); errCode(err) != "FORBIDDEN" {
		t.Fatalf("foreign client update: got %v, want FORBIDDEN", err)
	}
	if _, err := svc.UpdateTicket(ctx, agentX, ticket.ID, TicketUpdateInput{Title: &title}); errCode(err) != "FORBIDDEN" {
		t.Fatalf("agent update: got %v, want FORBIDDEN", err)
	}
}

func TestAssignTicket(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "claimable")

	if _, err := svc.AssignTicket(ctx, clientA, ticket.ID); errCode(err) != "FORBIDDEN" {
		t.Fatalf("client claim: got %v, want FORBIDDEN", err)
	}

	claimed, err := svc.AssignTicket(ctx, agentX, ticket.ID)
	if err != nil {
		t.Fatalf("agent claim failed: %v", err)
	}
	if claimed.AgentID == nil || *claimed.AgentID != agentX.ID {
		t.Fatalf("agent_id not set: %+v", claimed)
	}
	if claimed.Status != domain.TicketStatusInProgress {
		t.Fatalf("claimed status = %q, want in_progress", claimed.Status)
	}

	if _, err := svc.AssignTicket(ctx, agentY, ticket.ID); errCode(err) != "CONFLICT" {
		t.Fatalf("second claim: got %v, want CONFLICT", err)
	}
}

func TestAssignTicketConcurrent(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "contended")

	const agents = 16
	results := make(chan error, agents)
	var wg sync.WaitGroup
	for i := 0; i < agents; i++ {
		caller := policy.Caller{ID: "agent-" + string(rune('a'+i)), Role: domain.RoleAgent}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AssignTicket(ctx, caller, ticket.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errCode(err) == "CONFLICT":
			conflicts++
		default:
			t.Fatalf("unexpected claim error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("claim winners = %d, want exactly 1", wins)
	}
	if conflicts != agents-1 {
		t.Fatalf("claim conflicts = %d, want %d", conflicts, agents-1)
	}
}

func TestChangeStatusLifecycle(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "lifecycle")

	if _, err := svc.AssignTicket(ctx, agentX, ticket.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	resolved, err := svc.ChangeStatus(ctx, agentX, ticket.ID, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved {
		t.Fatalf("status = %q, want resolved", resolved.Status)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("resolved_at not stamped")
	}

	// The requester cannot drag a resolved ticket back to open.
	if _, err := svc.ChangeStatus(ctx, clientA, ticket.ID, domain.TicketStatusOpen); errCode(err) != "FORBIDDEN" {
		t.Fatalf("requester reopen: got %v, want FORBIDDEN", err)
	}

	closed, err := svc.ChangeStatus(ctx, agentX, ticket.ID, domain.TicketStatusClosed)
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed {
		t.Fatalf("status = %q, want closed", closed.Status)
	}

	if _, err := svc.ChangeStatus(ctx, agentX, ticket.ID, domain.TicketStatusOpen); errCode(err) != "FORBIDDEN" {
		t.Fatalf("reopen closed: got %v, want FORBIDDEN", err)
	}
}

func TestChangeStatusValidation(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "bad status")

	if _, err := svc.ChangeStatus(ctx, agentX, ticket.ID, domain.TicketStatus("archived")); errCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("bogus status: got %v, want VALIDATION_FAILED", err)
	}
}

func TestChangeStatusNonAssignedAgent(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()
	ticket := mustCreateTicket(t, svc, clientA, "someone else's case")

	if _, err := svc.AssignTicket(ctx, agentX, ticket.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, agentY, ticket.ID, domain.TicketStatusResolved); errCode(err) != "FORBIDDEN" {
		t.Fatalf("non-assigned agent resolve: got %v, want FORBIDDEN", err)
	}
}

func TestCancelTicket(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()

	open := mustCreateTicket(t, svc, clientA, "cancel open")
	cancelled, err := svc.CancelTicket(ctx, clientA, open.ID)
	if err != nil {
		t.Fatalf("cancel open failed: %v", err)
	}
	if cancelled.Status != domain.TicketStatusCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatal("cancelled_at not stamped")
	}

	inProgress := mustCreateTicket(t, svc, clientA, "cancel in progress")
	if _, err := svc.AssignTicket(ctx, agentX, inProgress.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := svc.CancelTicket(ctx, clientA, inProgress.ID); err != nil {
		t.Fatalf("cancel in_progress failed: %v", err)
	}

	resolvedCase := mustCreateTicket(t, svc, clientA, "cancel resolved")
	if _, err := svc.AssignTicket(ctx, agentX, resolvedCase.ID); err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if _, err := svc.ChangeStatus(ctx, agentX, resolvedCase.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if _, err := svc.CancelTicket(ctx, clientA, resolvedCase.ID); errCode(err) != "FORBIDDEN" {
		t.Fatalf("cancel resolved: got %v, want FORBIDDEN", err)
	}

	foreign := mustCreateTicket(t, svc, clientB, "not yours")
	if _, err := svc.CancelTicket(ctx, clientA, foreign.ID); errCode(err) != "FORBIDDEN" {
		t.Fatalf("cancel foreign: got %v, want FORBIDDEN", err)
	}
	if _, err := svc.CancelTicket(ctx, agentX, foreign.ID); errCode(err) != "FORBIDDEN" {
		t.Fatalf("agent cancel: got %v, want FORBIDDEN", err)
	}
}

func TestListTicketsScoping(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()

	mustCreateTicket(t, svc, clientA, "mine one")
	mustCreateTicket(t, svc, clientA, "mine two")
	mustCreateTicket(t, svc, clientB, "theirs")

	pageA, err := svc.ListTickets(ctx, clientA, TicketListFilter{})
	if err != nil {
		t.Fatalf("client list failed: %v", err)
	}
	if pageA.Total != 2 || len(pageA.Items) != 2 {
		t.Fatalf("client sees %d/%d tickets, want 2/2", len(pageA.Items), pageA.Total)
	}
	for _, ticket := range pageA.Items {
		if ticket.RequesterID != clientA.ID {
			t.Fatalf("client list leaked ticket of %q", ticket.RequesterID)
		}
	}

	pageAgent, err := svc.ListTickets(ctx, agentX, TicketListFilter{})
	if err != nil {
		t.Fatalf("agent list failed: %v", err)
	}
	if pageAgent.Total != 3 {
		t.Fatalf("agent total = %d, want 3", pageAgent.Total)
	}
}

func TestListTicketsFilterAndPagination(t *testing.T) {
	svc, _ := newTicketService()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		mustCreateTicket(t, svc, clientA, "bulk")
	}
	cancelMe := mustCreateTicket(t, svc, clientA, "needle in haystack")
	if _, err := svc.CancelTicket(ctx, clientA, cancelMe.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// Default page size caps the first page at 10.
	page, err := svc.ListTickets(ctx, clientA, TicketListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 10 || page.Total != 13 || page.Page != 1 || page.PageSize != 10 {
		t.Fatalf("default page: items=%d total=%d page=%d size=%d", len(page.Items), page.Total, page.Page, page.PageSize)
	}

	second, err := svc.ListTickets(ctx, clientA, TicketListFilter{Page: 2})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(second.Items) != 3 {
		t.Fatalf("second page items = %d, want 3", len(second.Items))
	}

	status := domain.TicketStatusCancelled
	byStatus, err := svc.ListTickets(ctx, clientA, TicketListFilter{Status: &status})
	if err != nil {
		t.Fatalf("status filter failed: %v", err)
	}
	if byStatus.Total != 1 {
		t.Fatalf("cancelled total = %d, want 1", byStatus.Total)
	}

	search := "needle"
	bySearch, err := svc.ListTickets(ctx, clientA, TicketListFilter{Search: &search})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if bySearch.Total != 1 || bySearch.Items[0].Title != "needle in haystack" {
		t.Fatalf("search result: %+v", bySearch.Items)
	}

	bogus := domain.TicketStatus("weird")
	if _, err := svc.ListTickets(ctx, clientA, TicketListFilter{Status: &bogus}); errCode(err) != "VALIDATION_FAILED" {
		t.Fatalf("bogus status filter: got %v, want VALIDATION_FAILED", err)
	}
}
