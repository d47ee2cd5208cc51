package service

import (
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to domain.TicketState
		want     bool
	}{
		{domain.TicketStateNew, domain.TicketStateAssigned, true},
		{domain.TicketStateNew, domain.TicketStateInProgress, true},
		{domain.TicketStateNew, domain.TicketStateWaiting, true},
		{domain.TicketStateNew, domain.TicketStateResolved, false},
		{domain.TicketStateNew, domain.TicketStateClosed, false},
		{domain.TicketStateAssigned, domain.TicketStateNew, true},
		{domain.TicketStateInProgress, domain.TicketStateResolved, true},
		{domain.TicketStateWaiting, domain.TicketStateClosed, true},
		{domain.TicketStateResolved, domain.TicketStateInProgress, true},
		{domain.TicketStateResolved, domain.TicketStateClosed, true},
		{domain.TicketStateClosed, domain.TicketStateClosed, true},
		{domain.TicketStateClosed, domain.TicketStateNew, false},
		{domain.TicketStateClosed, domain.TicketStateResolved, false},
		{domain.TicketStateClosed, domain.TicketStateInProgress, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestApplyStateKeepsTimestampsConsistent(t *testing.T) {
	start := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{State: domain.TicketStateInProgress}

	applyState(ticket, domain.TicketStateResolved, start)
	if ticket.ResolvedAt == nil || !ticket.ResolvedAt.Equal(start) || ticket.ClosedAt != nil {
		t.Fatalf("resolved: resolved_at=%v closed_at=%v", ticket.ResolvedAt, ticket.ClosedAt)
	}

	later := start.Add(time.Hour)
	applyState(ticket, domain.TicketStateClosed, later)
	if ticket.ResolvedAt == nil || !ticket.ResolvedAt.Equal(start) {
		t.Fatalf("closing must keep resolved_at, got %v", ticket.ResolvedAt)
	}
	if ticket.ClosedAt == nil || !ticket.ClosedAt.Equal(later) {
		t.Fatalf("closed_at = %v, want %v", ticket.ClosedAt, later)
	}
	if !ticket.UpdatedAt.Equal(later) {
		t.Fatalf("updated_at = %v, want %v", ticket.UpdatedAt, later)
	}
}

func TestApplyStateClosingUnresolvedSetsResolvedAt(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{State: domain.TicketStateWaiting}
	applyState(ticket, domain.TicketStateClosed, now)
	if ticket.ResolvedAt == nil || ticket.ClosedAt == nil {
		t.Fatalf("expected both timestamps, got resolved_at=%v closed_at=%v", ticket.ResolvedAt, ticket.ClosedAt)
	}
}

func TestApplyStateRegressionClearsTimestamps(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{State: domain.TicketStateResolved, ResolvedAt: timePtr(now)}
	applyState(ticket, domain.TicketStateInProgress, now.Add(time.Minute))
	if ticket.ResolvedAt != nil || ticket.ClosedAt != nil {
		t.Fatalf("regression kept timestamps: resolved_at=%v closed_at=%v", ticket.ResolvedAt, ticket.ClosedAt)
	}
	if ticket.State != domain.TicketStateInProgress {
		t.Fatalf("state = %s", ticket.State)
	}
}
