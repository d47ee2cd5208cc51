package service

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CanTransition reports whether a ticket may move from one state to another.
// CLOSED is terminal and a NEW ticket must be worked before it can be
// resolved or closed. Every other pair is allowed, regressions included.
func CanTransition(from, to domain.TicketState) bool {
	if from == domain.TicketStateClosed {
		return to == domain.TicketStateClosed
	}
	if from == domain.TicketStateNew {
		return to != domain.TicketStateResolved && to != domain.TicketStateClosed
	}
	return true
}

// applyState moves ticket to state and keeps resolved_at/closed_at consistent with it.
func applyState(ticket *domain.Ticket, state domain.TicketState, now time.Time) {
	switch state {
	case domain.TicketStateResolved:
		ticket.ResolvedAt = timePtr(now)
		ticket.ClosedAt = nil
	case domain.TicketStateClosed:
		if ticket.ResolvedAt == nil {
			ticket.ResolvedAt = timePtr(now)
		}
		ticket.ClosedAt = timePtr(now)
	default:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	}
	ticket.State = state
	ticket.UpdatedAt = now
}

func timePtr(t time.Time) *time.Time {
	return &t
}
