package service

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestCreateTicketStartsNewWithOneLogEntry(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	if ticket.State != domain.TicketStateNew {
		t.Fatalf("state = %s, want NEW", ticket.State)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("default priority = %s", ticket.Priority)
	}
	if ticket.TechnicianID != nil || ticket.ResolvedAt != nil || ticket.ClosedAt != nil {
		t.Fatalf("new ticket carries assignment or timestamps: %+v", ticket)
	}

	entries := f.logFor(ticket.ID)
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Field != domain.FieldState || entry.OldValue != nil || entry.NewValue == nil || *entry.NewValue != "NEW" {
		t.Fatalf("unexpected creation entry: %+v", entry)
	}
	if entry.ActorID != f.requester || entry.Automatic {
		t.Fatalf("creation entry actor=%d automatic=%v", entry.ActorID, entry.Automatic)
	}

	if got := f.recorder.types(); len(got) != 1 || got[0] != events.EventTicketCreated {
		t.Fatalf("events = %v", got)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input TicketCreateInput
		code  string
	}{
		{"missing title", TicketCreateInput{CategoryID: catHardware, SubcategoryID: subLaptop}, apperrors.CodeValidation},
		{"bad priority", TicketCreateInput{Title: "x", Priority: "URGENT", CategoryID: catHardware, SubcategoryID: subLaptop}, apperrors.CodeValidation},
		{"unknown category", TicketCreateInput{Title: "x", CategoryID: 99, SubcategoryID: subLaptop}, apperrors.CodeNotFound},
		{"foreign subcategory", TicketCreateInput{Title: "x", CategoryID: catHardware, SubcategoryID: subERP}, apperrors.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.tickets.Create(ctx, tc.input, f.requester)
			if !apperrors.HasCode(err, tc.code) {
				t.Fatalf("err = %v, want %s", err, tc.code)
			}
		})
	}
	if n := len(f.store.ChangeLogEntries()); n != 0 {
		t.Fatalf("failed creates left %d log entries", n)
	}
}

func TestTransitionRejectsInvalidMoveWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)

	_, err := f.tickets.Transition(ctx, ticket.ID, domain.TicketStateClosed, f.admin)
	if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
		t.Fatalf("err = %v, want INVALID_TRANSITION", err)
	}
	stored, err := f.tickets.Get(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.State != domain.TicketStateNew || stored.ClosedAt != nil {
		t.Fatalf("ticket mutated: %+v", stored)
	}
	if n := len(f.logFor(ticket.ID)); n != 1 {
		t.Fatalf("log entries = %d, want 1", n)
	}
}

func TestTransitionOutOfClosedIsRejected(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.moveTo(t, ticket.ID, domain.TicketStateInProgress, domain.TicketStateResolved, domain.TicketStateClosed)

	for _, state := range []domain.TicketState{domain.TicketStateNew, domain.TicketStateInProgress, domain.TicketStateResolved} {
		_, err := f.tickets.Transition(context.Background(), ticket.ID, state, f.admin)
		if !apperrors.HasCode(err, apperrors.CodeInvalidTransition) {
			t.Fatalf("CLOSED -> %s: err = %v", state, err)
		}
	}
}

func TestTransitionToSameStateIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)
	f.moveTo(t, ticket.ID, domain.TicketStateInProgress, domain.TicketStateResolved, domain.TicketStateClosed)

	before := len(f.logFor(ticket.ID))
	eventsBefore := len(f.recorder.types())
	f.clock.Advance(time.Hour)

	got, err := f.tickets.Transition(ctx, ticket.ID, domain.TicketStateClosed, f.admin)
	if err != nil {
		t.Fatalf("repeat close: %v", err)
	}
	if got.State != domain.TicketStateClosed {
		t.Fatalf("state = %s", got.State)
	}
	if after := len(f.logFor(ticket.ID)); after != before {
		t.Fatalf("log grew from %d to %d", before, after)
	}
	if after := len(f.recorder.types()); after != eventsBefore {
		t.Fatalf("no-op transition published events")
	}
}

func TestTransitionLifecycleTimestamps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)

	f.clock.Advance(time.Minute)
	resolved := f.moveTo(t, ticket.ID, domain.TicketStateInProgress, domain.TicketStateResolved)
	if resolved.ResolvedAt == nil || !resolved.ResolvedAt.Equal(f.clock.Now()) {
		t.Fatalf("resolved_at = %v", resolved.ResolvedAt)
	}

	reopened := f.moveTo(t, ticket.ID, domain.TicketStateInProgress)
	if reopened.ResolvedAt != nil {
		t.Fatalf("reopening kept resolved_at %v", reopened.ResolvedAt)
	}

	f.moveTo(t, ticket.ID, domain.TicketStateResolved)
	f.clock.Advance(time.Hour)
	closed := f.moveTo(t, ticket.ID, domain.TicketStateClosed)
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(f.clock.Now()) {
		t.Fatalf("closed_at = %v", closed.ClosedAt)
	}
	if closed.ResolvedAt == nil || !closed.ResolvedAt.Before(*closed.ClosedAt) {
		t.Fatalf("resolved_at = %v, closed_at = %v", closed.ResolvedAt, closed.ClosedAt)
	}

	history, err := f.tickets.History(ctx, ticket.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 6 {
		t.Fatalf("history length = %d, want 6", len(history))
	}
	if *history[0].NewValue != string(domain.TicketStateClosed) {
		t.Fatalf("history is not newest first: %+v", history[0])
	}
}

func TestTransitionPublishesLifecycleEvents(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.moveTo(t, ticket.ID, domain.TicketStateInProgress, domain.TicketStateWaiting, domain.TicketStateResolved, domain.TicketStateClosed)

	want := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketInProgress,
		events.EventTicketResolved,
	}
	got := f.recorder.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestAutomaticCloseIsFlaggedAndAnnounced(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)
	f.moveTo(t, ticket.ID, domain.TicketStateInProgress, domain.TicketStateResolved)

	if _, err := f.tickets.TransitionWithOptions(context.Background(), ticket.ID, domain.TicketStateClosed, f.admin, TransitionOptions{Automatic: true}); err != nil {
		t.Fatalf("auto close: %v", err)
	}
	entries := f.logFor(ticket.ID)
	last := entries[len(entries)-1]
	if !last.Automatic || *last.NewValue != string(domain.TicketStateClosed) {
		t.Fatalf("last entry = %+v", last)
	}
	types := f.recorder.types()
	if types[len(types)-1] != events.EventTicketAutoClosed {
		t.Fatalf("events = %v", types)
	}
}

func TestTransitionUnknownTicketOrState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.tickets.Transition(ctx, 404, domain.TicketStateAssigned, f.admin); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Fatalf("missing ticket: err = %v", err)
	}
	ticket := f.createTicket(t)
	if _, err := f.tickets.Transition(ctx, ticket.ID, "ARCHIVED", f.admin); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("unknown state: err = %v", err)
	}
}

func TestAssignTechnicianMovesNewToAssigned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)

	assigned, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.technician, f.admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.State != domain.TicketStateAssigned {
		t.Fatalf("state = %s", assigned.State)
	}
	if assigned.TechnicianID == nil || *assigned.TechnicianID != f.technician {
		t.Fatalf("technician = %v", assigned.TechnicianID)
	}

	entries := f.logFor(ticket.ID)
	if len(entries) != 3 {
		t.Fatalf("log entries = %d, want 3", len(entries))
	}
	if entries[1].Field != domain.FieldTechnician || entries[1].OldValue != nil {
		t.Fatalf("technician entry = %+v", entries[1])
	}
	if entries[2].Field != domain.FieldState || *entries[2].OldValue != "NEW" || *entries[2].NewValue != "ASSIGNED" {
		t.Fatalf("state entry = %+v", entries[2])
	}

	// Reassigning the same technician changes nothing.
	if _, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.technician, f.admin); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if n := len(f.logFor(ticket.ID)); n != 3 {
		t.Fatalf("same-technician assign logged, entries = %d", n)
	}
}

func TestAssignTechnicianKeepsStateOfWorkedTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)
	f.moveTo(t, ticket.ID, domain.TicketStateInProgress)

	got, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.otherTech, f.admin)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.State != domain.TicketStateInProgress {
		t.Fatalf("state = %s, want IN_PROGRESS", got.State)
	}
	entries := f.logFor(ticket.ID)
	if last := entries[len(entries)-1]; last.Field != domain.FieldTechnician {
		t.Fatalf("last entry = %+v", last)
	}
}

func TestAssignTechnicianChecksCategoryAndAuthority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)

	if _, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.softTech, f.admin); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("category mismatch: err = %v", err)
	}
	if _, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.technician, f.supervisor); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("unlinked supervisor: err = %v", err)
	}
	if _, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.otherTech, f.technician); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("technician assigning a peer: err = %v", err)
	}

	got, err := f.tickets.AssignTechnician(ctx, ticket.ID, f.technician, f.technician)
	if err != nil {
		t.Fatalf("self assign: %v", err)
	}
	if got.State != domain.TicketStateAssigned {
		t.Fatalf("state = %s", got.State)
	}
	if n := len(f.logFor(ticket.ID)); n != 3 {
		t.Fatalf("log entries = %d, want 3", n)
	}
}

func TestBulkTransitionRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(t)

	_, err := f.tickets.BulkTransition(context.Background(), []int64{ticket.ID}, domain.TicketStateAssigned, f.supervisor)
	if !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
}

func TestBulkTransitionCollectsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fresh := f.createTicket(t)
	worked := f.createTicket(t)
	f.moveTo(t, worked.ID, domain.TicketStateInProgress)

	result, err := f.tickets.BulkTransition(ctx, []int64{fresh.ID, worked.ID, 999}, domain.TicketStateResolved, f.admin)
	if err != nil {
		t.Fatalf("bulk: %v", err)
	}
	if len(result.Succeeded) != 1 || result.Succeeded[0] != worked.ID {
		t.Fatalf("succeeded = %v", result.Succeeded)
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failed = %+v", result.Failed)
	}
	if result.Failed[0].TicketID != fresh.ID || result.Failed[0].Code != apperrors.CodeInvalidTransition {
		t.Fatalf("first failure = %+v", result.Failed[0])
	}
	if result.Failed[1].TicketID != 999 || result.Failed[1].Code != apperrors.CodeNotFound {
		t.Fatalf("second failure = %+v", result.Failed[1])
	}
}

func TestBulkAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createTicket(t)
	b := f.createTicket(t)

	result, err := f.tickets.BulkAssign(ctx, []int64{a.ID, b.ID}, f.technician, f.admin)
	if err != nil {
		t.Fatalf("bulk assign: %v", err)
	}
	if len(result.Succeeded) != 2 || len(result.Failed) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := f.tickets.BulkAssign(ctx, []int64{a.ID}, f.requester, f.admin); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Fatalf("non-technician target: err = %v", err)
	}
}

func TestTransitionPreconditionsAreCheckedOnLockedRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)
	f.moveTo(t, ticket.ID, domain.TicketStateInProgress)
	logged := len(f.logFor(ticket.ID))

	_, err := f.tickets.TransitionWithOptions(ctx, ticket.ID, domain.TicketStateClosed, f.admin,
		TransitionOptions{Automatic: true, RequireState: domain.TicketStateResolved})
	if !apperrors.HasCode(err, apperrors.CodePrecondition) {
		t.Fatalf("state mismatch: err = %v, want PRECONDITION_FAILED", err)
	}
	if got, _ := f.tickets.Get(ctx, ticket.ID); got.State != domain.TicketStateInProgress {
		t.Fatalf("ticket mutated to %s", got.State)
	}
	if got := len(f.logFor(ticket.ID)); got != logged {
		t.Fatalf("change log grew from %d to %d", logged, got)
	}

	f.moveTo(t, ticket.ID, domain.TicketStateResolved)
	cutoff := f.clock.Now()
	_, err = f.tickets.TransitionWithOptions(ctx, ticket.ID, domain.TicketStateClosed, f.admin,
		TransitionOptions{Automatic: true, RequireState: domain.TicketStateResolved, ResolvedBefore: &cutoff})
	if !apperrors.HasCode(err, apperrors.CodePrecondition) {
		t.Fatalf("recent resolution: err = %v, want PRECONDITION_FAILED", err)
	}

	f.clock.Advance(time.Hour)
	cutoff = f.clock.Now()
	closed, err := f.tickets.TransitionWithOptions(ctx, ticket.ID, domain.TicketStateClosed, f.admin,
		TransitionOptions{Automatic: true, RequireState: domain.TicketStateResolved, ResolvedBefore: &cutoff})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.State != domain.TicketStateClosed {
		t.Fatalf("state = %s", closed.State)
	}
}
