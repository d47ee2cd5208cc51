package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/settings"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

func TestSweepClosesOnlyTicketsPastGracePeriod(t *testing.T) {
	f := newFixture(t)
	system := f.ensureSystemAccount(t)
	f.set(t, settings.KeyAutoCloseGraceDays, "2")

	old := f.addTicket(t, domain.TicketStateResolved, 72*time.Hour)
	recent := f.addTicket(t, domain.TicketStateResolved, 24*time.Hour)
	open := f.addTicket(t, domain.TicketStateInProgress, -1)

	result, err := f.scheduler.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Mode != SweepFiltered || result.Skipped {
		t.Fatalf("result = %+v", result)
	}
	if result.ActorID != system.ID {
		t.Fatalf("actor = %d, want %d", result.ActorID, system.ID)
	}
	if result.Candidates != 1 || len(result.Closed) != 1 || result.Closed[0] != old {
		t.Fatalf("closed = %v candidates = %d", result.Closed, result.Candidates)
	}
	if got := f.state(t, old); got != domain.TicketStateClosed {
		t.Fatalf("old ticket state = %s", got)
	}
	if got := f.state(t, recent); got != domain.TicketStateResolved {
		t.Fatalf("recent ticket state = %s", got)
	}
	if got := f.state(t, open); got != domain.TicketStateInProgress {
		t.Fatalf("open ticket state = %s", got)
	}

	var entries []domain.ChangeLogEntry
	for _, e := range f.store.ChangeLogEntries() {
		if e.TicketID == old {
			entries = append(entries, e)
		}
	}
	if len(entries) != 1 || !entries[0].Automatic || entries[0].ActorID != system.ID {
		t.Fatalf("change log = %+v", entries)
	}
}

func TestFullSweepClosesEveryResolvedTicket(t *testing.T) {
	f := newFixture(t)
	f.ensureSystemAccount(t)
	f.set(t, settings.KeyAutoCloseGraceDays, "30")

	a := f.addTicket(t, domain.TicketStateResolved, time.Hour)
	b := f.addTicket(t, domain.TicketStateResolved, 0)

	result, err := f.scheduler.RunSweepFull(context.Background())
	if err != nil {
		t.Fatalf("full sweep: %v", err)
	}
	if result.Mode != SweepFull || len(result.Closed) != 2 {
		t.Fatalf("result = %+v", result)
	}
	for _, id := range []int64{a, b} {
		if got := f.state(t, id); got != domain.TicketStateClosed {
			t.Fatalf("ticket %d state = %s", id, got)
		}
	}
}

func TestSweepRecordsStatistics(t *testing.T) {
	f := newFixture(t)
	f.ensureSystemAccount(t)
	ctx := context.Background()

	f.addTicket(t, domain.TicketStateResolved, 48*time.Hour)
	f.addTicket(t, domain.TicketStateResolved, 48*time.Hour)
	if _, err := f.scheduler.RunSweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	f.addTicket(t, domain.TicketStateResolved, 48*time.Hour)
	if _, err := f.scheduler.RunSweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	snap, err := f.stats.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.TotalClosed != 3 {
		t.Fatalf("total closed = %d, want 3", snap.TotalClosed)
	}
	if snap.LastRun == nil || !snap.LastRun.Equal(f.clock.Now()) {
		t.Fatalf("last run = %v", snap.LastRun)
	}

	sweeps := f.metrics.Snapshot().Sweeps
	if sweeps.Runs != 2 || sweeps.Closed != 3 {
		t.Fatalf("sweep metrics = %+v", sweeps)
	}
}

func TestSweepSkippedWhenDisabled(t *testing.T) {
	f := newFixture(t)
	f.ensureSystemAccount(t)
	f.set(t, settings.KeyAutoCloseEnabled, "false")
	id := f.addTicket(t, domain.TicketStateResolved, 96*time.Hour)

	result, err := f.scheduler.RunSweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !result.Skipped || len(result.Closed) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if got := f.state(t, id); got != domain.TicketStateResolved {
		t.Fatalf("ticket state = %s", got)
	}
	if f.metrics.Snapshot().Sweeps.Skipped != 1 {
		t.Fatalf("skipped sweep not counted")
	}
}

func TestSweepWithoutActorFails(t *testing.T) {
	f := newFixture(t)
	f.addTicket(t, domain.TicketStateResolved, 96*time.Hour)

	_, err := f.scheduler.RunSweep(context.Background())
	if !apperrors.HasCode(err, apperrors.CodeConfiguration) {
		t.Fatalf("err = %v, want CONFIGURATION_ERROR", err)
	}
	if f.metrics.Snapshot().Sweeps.Failures != 1 {
		t.Fatalf("run failure not counted")
	}
}

// racingTickets runs afterList between the sweep's listing and its first close.
type racingTickets struct {
	repository.TicketRepository
	afterList func()
}

func (r racingTickets) ListByStateResolvedBefore(ctx context.Context, state domain.TicketState, cutoff time.Time) ([]domain.Ticket, error) {
	list, err := r.TicketRepository.ListByStateResolvedBefore(ctx, state, cutoff)
	if err == nil && r.afterList != nil {
		r.afterList()
	}
	return list, err
}

func TestSweepSkipsTicketsChangedAfterListing(t *testing.T) {
	f := newFixture(t)
	system := f.ensureSystemAccount(t)
	ctx := context.Background()

	reopened := f.addTicket(t, domain.TicketStateResolved, 72*time.Hour)
	reresolved := f.addTicket(t, domain.TicketStateResolved, 72*time.Hour)
	untouched := f.addTicket(t, domain.TicketStateResolved, 72*time.Hour)

	f.scheduler.tickets = racingTickets{
		TicketRepository: f.store.Tickets(),
		afterList: func() {
			for _, step := range []struct {
				id    int64
				state domain.TicketState
			}{
				{reopened, domain.TicketStateInProgress},
				{reresolved, domain.TicketStateInProgress},
				{reresolved, domain.TicketStateResolved},
			} {
				if _, err := f.tickets.Transition(ctx, step.id, step.state, system.ID); err != nil {
					t.Fatalf("move %d to %s: %v", step.id, step.state, err)
				}
			}
		},
	}

	result, err := f.scheduler.RunSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if result.Candidates != 3 {
		t.Fatalf("candidates = %d, want 3", result.Candidates)
	}
	if len(result.Closed) != 1 || result.Closed[0] != untouched {
		t.Fatalf("closed = %v, want [%d]", result.Closed, untouched)
	}
	if len(result.Stale) != 2 || len(result.Failures) != 0 {
		t.Fatalf("stale = %v failures = %+v", result.Stale, result.Failures)
	}
	if got := f.state(t, reopened); got != domain.TicketStateInProgress {
		t.Fatalf("reopened ticket state = %s", got)
	}
	if got := f.state(t, reresolved); got != domain.TicketStateResolved {
		t.Fatalf("re-resolved ticket state = %s", got)
	}
	if got := f.metrics.Snapshot().Sweeps; got.Closed != 1 || got.Failed != 0 {
		t.Fatalf("sweep metrics = %+v", got)
	}
}
