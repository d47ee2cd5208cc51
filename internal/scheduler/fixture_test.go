package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/settings"
	"github.com/spec-kit/helpdesk-service/internal/stats"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

type fixture struct {
	store     *memory.Store
	settings  *settings.Store
	clock     *testClock
	metrics   *observability.Metrics
	stats     *stats.SettingsStats
	system    *service.SystemAccountService
	tickets   *service.TicketService
	scheduler *Scheduler
	seq       int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddCategory(domain.Category{ID: 1, Name: "Hardware", Active: true},
		domain.Subcategory{ID: 11, Name: "Laptop", Active: true})

	f := &fixture{
		store:    store,
		settings: settings.NewStore(store.Settings(), nil),
		clock:    &testClock{t: time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)},
		metrics:  observability.NewMetrics(),
	}
	f.stats = stats.NewSettingsStats(f.settings)
	f.system = service.NewSystemAccountService(store.Users(), "", bcrypt.MinCost, nil)

	f.tickets = service.NewTicketService(service.TicketDependencies{
		TxManager:     store.TxManager(),
		TicketRepo:    store.Tickets(),
		ChangeLogRepo: store.ChangeLog(),
		UserRepo:      store.Users(),
		CategoryRepo:  store.Categories(),
		Numbers:       service.NewTicketNumberGenerator(store.Tickets(), f.settings),
		Now:           f.clock.Now,
	})
	f.scheduler = New(Dependencies{
		Settings: f.settings,
		Tickets:  store.Tickets(),
		Closer:   f.tickets,
		Actors:   f.system,
		Stats:    f.stats,
		Metrics:  f.metrics,
		Location: time.UTC,
		Now:      f.clock.Now,
	})
	return f
}

func (f *fixture) ensureSystemAccount(t *testing.T) *domain.User {
	t.Helper()
	user, _, err := f.system.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure system account: %v", err)
	}
	return user
}

func (f *fixture) set(t *testing.T, key, value string) {
	t.Helper()
	if err := f.settings.Set(context.Background(), key, value); err != nil {
		t.Fatalf("set %s: %v", key, err)
	}
}

// addTicket stores a ticket directly in state, resolved age ago when age is non-negative.
func (f *fixture) addTicket(t *testing.T, state domain.TicketState, age time.Duration) int64 {
	t.Helper()
	f.seq++
	now := f.clock.Now()
	ticket := &domain.Ticket{
		TicketNumber:  fmt.Sprintf("TK-%06d", f.seq),
		Title:         "Screen flickers",
		State:         state,
		Priority:      domain.TicketPriorityMedium,
		CategoryID:    1,
		SubcategoryID: 11,
		CreatorID:     1,
		CreatedAt:     now.Add(-age),
		UpdatedAt:     now.Add(-age),
	}
	if age >= 0 {
		resolved := now.Add(-age)
		ticket.ResolvedAt = &resolved
	}
	if err := f.store.Tickets().Create(context.Background(), ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket.ID
}

func (f *fixture) state(t *testing.T, id int64) domain.TicketState {
	t.Helper()
	ticket, err := f.store.Tickets().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get ticket %d: %v", id, err)
	}
	return ticket.State
}

// start runs the cron loop until the test ends and waits for the first entry.
func (f *fixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.scheduler.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		status, err := f.scheduler.Status(context.Background())
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if status.Armed {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("scheduler never armed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
