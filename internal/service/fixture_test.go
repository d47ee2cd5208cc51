package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/settings"
)

const (
	catHardware int64 = 1
	catSoftware int64 = 2
	subLaptop   int64 = 11
	subPrinter  int64 = 12
	subERP      int64 = 21
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

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store      *memory.Store
	settings   *settings.Store
	clock      *testClock
	recorder   *eventRecorder
	numbers    *TicketNumberGenerator
	assignment *AssignmentService
	tickets    *TicketService

	admin      int64
	supervisor int64
	technician int64
	otherTech  int64
	softTech   int64
	requester  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddCategory(domain.Category{ID: catHardware, Name: "Hardware", Active: true},
		domain.Subcategory{ID: subLaptop, Name: "Laptop", Active: true},
		domain.Subcategory{ID: subPrinter, Name: "Printer", Active: true})
	store.AddCategory(domain.Category{ID: catSoftware, Name: "Software", Active: true},
		domain.Subcategory{ID: subERP, Name: "ERP", Active: true})

	f := &fixture{
		store:    store,
		settings: settings.NewStore(store.Settings(), nil),
		clock:    &testClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		recorder: &eventRecorder{},
	}
	f.admin = store.AddUser(domain.User{Name: "Ada", Email: "ada@helpdesk.com", Roles: []domain.Role{domain.RoleAdmin}, Active: true})
	f.supervisor = store.AddUser(domain.User{Name: "Sam", Email: "sam@helpdesk.com", Roles: []domain.Role{domain.RoleSupervisor}, CategoryID: ptr(catHardware), Active: true})
	f.technician = store.AddUser(domain.User{Name: "Tess", Email: "tess@helpdesk.com", Roles: []domain.Role{domain.RoleTechnician}, CategoryID: ptr(catHardware), Active: true})
	f.otherTech = store.AddUser(domain.User{Name: "Otto", Email: "otto@helpdesk.com", Roles: []domain.Role{domain.RoleTechnician}, CategoryID: ptr(catHardware), Active: true})
	f.softTech = store.AddUser(domain.User{Name: "Sofia", Email: "sofia@helpdesk.com", Roles: []domain.Role{domain.RoleTechnician}, CategoryID: ptr(catSoftware), Active: true})
	f.requester = store.AddUser(domain.User{Name: "Uma", Email: "uma@helpdesk.com", Roles: []domain.Role{domain.RoleUser}, Active: true})

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, f.recorder.handle)
	}

	f.numbers = NewTicketNumberGenerator(store.Tickets(), f.settings)
	f.assignment = NewAssignmentService(AssignmentDependencies{
		TxManager:  store.TxManager(),
		UserRepo:   store.Users(),
		LinkRepo:   store.SupervisorLinks(),
		TicketRepo: store.Tickets(),
		Now:        f.clock.Now,
	})
	f.tickets = NewTicketService(TicketDependencies{
		TxManager:     store.TxManager(),
		TicketRepo:    store.Tickets(),
		ChangeLogRepo: store.ChangeLog(),
		UserRepo:      store.Users(),
		CategoryRepo:  store.Categories(),
		Numbers:       f.numbers,
		Authorizer:    f.assignment,
		Dispatcher:    dispatcher,
		Now:           f.clock.Now,
	})
	return f
}

func (f *fixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.Create(context.Background(), TicketCreateInput{
		Title:         "Laptop does not boot",
		Description:   "Black screen after the update",
		CategoryID:    catHardware,
		SubcategoryID: subLaptop,
	}, f.requester)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

// moveTo walks a fresh ticket through valid transitions to reach state.
func (f *fixture) moveTo(t *testing.T, ticketID int64, states ...domain.TicketState) *domain.Ticket {
	t.Helper()
	var ticket *domain.Ticket
	for _, state := range states {
		var err error
		ticket, err = f.tickets.Transition(context.Background(), ticketID, state, f.admin)
		if err != nil {
			t.Fatalf("transition to %s: %v", state, err)
		}
	}
	return ticket
}

func (f *fixture) logFor(ticketID int64) []domain.ChangeLogEntry {
	var out []domain.ChangeLogEntry
	for _, e := range f.store.ChangeLogEntries() {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
