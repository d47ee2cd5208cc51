// Package memory provides mutex-guarded in-memory repositories for tests and local tooling.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds every table in memory. Units of work run one at a time and are
// rolled back from a snapshot when the callback fails.
type Store struct {
	txMu sync.Mutex

	mu            sync.Mutex
	tickets       map[int64]domain.Ticket
	changeLog     []domain.ChangeLogEntry
	users         map[int64]domain.User
	categories    map[int64]domain.Category
	subcategories map[int64]domain.Subcategory
	links         []domain.SupervisorTechnicianLink
	settings      map[string]domain.SystemSetting
	nextID        int64
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		tickets:       make(map[int64]domain.Ticket),
		users:         make(map[int64]domain.User),
		categories:    make(map[int64]domain.Category),
		subcategories: make(map[int64]domain.Subcategory),
		settings:      make(map[string]domain.SystemSetting),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) ChangeLog() repository.ChangeLogRepository { return changeLogRepo{s} }
func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Categories() repository.CategoryRepository { return categoryRepo{s} }
func (s *Store) SupervisorLinks() repository.SupervisorLinkRepository { return linkRepo{s} }
func (s *Store) Settings() repository.SystemSettingRepository { return settingRepo{s} }
func (s *Store) TxManager() repository.TxManager { return txManager{s} }

// AddCategory seeds a category with its subcategories.
func (s *Store) AddCategory(category domain.Category, subs ...domain.Subcategory) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = category
	for _, sub := range subs {
		sub.CategoryID = category.ID
		s.subcategories[sub.ID] = sub
	}
}

// AddUser seeds a user and returns its assigned id.
func (s *Store) AddUser(user domain.User) int64 {
	_ = userRepo{s}.Create(context.Background(), &user)
	return user.ID
}

// ChangeLogEntries returns every entry in insertion order.
func (s *Store) ChangeLogEntries() []domain.ChangeLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ChangeLogEntry(nil), s.changeLog...)
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	tickets   map[int64]domain.Ticket
	changeLog []domain.ChangeLogEntry
	users     map[int64]domain.User
	links     []domain.SupervisorTechnicianLink
	settings  map[string]domain.SystemSetting
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		tickets:   make(map[int64]domain.Ticket, len(s.tickets)),
		changeLog: append([]domain.ChangeLogEntry(nil), s.changeLog...),
		users:     make(map[int64]domain.User, len(s.users)),
		links:     append([]domain.SupervisorTechnicianLink(nil), s.links...),
		settings:  make(map[string]domain.SystemSetting, len(s.settings)),
	}
	for k, v := range s.tickets {
		snap.tickets[k] = v
	}
	for k, v := range s.users {
		snap.users[k] = v
	}
	for k, v := range s.settings {
		snap.settings[k] = v
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = snap.tickets
	s.changeLog = snap.changeLog
	s.users = snap.users
	s.links = snap.links
	s.settings = snap.settings
}

type txKey struct{}

type txManager struct{ s *Store }

func (m txManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return errDuplicate("ticket_number")
		}
	}
	ticket.ID = r.s.id()
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.s.tickets[ticket.ID] = *ticket
	return nil
}

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r ticketRepo) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r ticketRepo) FindLatest(_ context.Context) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *domain.Ticket
	for _, ticket := range r.s.tickets {
		if latest == nil || ticket.ID > latest.ID {
			t := ticket
			latest = &t
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

func (r ticketRepo) ListByState(_ context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool { return t.State == state }), nil
}

func (r ticketRepo) ListByStateResolvedBefore(_ context.Context, state domain.TicketState, cutoff time.Time) ([]domain.Ticket, error) {
	return r.filter(func(t domain.Ticket) bool {
		return t.State == state && t.ResolvedAt != nil && t.ResolvedAt.Before(cutoff)
	}), nil
}

func (r ticketRepo) CountByStateResolvedBefore(ctx context.Context, state domain.TicketState, cutoff time.Time) (int, error) {
	list, _ := r.ListByStateResolvedBefore(ctx, state, cutoff)
	return len(list), nil
}

func (r ticketRepo) LockNumbering(context.Context) error { return nil }

func (r ticketRepo) filter(keep func(domain.Ticket) bool) []domain.Ticket {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.s.tickets {
		if keep(ticket) {
			out = append(out, ticket)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type changeLogRepo struct{ s *Store }

func (r changeLogRepo) Create(_ context.Context, entry *domain.ChangeLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = r.s.id()
	r.s.changeLog = append(r.s.changeLog, *entry)
	return nil
}

func (r changeLogRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.ChangeLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ChangeLogEntry
	for i := len(r.s.changeLog) - 1; i >= 0; i-- {
		if r.s.changeLog[i].TicketID == ticketID {
			out = append(out, r.s.changeLog[i])
		}
	}
	return out, nil
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return errDuplicate("email")
		}
	}
	user.ID = r.s.id()
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	user, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, user := range r.s.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r userRepo) FirstWithRole(_ context.Context, role domain.Role) (*domain.User, error) {
	users := r.s.sortedUsers(func(u domain.User) bool { return u.Active && u.HasRole(role) })
	if len(users) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &users[0], nil
}

func (r userRepo) ListActiveTechnicians(_ context.Context, categoryID int64) ([]domain.User, error) {
	return r.s.sortedUsers(func(u domain.User) bool {
		return u.Active && u.IsTechnician() && u.InCategory(categoryID)
	}), nil
}

// sortedUsers returns matching users ordered by id.
func (s *Store) sortedUsers(keep func(domain.User) bool) []domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.User
	for _, user := range s.users {
		if keep(user) {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	category, ok := r.s.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &category, nil
}

func (r categoryRepo) GetSubcategory(_ context.Context, id int64) (*domain.Subcategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subcategories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &sub, nil
}

type linkRepo struct{ s *Store }

func (r linkRepo) Create(_ context.Context, link *domain.SupervisorTechnicianLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if link.Active {
		for _, existing := range r.s.links {
			if existing.Active && existing.SupervisorID == link.SupervisorID && existing.TechnicianID == link.TechnicianID {
				return errDuplicate("supervisor_technician_links_active")
			}
		}
	}
	link.ID = r.s.id()
	r.s.links = append(r.s.links, *link)
	return nil
}

func (r linkRepo) Update(_ context.Context, link *domain.SupervisorTechnicianLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.links {
		if r.s.links[i].ID == link.ID {
			r.s.links[i].Active = link.Active
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r linkRepo) GetActive(_ context.Context, supervisorID, technicianID int64) (*domain.SupervisorTechnicianLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, link := range r.s.links {
		if link.Active && link.SupervisorID == supervisorID && link.TechnicianID == technicianID {
			l := link
			return &l, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r linkRepo) ExistsActive(ctx context.Context, supervisorID, technicianID int64) (bool, error) {
	_, err := r.GetActive(ctx, supervisorID, technicianID)
	return err == nil, nil
}

func (r linkRepo) ListActiveTechnicians(_ context.Context, supervisorID int64) ([]domain.User, error) {
	ids := r.linked(func(l domain.SupervisorTechnicianLink) (int64, bool) {
		return l.TechnicianID, l.SupervisorID == supervisorID
	})
	return r.s.sortedUsers(func(u domain.User) bool { return u.Active && ids[u.ID] }), nil
}

func (r linkRepo) ListActiveSupervisors(_ context.Context, technicianID int64) ([]domain.User, error) {
	ids := r.linked(func(l domain.SupervisorTechnicianLink) (int64, bool) {
		return l.SupervisorID, l.TechnicianID == technicianID
	})
	return r.s.sortedUsers(func(u domain.User) bool { return u.Active && ids[u.ID] }), nil
}

func (r linkRepo) linked(pick func(domain.SupervisorTechnicianLink) (int64, bool)) map[int64]bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids := make(map[int64]bool)
	for _, link := range r.s.links {
		if !link.Active {
			continue
		}
		if id, ok := pick(link); ok {
			ids[id] = true
		}
	}
	return ids
}

type settingRepo struct{ s *Store }

func (r settingRepo) Get(_ context.Context, key string) (*domain.SystemSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	setting, ok := r.s.settings[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &setting, nil
}

func (r settingRepo) Upsert(_ context.Context, setting *domain.SystemSetting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.settings[setting.Key]; ok && setting.Description == "" {
		setting.Description = existing.Description
	}
	setting.UpdatedAt = r.s.now()
	r.s.settings[setting.Key] = *setting
	return nil
}
