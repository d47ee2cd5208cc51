package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tx         repository.TxManager
	tickets    repository.TicketRepository
	changeLog  repository.ChangeLogRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	numbers    *TicketNumberGenerator
	authorizer *AssignmentService
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TxManager     repository.TxManager
	TicketRepo    repository.TicketRepository
	ChangeLogRepo repository.ChangeLogRepository
	UserRepo      repository.UserRepository
	CategoryRepo  repository.CategoryRepository
	Numbers       *TicketNumberGenerator
	Authorizer    *AssignmentService
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Now           func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title         string
	Description   string
	Priority      domain.TicketPriority
	CategoryID    int64
	SubcategoryID int64
}

// TransitionOptions tunes a state change.
type TransitionOptions struct {
	// Automatic marks changes made by the system rather than a person.
	Automatic bool
	// RequireState, when set, must still be the ticket's state once the row is locked.
	RequireState domain.TicketState
	// ResolvedBefore, when set, requires resolved_at to be strictly earlier.
	ResolvedBefore *time.Time
}

// check fails with PRECONDITION_FAILED when ticket no longer matches the options.
func (o TransitionOptions) check(ticket *domain.Ticket) error {
	if o.RequireState != "" && ticket.State != o.RequireState {
		return apperrors.NewPreconditionFailed("ticket state changed", map[string]any{
			"ticket_id": ticket.ID,
			"expected":  o.RequireState,
			"actual":    ticket.State,
		})
	}
	if o.ResolvedBefore != nil && (ticket.ResolvedAt == nil || !ticket.ResolvedAt.Before(*o.ResolvedBefore)) {
		return apperrors.NewPreconditionFailed("ticket resolved too recently", map[string]any{
			"ticket_id": ticket.ID,
			"cutoff":    *o.ResolvedBefore,
		})
	}
	return nil
}

// BulkFailure describes one item a bulk operation could not process.
type BulkFailure struct {
	TicketID int64  `json:"ticket_id"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// BulkResult reports the per-item outcome of a bulk operation.
type BulkResult struct {
	Succeeded []int64       `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

func (r *BulkResult) fail(ticketID int64, err error) {
	domainErr := apperrors.ToDomainError(err)
	r.Failed = append(r.Failed, BulkFailure{TicketID: ticketID, Code: domainErr.Code, Message: domainErr.Message})
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TicketService{
		tx:         deps.TxManager,
		tickets:    deps.TicketRepo,
		changeLog:  deps.ChangeLogRepo,
		users:      deps.UserRepo,
		categories: deps.CategoryRepo,
		numbers:    deps.Numbers,
		authorizer: deps.Authorizer,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Create opens a NEW ticket on behalf of creatorID.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput, creatorID int64) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	if input.CategoryID <= 0 {
		return nil, apperrors.NewValidationError("category is required", map[string]any{"field": "category_id"})
	}
	if input.SubcategoryID <= 0 {
		return nil, apperrors.NewValidationError("subcategory is required", map[string]any{"field": "subcategory_id"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	var ticket *domain.Ticket
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := loadUser(ctx, s.users, creatorID, "user"); err != nil {
			return err
		}
		if _, err := s.categories.GetCategory(ctx, input.CategoryID); err != nil {
			return notFoundOr(err, "category", map[string]any{"category_id": input.CategoryID})
		}
		sub, err := s.categories.GetSubcategory(ctx, input.SubcategoryID)
		if err != nil {
			return notFoundOr(err, "subcategory", map[string]any{"subcategory_id": input.SubcategoryID})
		}
		if sub.CategoryID != input.CategoryID {
			return apperrors.NewValidationError("subcategory does not belong to category", map[string]any{
				"category_id":    input.CategoryID,
				"subcategory_id": input.SubcategoryID,
			})
		}

		number, err := s.numbers.Next(ctx)
		if err != nil {
			return err
		}
		now := s.now()
		ticket = &domain.Ticket{
			TicketNumber:  number,
			Title:         title,
			Description:   strings.TrimSpace(input.Description),
			State:         domain.TicketStateNew,
			Priority:      priority,
			CategoryID:    input.CategoryID,
			SubcategoryID: input.SubcategoryID,
			CreatorID:     creatorID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.tickets.Create(ctx, ticket); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperrors.NewConflict("ticket number already taken", map[string]any{"ticket_number": number})
			}
			return apperrors.MapError(err)
		}
		return s.record(ctx, ticket.ID, creatorID, domain.FieldState, nil, stringPtr(string(domain.TicketStateNew)), false, now)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.EventTicketCreated, ticket, creatorID, events.TicketCreatedPayload{
		CreatorID:  creatorID,
		CategoryID: ticket.CategoryID,
		Priority:   ticket.Priority,
		Title:      ticket.Title,
	})
	return ticket, nil
}

// Get returns a ticket by id.
func (s *TicketService) Get(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// History returns the change log of a ticket, newest first.
func (s *TicketService) History(ctx context.Context, ticketID int64) ([]domain.ChangeLogEntry, error) {
	if _, err := s.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.changeLog.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Transition moves a ticket to newState on behalf of a person.
func (s *TicketService) Transition(ctx context.Context, ticketID int64, newState domain.TicketState, actorID int64) (*domain.Ticket, error) {
	return s.TransitionWithOptions(ctx, ticketID, newState, actorID, TransitionOptions{})
}

// TransitionWithOptions moves a ticket to newState. Requesting the current
// state returns the ticket untouched without a log entry or notification.
// Preconditions in opts are checked against the locked row.
func (s *TicketService) TransitionWithOptions(ctx context.Context, ticketID int64, newState domain.TicketState, actorID int64, opts TransitionOptions) (*domain.Ticket, error) {
	if !newState.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket state", map[string]any{"state": newState})
	}

	var (
		ticket   *domain.Ticket
		oldState domain.TicketState
		changed  bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := loadUser(ctx, s.users, actorID, "user"); err != nil {
			return err
		}
		var err error
		ticket, err = s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		if err := opts.check(ticket); err != nil {
			return err
		}
		oldState = ticket.State
		if oldState == newState {
			return nil
		}
		if !CanTransition(oldState, newState) {
			return apperrors.NewInvalidTransition(string(oldState), string(newState))
		}

		now := s.now()
		applyState(ticket, newState, now)
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		changed = true
		return s.record(ctx, ticket.ID, actorID, domain.FieldState,
			stringPtr(string(oldState)), stringPtr(string(newState)), opts.Automatic, now)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return ticket, nil
	}

	payload := events.TicketStateChangedPayload{
		OldState:     oldState,
		NewState:     newState,
		CreatorID:    ticket.CreatorID,
		TechnicianID: ticket.TechnicianID,
		Automatic:    opts.Automatic,
	}
	switch {
	case newState == domain.TicketStateInProgress:
		s.publishEvent(ctx, events.EventTicketInProgress, ticket, actorID, payload)
	case newState == domain.TicketStateResolved:
		s.publishEvent(ctx, events.EventTicketResolved, ticket, actorID, payload)
	case newState == domain.TicketStateClosed && opts.Automatic:
		s.publishEvent(ctx, events.EventTicketAutoClosed, ticket, actorID, payload)
	}
	return ticket, nil
}

// AssignTechnician hands the ticket to technicianID. A NEW ticket becomes ASSIGNED.
func (s *TicketService) AssignTechnician(ctx context.Context, ticketID, technicianID, actorID int64) (*domain.Ticket, error) {
	var (
		ticket   *domain.Ticket
		previous *int64
		changed  bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, err = s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		technician, err := loadUser(ctx, s.users, technicianID, "technician")
		if err != nil {
			return err
		}
		if _, err := loadUser(ctx, s.users, actorID, "user"); err != nil {
			return err
		}
		if ticket.CategoryID == 0 || technician.CategoryID == nil {
			return apperrors.NewValidationError("ticket and technician must both have a category", map[string]any{
				"ticket_id":     ticketID,
				"technician_id": technicianID,
			})
		}
		if !technician.InCategory(ticket.CategoryID) {
			return apperrors.NewValidationError("technician category does not match ticket category", map[string]any{
				"ticket_category_id":     ticket.CategoryID,
				"technician_category_id": *technician.CategoryID,
			})
		}
		allowed, err := s.authorizer.CanAssign(ctx, actorID, technicianID)
		if err != nil {
			return err
		}
		if !allowed {
			return apperrors.NewForbidden("not allowed to assign tickets to this technician")
		}

		previous = ticket.TechnicianID
		sameTechnician := previous != nil && *previous == technicianID
		if sameTechnician && ticket.State != domain.TicketStateNew {
			return nil
		}

		now := s.now()
		oldState := ticket.State
		ticket.TechnicianID = &technician.ID
		ticket.UpdatedAt = now
		if oldState == domain.TicketStateNew {
			applyState(ticket, domain.TicketStateAssigned, now)
		}
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		changed = true
		if !sameTechnician {
			if err := s.record(ctx, ticket.ID, actorID, domain.FieldTechnician,
				idString(previous), idString(ticket.TechnicianID), false, now); err != nil {
				return err
			}
		}
		if oldState != ticket.State {
			return s.record(ctx, ticket.ID, actorID, domain.FieldState,
				stringPtr(string(oldState)), stringPtr(string(ticket.State)), false, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.publishEvent(ctx, events.EventTicketAssigned, ticket, actorID, events.TicketAssignedPayload{
			TechnicianID:         technicianID,
			PreviousTechnicianID: previous,
		})
	}
	return ticket, nil
}

// BulkTransition applies Transition to every ticket and keeps going past failures.
// Only administrators may run it.
func (s *TicketService) BulkTransition(ctx context.Context, ticketIDs []int64, newState domain.TicketState, actorID int64) (*BulkResult, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	result := &BulkResult{Succeeded: []int64{}, Failed: []BulkFailure{}}
	for _, id := range ticketIDs {
		if _, err := s.Transition(ctx, id, newState, actorID); err != nil {
			s.logger.Warn("bulk transition item failed", zap.Int64("ticket_id", id), zap.Error(err))
			result.fail(id, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

// BulkAssign assigns every ticket to the same technician. Only administrators may run it.
func (s *TicketService) BulkAssign(ctx context.Context, ticketIDs []int64, technicianID, actorID int64) (*BulkResult, error) {
	if err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	technician, err := loadUser(ctx, s.users, technicianID, "technician")
	if err != nil {
		return nil, err
	}
	if !technician.IsTechnician() {
		return nil, apperrors.NewValidationError("user is not a technician", map[string]any{"technician_id": technicianID})
	}
	result := &BulkResult{Succeeded: []int64{}, Failed: []BulkFailure{}}
	for _, id := range ticketIDs {
		if _, err := s.AssignTechnician(ctx, id, technicianID, actorID); err != nil {
			s.logger.Warn("bulk assign item failed", zap.Int64("ticket_id", id), zap.Error(err))
			result.fail(id, err)
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result, nil
}

func (s *TicketService) requireAdmin(ctx context.Context, actorID int64) error {
	actor, err := loadUser(ctx, s.users, actorID, "user")
	if err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("administrator role required")
	}
	return nil
}

func (s *TicketService) record(ctx context.Context, ticketID, actorID int64, field string, oldValue, newValue *string, automatic bool, at time.Time) error {
	entry := &domain.ChangeLogEntry{
		TicketID:  ticketID,
		ActorID:   actorID,
		Field:     field,
		OldValue:  oldValue,
		NewValue:  newValue,
		Automatic: automatic,
		ChangedAt: at,
	}
	if err := s.changeLog.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actorID int64, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		ActorID:      actorID,
		Timestamp:    s.now(),
		Payload:      payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
