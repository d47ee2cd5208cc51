package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// numberingLockKey serializes ticket number allocation across writers.
const numberingLockKey int64 = 0x7469636b6574

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	FindLatest(ctx context.Context) (*domain.Ticket, error)
	ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error)
	ListByStateResolvedBefore(ctx context.Context, state domain.TicketState, cutoff time.Time) ([]domain.Ticket, error)
	CountByStateResolvedBefore(ctx context.Context, state domain.TicketState, cutoff time.Time) (int, error)
	LockNumbering(ctx context.Context) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, title, description, state, priority, category_id, subcategory_id,
               creator_id, technician_id, created_at, updated_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, state, priority, category_id, subcategory_id,
            creator_id, technician_id, created_at, updated_at, resolved_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.Title,
		ticket.Description,
		ticket.State,
		ticket.Priority,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.CreatorID,
		ticket.TechnicianID,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
	).Scan(&ticket.ID)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, state=$3, priority=$4, category_id=$5, subcategory_id=$6,
            technician_id=$7, updated_at=$8, resolved_at=$9, closed_at=$10
        WHERE id=$11`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.State,
		ticket.Priority,
		ticket.CategoryID,
		ticket.SubcategoryID,
		ticket.TechnicianID,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id)
}

// GetByIDForUpdate locks the row until the surrounding transaction ends.
func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id)
}

func (r *ticketRepository) FindLatest(ctx context.Context) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY id DESC LIMIT 1`)
}

func (r *ticketRepository) ListByState(ctx context.Context, state domain.TicketState) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE state=$1 ORDER BY id ASC`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByStateResolvedBefore(ctx context.Context, state domain.TicketState, cutoff time.Time) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE state=$1 AND resolved_at < $2 ORDER BY id ASC`, state, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) CountByStateResolvedBefore(ctx context.Context, state domain.TicketState, cutoff time.Time) (int, error) {
	var count int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE state=$1 AND resolved_at < $2`, state, cutoff).Scan(&count)
	return count, err
}

// LockNumbering takes a transaction-scoped advisory lock; it must run inside WithinTx.
func (r *ticketRepository) LockNumbering(ctx context.Context) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, numberingLockKey)
	return err
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, args...), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.State,
		&ticket.Priority,
		&ticket.CategoryID,
		&ticket.SubcategoryID,
		&ticket.CreatorID,
		&ticket.TechnicianID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
