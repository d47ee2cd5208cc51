package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ChangeLogRepository stores the append-only ticket audit trail.
type ChangeLogRepository interface {
	Create(ctx context.Context, entry *domain.ChangeLogEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.ChangeLogEntry, error)
}

type changeLogRepository struct {
	pool *pgxpool.Pool
}

// NewChangeLogRepository builds repository.
func NewChangeLogRepository(pool *pgxpool.Pool) ChangeLogRepository {
	return &changeLogRepository{pool: pool}
}

func (r *changeLogRepository) Create(ctx context.Context, entry *domain.ChangeLogEntry) error {
	const query = `
        INSERT INTO ticket_change_log (ticket_id, actor_id, field, old_value, new_value, automatic, changed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Automatic,
		entry.ChangedAt,
	).Scan(&entry.ID)
}

// ListByTicket returns entries newest first.
func (r *changeLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.ChangeLogEntry, error) {
	const query = `
        SELECT id, ticket_id, actor_id, field, old_value, new_value, automatic, changed_at
        FROM ticket_change_log
        WHERE ticket_id=$1
        ORDER BY changed_at DESC, id DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ChangeLogEntry
	for rows.Next() {
		var entry domain.ChangeLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.Field,
			&entry.OldValue,
			&entry.NewValue,
			&entry.Automatic,
			&entry.ChangedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
