package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SupervisorLinkRepository persists supervisor/technician delegation links.
type SupervisorLinkRepository interface {
	Create(ctx context.Context, link *domain.SupervisorTechnicianLink) error
	Update(ctx context.Context, link *domain.SupervisorTechnicianLink) error
	GetActive(ctx context.Context, supervisorID, technicianID int64) (*domain.SupervisorTechnicianLink, error)
	ExistsActive(ctx context.Context, supervisorID, technicianID int64) (bool, error)
	ListActiveTechnicians(ctx context.Context, supervisorID int64) ([]domain.User, error)
	ListActiveSupervisors(ctx context.Context, technicianID int64) ([]domain.User, error)
}

type supervisorLinkRepository struct {
	pool *pgxpool.Pool
}

// NewSupervisorLinkRepository creates repository.
func NewSupervisorLinkRepository(pool *pgxpool.Pool) SupervisorLinkRepository {
	return &supervisorLinkRepository{pool: pool}
}

func (r *supervisorLinkRepository) Create(ctx context.Context, link *domain.SupervisorTechnicianLink) error {
	const query = `
        INSERT INTO supervisor_technician_links (supervisor_id, technician_id, active, assigned_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		link.SupervisorID,
		link.TechnicianID,
		link.Active,
		link.AssignedAt,
	).Scan(&link.ID)
}

func (r *supervisorLinkRepository) Update(ctx context.Context, link *domain.SupervisorTechnicianLink) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE supervisor_technician_links SET active=$1 WHERE id=$2`, link.Active, link.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *supervisorLinkRepository) GetActive(ctx context.Context, supervisorID, technicianID int64) (*domain.SupervisorTechnicianLink, error) {
	const query = `
        SELECT id, supervisor_id, technician_id, active, assigned_at
        FROM supervisor_technician_links
        WHERE supervisor_id=$1 AND technician_id=$2 AND active`
	var link domain.SupervisorTechnicianLink
	if err := conn(ctx, r.pool).QueryRow(ctx, query, supervisorID, technicianID).Scan(
		&link.ID,
		&link.SupervisorID,
		&link.TechnicianID,
		&link.Active,
		&link.AssignedAt,
	); err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *supervisorLinkRepository) ExistsActive(ctx context.Context, supervisorID, technicianID int64) (bool, error) {
	var exists bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM supervisor_technician_links
            WHERE supervisor_id=$1 AND technician_id=$2 AND active)`,
		supervisorID, technicianID).Scan(&exists)
	return exists, err
}

func (r *supervisorLinkRepository) ListActiveTechnicians(ctx context.Context, supervisorID int64) ([]domain.User, error) {
	const query = userSelect + `
        JOIN supervisor_technician_links l ON l.technician_id = u.id AND l.active
        WHERE l.supervisor_id = $1 AND u.active
        GROUP BY u.id
        ORDER BY u.name ASC`
	return r.listUsers(ctx, query, supervisorID)
}

func (r *supervisorLinkRepository) ListActiveSupervisors(ctx context.Context, technicianID int64) ([]domain.User, error) {
	const query = userSelect + `
        JOIN supervisor_technician_links l ON l.supervisor_id = u.id AND l.active
        WHERE l.technician_id = $1 AND u.active
        GROUP BY u.id
        ORDER BY u.name ASC`
	return r.listUsers(ctx, query, technicianID)
}

func (r *supervisorLinkRepository) listUsers(ctx context.Context, query string, id int64) ([]domain.User, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}
