package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for accounts and their roles.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	FirstWithRole(ctx context.Context, role domain.Role) (*domain.User, error)
	ListActiveTechnicians(ctx context.Context, categoryID int64) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

// Roles are aggregated from user_roles so a single row carries the full set.
const userSelect = `
        SELECT u.id, u.name, u.email, u.password_hash, u.category_id, u.active, u.created_at, u.updated_at,
               COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
        FROM users u
        LEFT JOIN user_roles r ON r.user_id = u.id`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, category_id, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return (&pgTxManager{pool: r.pool}).WithinTx(ctx, func(ctx context.Context) error {
		q := conn(ctx, r.pool)
		if err := q.QueryRow(ctx, query,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.CategoryID,
			user.Active,
		).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return err
		}
		for _, role := range user.Roles {
			if _, err := q.Exec(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				user.ID, role); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect+` WHERE u.id=$1 GROUP BY u.id`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, userSelect+` WHERE lower(u.email)=lower($1) GROUP BY u.id`, email)
}

// FirstWithRole returns the lowest-id active user holding role.
func (r *userRepository) FirstWithRole(ctx context.Context, role domain.Role) (*domain.User, error) {
	const query = userSelect + `
        WHERE u.active AND EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = $1)
        GROUP BY u.id
        ORDER BY u.id ASC
        LIMIT 1`
	return r.fetchSingle(ctx, query, role)
}

func (r *userRepository) ListActiveTechnicians(ctx context.Context, categoryID int64) ([]domain.User, error) {
	const query = userSelect + `
        WHERE u.active AND u.category_id = $1
          AND EXISTS (SELECT 1 FROM user_roles x WHERE x.user_id = u.id AND x.role = 'TECHNICIAN')
        GROUP BY u.id
        ORDER BY u.name ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var user domain.User
	if err := scanUser(conn(ctx, r.pool).QueryRow(ctx, query, args...), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func scanUser(row pgx.Row, user *domain.User) error {
	var roles []string
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CategoryID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
		&roles,
	); err != nil {
		return err
	}
	user.Roles = make([]domain.Role, 0, len(roles))
	for _, role := range roles {
		user.Roles = append(user.Roles, domain.Role(role))
	}
	return nil
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := scanUser(rows, &user); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
