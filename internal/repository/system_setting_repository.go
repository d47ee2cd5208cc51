package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// SystemSettingRepository stores runtime key/value configuration.
type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	Upsert(ctx context.Context, setting *domain.SystemSetting) error
}

type systemSettingRepository struct {
	pool *pgxpool.Pool
}

func NewSystemSettingRepository(pool *pgxpool.Pool) SystemSettingRepository {
	return &systemSettingRepository{pool: pool}
}

func (r *systemSettingRepository) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	var setting domain.SystemSetting
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT key, value, description, updated_at FROM system_config WHERE key=$1`, key,
	).Scan(&setting.Key, &setting.Value, &setting.Description, &setting.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Upsert keeps an existing description when the new one is empty.
func (r *systemSettingRepository) Upsert(ctx context.Context, setting *domain.SystemSetting) error {
	const query = `
        INSERT INTO system_config (key, value, description, updated_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (key) DO UPDATE
            SET value = EXCLUDED.value,
                description = COALESCE(NULLIF(EXCLUDED.description, ''), system_config.description),
                updated_at = NOW()
        RETURNING updated_at`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		setting.Key,
		setting.Value,
		setting.Description,
	).Scan(&setting.UpdatedAt)
}
