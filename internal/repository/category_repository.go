package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryRepository reads ticket categories and subcategories.
type CategoryRepository interface {
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	GetSubcategory(ctx context.Context, id int64) (*domain.Subcategory, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	var category domain.Category
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, active FROM categories WHERE id=$1`, id,
	).Scan(&category.ID, &category.Name, &category.Active)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepository) GetSubcategory(ctx context.Context, id int64) (*domain.Subcategory, error) {
	var sub domain.Subcategory
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, category_id, name, active FROM subcategories WHERE id=$1`, id,
	).Scan(&sub.ID, &sub.CategoryID, &sub.Name, &sub.Active)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
