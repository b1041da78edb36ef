package repository

import (
	"context"
	"fmt"

	"github.com/kaasu-app/kaasu/internal/database"
	"github.com/kaasu-app/kaasu/internal/models"
)

// CategoryRepository handles category database operations.
type CategoryRepository struct {
	db database.PGXDB
}

// NewCategoryRepository creates a new CategoryRepository.
func NewCategoryRepository(db database.PGXDB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// GetAll retrieves all categories ordered by name.
func (r *CategoryRepository) GetAll(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, created_at FROM categories ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

// GetByID retrieves a category by ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at FROM categories WHERE id = $1
	`, id).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", translate(err))
	}
	return &cat, nil
}

// Create adds a new category.
func (r *CategoryRepository) Create(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	err := r.db.QueryRow(ctx, `
		INSERT INTO categories (name) VALUES ($1)
		RETURNING id, name, created_at
	`, name).Scan(&cat.ID, &cat.Name, &cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", translate(err))
	}
	return &cat, nil
}

// Delete removes a category by ID. Deleting a category that still has
// expenses fails with ErrReferenced; there is no cascade on the expense FK.
func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete category: %w", ErrNotFound)
	}
	return nil
}
