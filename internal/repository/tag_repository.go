package repository

import (
	"context"
	"fmt"

	"github.com/kaasu-app/kaasu/internal/database"
	"github.com/kaasu-app/kaasu/internal/models"
)

// TagRepository handles tag database operations.
type TagRepository struct {
	db database.PGXDB
}

// NewTagRepository creates a new TagRepository.
func NewTagRepository(db database.PGXDB) *TagRepository {
	return &TagRepository{db: db}
}

// GetAll retrieves all tags ordered by name.
func (r *TagRepository) GetAll(ctx context.Context) ([]models.Tag, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return tags, nil
}

// GetByID retrieves a tag by ID.
func (r *TagRepository) GetByID(ctx context.Context, id int) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.QueryRow(ctx, `SELECT id, name, created_at FROM tags WHERE id = $1`, id).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get tag: %w", translate(err))
	}
	return &tag, nil
}

// Create adds a new tag.
func (r *TagRepository) Create(ctx context.Context, name string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.QueryRow(ctx, `
		INSERT INTO tags (name) VALUES ($1)
		RETURNING id, name, created_at
	`, name).Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", translate(err))
	}
	return &tag, nil
}

// Delete removes a tag by ID. CASCADE handles junction rows.
func (r *TagRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete tag: %w", ErrNotFound)
	}
	return nil
}
