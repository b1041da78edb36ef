package database

import (
	"context"
	"fmt"
)

// RunMigrations creates the database schema. Every statement is idempotent,
// so the set doubles as the handler behind POST /api/init-db.
func RunMigrations(ctx context.Context, db PGXDB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS tags (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// category_id deliberately has no ON DELETE clause: deleting a
		// category that still has expenses is rejected by the constraint.
		`CREATE TABLE IF NOT EXISTS expenses (
			id SERIAL PRIMARY KEY,
			amount DECIMAL(12, 2) NOT NULL CHECK (amount >= 0),
			description TEXT NOT NULL DEFAULT '',
			date DATE NOT NULL DEFAULT CURRENT_DATE,
			category_id INTEGER NOT NULL REFERENCES categories(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expense_tags (
			expense_id INTEGER NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			PRIMARY KEY (expense_id, tag_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_category_id ON expenses(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_expense_tags_tag_id ON expense_tags(tag_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// SeedCategories inserts a starter set of expense categories.
func SeedCategories(ctx context.Context, db PGXDB) error {
	categories := []string{
		"Food",
		"Groceries",
		"Transport",
		"Rent",
		"Utilities",
		"Entertainment",
		"Health",
		"Travel",
		"Shopping",
		"Others",
	}

	for _, cat := range categories {
		_, err := db.Exec(ctx,
			`INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`,
			cat,
		)
		if err != nil {
			return fmt.Errorf("failed to seed category %q: %w", cat, err)
		}
	}

	return nil
}
