package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaasu-app/kaasu/internal/database"
	"github.com/kaasu-app/kaasu/internal/models"
)

// ExpenseRepository handles expense database operations, including the
// expense_tags junction and the per-category summary aggregation.
type ExpenseRepository struct {
	db database.PGXDB
}

// NewExpenseRepository creates a new ExpenseRepository.
func NewExpenseRepository(db database.PGXDB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// Filter narrows an expense listing. Nil fields mean "no constraint on this
// dimension"; the server does all filtering, clients none.
type Filter struct {
	CategoryID *int
	TagID      *int
	DateFrom   *models.Date
	DateTo     *models.Date
}

// Update carries a partial expense update. Only non-nil fields change.
// A non-nil empty TagIDs clears all tags.
type Update struct {
	Amount      *decimal.Decimal
	Description *string
	Date        *models.Date
	CategoryID  *int
	TagIDs      *[]int
}

// Create inserts a new expense, attaches the given tags, and hydrates the
// embedded category and tag list. A zero Date defaults to today server-side.
func (r *ExpenseRepository) Create(ctx context.Context, exp *models.Expense, tagIDs []int) error {
	var date *time.Time
	if !exp.Date.IsZero() {
		date = &exp.Date.Time
	}

	var rawDate time.Time
	err := r.db.QueryRow(ctx, `
		INSERT INTO expenses (amount, description, date, category_id)
		VALUES ($1, $2, COALESCE($3, CURRENT_DATE), $4)
		RETURNING id, date, created_at
	`, exp.Amount, exp.Description, date, exp.Category.ID).
		Scan(&exp.ID, &rawDate, &exp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", translate(err))
	}
	exp.Date = models.DateOf(rawDate)

	if err := r.setTags(ctx, exp.ID, tagIDs); err != nil {
		return err
	}

	hydrated, err := r.GetByID(ctx, exp.ID)
	if err != nil {
		return err
	}
	*exp = *hydrated
	return nil
}

// GetByID retrieves an expense with its embedded category and tags.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int) (*models.Expense, error) {
	var exp models.Expense
	var rawDate time.Time
	err := r.db.QueryRow(ctx, `
		SELECT e.id, e.amount, e.description, e.date, e.created_at,
		       c.id, c.name, c.created_at
		FROM expenses e
		JOIN categories c ON e.category_id = c.id
		WHERE e.id = $1
	`, id).Scan(
		&exp.ID, &exp.Amount, &exp.Description, &rawDate, &exp.CreatedAt,
		&exp.Category.ID, &exp.Category.Name, &exp.Category.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", translate(err))
	}
	exp.Date = models.DateOf(rawDate)

	tagsByExpense, err := r.tagsForExpenses(ctx, []int{exp.ID})
	if err != nil {
		return nil, err
	}
	exp.Tags = tagsByExpense[exp.ID]
	if exp.Tags == nil {
		exp.Tags = []models.Tag{}
	}
	return &exp, nil
}

// List retrieves expenses matching the filter, newest first (date desc, id
// desc), with embedded categories and batch-loaded tags.
func (r *ExpenseRepository) List(ctx context.Context, f Filter) ([]models.Expense, error) {
	query := `
		SELECT e.id, e.amount, e.description, e.date, e.created_at,
		       c.id, c.name, c.created_at
		FROM expenses e
		JOIN categories c ON e.category_id = c.id`

	var conds []string
	var args []any

	if f.TagID != nil {
		query += ` JOIN expense_tags et ON e.id = et.expense_id`
		args = append(args, *f.TagID)
		conds = append(conds, fmt.Sprintf("et.tag_id = $%d", len(args)))
	}
	if f.CategoryID != nil {
		args = append(args, *f.CategoryID)
		conds = append(conds, fmt.Sprintf("e.category_id = $%d", len(args)))
	}
	if f.DateFrom != nil {
		args = append(args, f.DateFrom.Time)
		conds = append(conds, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if f.DateTo != nil {
		args = append(args, f.DateTo.Time)
		conds = append(conds, fmt.Sprintf("e.date <= $%d", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY e.date DESC, e.id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	var ids []int
	for rows.Next() {
		var exp models.Expense
		var rawDate time.Time
		if err := rows.Scan(
			&exp.ID, &exp.Amount, &exp.Description, &rawDate, &exp.CreatedAt,
			&exp.Category.ID, &exp.Category.Name, &exp.Category.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		exp.Date = models.DateOf(rawDate)
		exp.Tags = []models.Tag{}
		expenses = append(expenses, exp)
		ids = append(ids, exp.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	tagsByExpense, err := r.tagsForExpenses(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range expenses {
		if tags, ok := tagsByExpense[expenses[i].ID]; ok {
			expenses[i].Tags = tags
		}
	}
	return expenses, nil
}

// ApplyUpdate modifies only the supplied fields of an expense and returns the
// hydrated result.
func (r *ExpenseRepository) ApplyUpdate(ctx context.Context, id int, upd Update) (*models.Expense, error) {
	var date *time.Time
	if upd.Date != nil {
		date = &upd.Date.Time
	}

	var updatedID int
	err := r.db.QueryRow(ctx, `
		UPDATE expenses SET
			amount = COALESCE($2, amount),
			description = COALESCE($3, description),
			date = COALESCE($4, date),
			category_id = COALESCE($5, category_id)
		WHERE id = $1
		RETURNING id
	`, id, upd.Amount, upd.Description, date, upd.CategoryID).Scan(&updatedID)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", translate(err))
	}

	if upd.TagIDs != nil {
		if err := r.setTags(ctx, id, *upd.TagIDs); err != nil {
			return nil, err
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes an expense by ID. Junction rows cascade.
func (r *ExpenseRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to delete expense: %w", ErrNotFound)
	}
	return nil
}

// SummaryByCategory aggregates totals per category over an optional inclusive
// date range, ordered by total descending. Categories without expenses in the
// range produce no row.
func (r *ExpenseRepository) SummaryByCategory(ctx context.Context, dateFrom, dateTo *models.Date) ([]models.SummaryRow, error) {
	query := `
		SELECT c.name, SUM(e.amount) AS total
		FROM expenses e
		JOIN categories c ON e.category_id = c.id`

	var conds []string
	var args []any
	if dateFrom != nil {
		args = append(args, dateFrom.Time)
		conds = append(conds, fmt.Sprintf("e.date >= $%d", len(args)))
	}
	if dateTo != nil {
		args = append(args, dateTo.Time)
		conds = append(conds, fmt.Sprintf("e.date <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` GROUP BY c.name ORDER BY SUM(e.amount) DESC, c.name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summary: %w", err)
	}
	defer rows.Close()

	summary := []models.SummaryRow{}
	for rows.Next() {
		var row models.SummaryRow
		if err := rows.Scan(&row.Category, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		summary = append(summary, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summary rows: %w", err)
	}
	return summary, nil
}

// setTags replaces all tags on an expense with the given tag IDs.
func (r *ExpenseRepository) setTags(ctx context.Context, expenseID int, tagIDs []int) error {
	_, err := r.db.Exec(ctx, `DELETE FROM expense_tags WHERE expense_id = $1`, expenseID)
	if err != nil {
		return fmt.Errorf("failed to clear expense tags: %w", err)
	}

	for _, tagID := range tagIDs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO expense_tags (expense_id, tag_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, expenseID, tagID)
		if err != nil {
			return fmt.Errorf("failed to add tag %d to expense %d: %w", tagID, expenseID, translate(err))
		}
	}
	return nil
}

// tagsForExpenses batch-loads tags for the given expense IDs, ordered by name.
func (r *ExpenseRepository) tagsForExpenses(ctx context.Context, expenseIDs []int) (map[int][]models.Tag, error) {
	result := make(map[int][]models.Tag)
	if len(expenseIDs) == 0 {
		return result, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT et.expense_id, t.id, t.name, t.created_at
		FROM tags t
		JOIN expense_tags et ON t.id = et.tag_id
		WHERE et.expense_id = ANY($1)
		ORDER BY t.name
	`, expenseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags by expense IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID int
		var tag models.Tag
		if err := rows.Scan(&expenseID, &tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		result[expenseID] = append(result[expenseID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tags: %w", err)
	}
	return result, nil
}
