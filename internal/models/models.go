// Package models defines the domain entities for the expense tracker.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// MaxTagNameLength is the maximum allowed length for tag names.
const MaxTagNameLength = 30

// Category represents an expense category.
type Category struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}

// Tag represents an expense tag/label.
type Tag struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}

// Expense represents a single expense entry. Amounts cross the wire as
// decimal strings; decimal.Decimal marshals that way by default.
type Expense struct {
	ID          int             `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        Date            `json:"date"`
	Category    Category        `json:"category"`
	Tags        []Tag           `json:"tags"`
	CreatedAt   time.Time       `json:"-"`
}

// SummaryRow is a server-computed (category, total) pair for a date range.
type SummaryRow struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}
