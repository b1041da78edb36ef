// Package view holds the per-page state controllers that keep UI snapshots
// consistent with the server. Each controller owns a snapshot of the entities
// its page shows, the page's transient UI state, and a single reload
// operation that refetches and atomically replaces the snapshot after every
// mutation. Entity lists are never patched in place.
package view

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kaasu-app/kaasu/internal/models"
)

// Validation errors surfaced before any request is made.
var (
	ErrAmountRequired   = errors.New("a positive amount is required")
	ErrCategoryRequired = errors.New("a category is required")
	ErrNameRequired     = errors.New("name must not be empty")
)

// CategoryShare is one row of a per-category breakdown.
type CategoryShare struct {
	Name    string
	Total   decimal.Decimal
	Percent float64
	Color   string
}

// DailyPoint is one bar of the daily-spend series.
type DailyPoint struct {
	Date  models.Date
	Label string
	Total decimal.Decimal
}

// confirmKind tags the pending-delete state so invalid combinations are not
// representable.
type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmSingle
	confirmBulk
)

// confirmState is NoConfirm | ConfirmSingle(id) | ConfirmBulk(ids).
type confirmState struct {
	kind confirmKind
	ids  []int
}

func (c confirmState) pending() bool {
	return c.kind != confirmNone
}

func (c confirmState) count() int {
	return len(c.ids)
}

// breakdown computes per-category totals and shares from an expense
// snapshot. Rows are sorted by descending total (name ascending on ties).
// When the total is zero there is nothing to share out and the result is
// empty; no division happens.
func breakdown(expenses []models.Expense, colorFor func(name string, index int) string) []CategoryShare {
	totals := make(map[string]decimal.Decimal)
	for _, exp := range expenses {
		name := exp.Category.Name
		totals[name] = totals[name].Add(exp.Amount)
	}

	grand := decimal.Zero
	for _, total := range totals {
		grand = grand.Add(total)
	}
	if grand.IsZero() {
		return nil
	}

	shares := make([]CategoryShare, 0, len(totals))
	for name, total := range totals {
		shares = append(shares, CategoryShare{Name: name, Total: total})
	}
	sortShares(shares)

	hundred := decimal.NewFromInt(100)
	for i := range shares {
		shares[i].Percent = shares[i].Total.Mul(hundred).Div(grand).InexactFloat64()
		shares[i].Color = colorFor(shares[i].Name, i)
	}
	return shares
}

func sortShares(shares []CategoryShare) {
	sort.Slice(shares, func(i, j int) bool {
		if !shares[i].Total.Equal(shares[j].Total) {
			return shares[i].Total.GreaterThan(shares[j].Total)
		}
		return shares[i].Name < shares[j].Name
	})
}

func sumAmounts(expenses []models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, exp := range expenses {
		total = total.Add(exp.Amount)
	}
	return total
}
