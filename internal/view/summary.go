package view

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kaasu-app/kaasu/internal/api"
	"github.com/kaasu-app/kaasu/internal/format"
	"github.com/kaasu-app/kaasu/internal/models"
)

// dailySeriesLimit caps the bar series at the most recent days.
const dailySeriesLimit = 14

// SummaryController owns the summary page: an optional date range, the
// per-category totals the server aggregates, and the matching raw expenses
// used for the daily series. Both fetches share the range and land in one
// atomic snapshot swap.
type SummaryController struct {
	client *api.Client

	mu  sync.Mutex
	gen uint64

	dateFrom *models.Date
	dateTo   *models.Date

	rows     []models.SummaryRow
	expenses []models.Expense

	err error

	initOnce sync.Once
}

// NewSummaryController creates a controller bound to the given client.
func NewSummaryController(client *api.Client) *SummaryController {
	return &SummaryController{client: client}
}

// Load bootstraps the store once, then performs the initial reload.
func (c *SummaryController) Load(ctx context.Context) error {
	c.initOnce.Do(func() {
		_ = c.client.InitStore(ctx)
	})
	return c.Reload(ctx)
}

// Reload refetches the summary rows and the range-filtered expenses
// concurrently. A reload superseded while in flight is discarded.
func (c *SummaryController) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	dateFrom, dateTo := c.dateFrom, c.dateTo
	c.mu.Unlock()

	var (
		rows     []models.SummaryRow
		expenses []models.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = c.client.GetSummary(gctx, api.DateRange{From: dateFrom, To: dateTo})
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = c.client.ListExpenses(gctx, api.ExpenseFilter{DateFrom: dateFrom, DateTo: dateTo})
		return err
	})
	err := g.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	if err != nil {
		c.err = err
		return err
	}
	c.rows = rows
	c.expenses = expenses
	c.err = nil
	return nil
}

// SetDateFrom sets the inclusive lower bound of the range; nil clears it.
func (c *SummaryController) SetDateFrom(ctx context.Context, d *models.Date) error {
	c.mu.Lock()
	c.dateFrom = d
	c.mu.Unlock()
	return c.Reload(ctx)
}

// SetDateTo sets the inclusive upper bound of the range; nil clears it.
func (c *SummaryController) SetDateTo(ctx context.Context, d *models.Date) error {
	c.mu.Lock()
	c.dateTo = d
	c.mu.Unlock()
	return c.Reload(ctx)
}

// DateRange returns the active bounds, either of which may be nil.
func (c *SummaryController) DateRange() (*models.Date, *models.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dateFrom, c.dateTo
}

// Rows returns the per-category totals, largest first, as the server
// ordered them.
func (c *SummaryController) Rows() []models.SummaryRow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Expenses returns the raw expenses matching the range.
func (c *SummaryController) Expenses() []models.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expenses
}

// Err returns the failure of the most recent operation, or nil.
func (c *SummaryController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// GrandTotal sums the summary rows.
func (c *SummaryController) GrandTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := decimal.Zero
	for _, row := range c.rows {
		total = total.Add(row.Total)
	}
	return total
}

// Shares returns the summary rows with percentages of the grand total and
// the canonical name-derived palette color per row. Percentages are zero
// when the grand total is zero; no division happens then.
func (c *SummaryController) Shares() []CategoryShare {
	c.mu.Lock()
	rows := c.rows
	c.mu.Unlock()

	grand := decimal.Zero
	for _, row := range rows {
		grand = grand.Add(row.Total)
	}

	hundred := decimal.NewFromInt(100)
	shares := make([]CategoryShare, 0, len(rows))
	for _, row := range rows {
		share := CategoryShare{
			Name:  row.Category,
			Total: row.Total,
			Color: format.ColorFor(row.Category),
		}
		if !grand.IsZero() {
			share.Percent = row.Total.Mul(hundred).Div(grand).InexactFloat64()
		}
		shares = append(shares, share)
	}
	return shares
}

// DailySeries groups the expense snapshot by date and returns the most
// recent days in ascending date order, at most dailySeriesLimit points.
// Labels are short MM-DD forms for axis rendering.
func (c *SummaryController) DailySeries() []DailyPoint {
	c.mu.Lock()
	expenses := c.expenses
	c.mu.Unlock()

	totals := make(map[string]decimal.Decimal)
	dates := make(map[string]models.Date)
	for _, exp := range expenses {
		key := exp.Date.String()
		totals[key] = totals[key].Add(exp.Amount)
		dates[key] = exp.Date
	}

	keys := make([]string, 0, len(totals))
	for key := range totals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if len(keys) > dailySeriesLimit {
		keys = keys[len(keys)-dailySeriesLimit:]
	}

	points := make([]DailyPoint, 0, len(keys))
	for _, key := range keys {
		d := dates[key]
		points = append(points, DailyPoint{
			Date:  d,
			Label: d.MonthDay(),
			Total: totals[key],
		})
	}
	return points
}
