// Package api is a typed client for the expense-tracker REST API. It is the
// sole boundary between view state and persistence: one network round trip
// per call, no retries, no caching, no in-flight deduplication.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaasu-app/kaasu/internal/models"
)

// Error is returned for any non-2xx response, carrying the raw body text.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Body)
}

// Client issues requests against a running API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an API client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ExpenseFilter narrows ListExpenses. Nil fields add no query parameter,
// meaning no constraint on that dimension.
type ExpenseFilter struct {
	CategoryID *int
	TagID      *int
	DateFrom   *models.Date
	DateTo     *models.Date
}

// DateRange narrows GetSummary. Each side is independently optional.
type DateRange struct {
	From *models.Date
	To   *models.Date
}

// CreateExpenseRequest is the body for CreateExpense. A nil Date lets the
// server default to today.
type CreateExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  int             `json:"category_id"`
	TagIDs      []int           `json:"tag_ids"`
	Description string          `json:"description"`
	Date        *models.Date    `json:"date,omitempty"`
}

// UpdateExpenseRequest is a partial update: only non-nil fields change.
// TagIDs pointing at an empty slice clears all tags.
type UpdateExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	CategoryID  *int             `json:"category_id,omitempty"`
	TagIDs      *[]int           `json:"tag_ids,omitempty"`
	Description *string          `json:"description,omitempty"`
	Date        *models.Date     `json:"date,omitempty"`
}

// InitStore asks the server to bootstrap its schema. Idempotent; callers
// treat failures as best-effort.
func (c *Client) InitStore(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/init-db", nil, nil, nil)
}

// ListCategories retrieves all categories.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory creates a category with the given name.
func (c *Client) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	var out models.Category
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/api/categories", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory deletes a category by id.
func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/categories/"+strconv.Itoa(id), nil, nil, nil)
}

// ListTags retrieves all tags.
func (c *Client) ListTags(ctx context.Context) ([]models.Tag, error) {
	var out []models.Tag
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTag creates a tag with the given name.
func (c *Client) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	var out models.Tag
	body := map[string]string{"name": name}
	if err := c.do(ctx, http.MethodPost, "/api/tags", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTag deletes a tag by id.
func (c *Client) DeleteTag(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/tags/"+strconv.Itoa(id), nil, nil, nil)
}

// ListExpenses retrieves expenses matching the filter, newest first.
func (c *Client) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]models.Expense, error) {
	query := url.Values{}
	if filter.CategoryID != nil {
		query.Set("category_id", strconv.Itoa(*filter.CategoryID))
	}
	if filter.TagID != nil {
		query.Set("tag_id", strconv.Itoa(*filter.TagID))
	}
	if filter.DateFrom != nil {
		query.Set("date_from", filter.DateFrom.String())
	}
	if filter.DateTo != nil {
		query.Set("date_to", filter.DateTo.String())
	}

	var out []models.Expense
	if err := c.do(ctx, http.MethodGet, "/api/expenses", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateExpense creates an expense.
func (c *Client) CreateExpense(ctx context.Context, req CreateExpenseRequest) (*models.Expense, error) {
	var out models.Expense
	if err := c.do(ctx, http.MethodPost, "/api/expenses", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateExpense applies a partial update to an expense.
func (c *Client) UpdateExpense(ctx context.Context, id int, req UpdateExpenseRequest) (*models.Expense, error) {
	var out models.Expense
	if err := c.do(ctx, http.MethodPut, "/api/expenses/"+strconv.Itoa(id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteExpense deletes an expense by id.
func (c *Client) DeleteExpense(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+strconv.Itoa(id), nil, nil, nil)
}

// GetSummary retrieves per-category totals for the optional date range,
// ordered by total descending.
func (c *Client) GetSummary(ctx context.Context, r DateRange) ([]models.SummaryRow, error) {
	query := url.Values{}
	if r.From != nil {
		query.Set("date_from", r.From.String())
	}
	if r.To != nil {
		query.Set("date_to", r.To.String())
	}

	var out []models.SummaryRow
	if err := c.do(ctx, http.MethodGet, "/api/summary", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// do issues a single request. A non-2xx status yields an *Error carrying the
// response body; a nil out discards any response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return &Error{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
