package view

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kaasu-app/kaasu/internal/api"
	"github.com/kaasu-app/kaasu/internal/format"
	"github.com/kaasu-app/kaasu/internal/models"
)

// QuickAddForm holds the raw inline-entry inputs exactly as typed.
type QuickAddForm struct {
	Amount      string
	CategoryID  int
	TagIDs      []int
	Description string
	Date        string
}

// EditForm holds the inputs of the inline edit row.
type EditForm struct {
	Amount      string
	CategoryID  int
	TagIDs      []int
	Description string
	Date        string
}

// editState is Idle | Editing(id, form).
type editState struct {
	active bool
	id     int
	form   EditForm
}

// ExpensesController owns the expense page: the expense snapshot, the
// category/tag catalogs for the pickers, the quick-add and edit forms, the
// selection set, and the pending-delete confirmation. All reads and
// transitions go through one mutex; a generation counter makes sure a slow
// reload can never overwrite the result of a newer one.
type ExpensesController struct {
	client *api.Client

	mu  sync.Mutex
	gen uint64

	categories []models.Category
	tags       []models.Tag
	expenses   []models.Expense

	filterCategoryID *int
	filterTagID      *int

	quickAdd QuickAddForm
	edit     editState

	selectMode bool
	selected   map[int]struct{}

	confirm confirmState

	err error

	initOnce sync.Once
}

// NewExpensesController creates a controller bound to the given client.
func NewExpensesController(client *api.Client) *ExpensesController {
	return &ExpensesController{
		client:   client,
		selected: make(map[int]struct{}),
	}
}

// Load bootstraps the store once, then performs the initial reload. The
// bootstrap call is best-effort; a failure there does not block the page.
func (c *ExpensesController) Load(ctx context.Context) error {
	c.initOnce.Do(func() {
		_ = c.client.InitStore(ctx)
	})
	return c.Reload(ctx)
}

// Reload refetches the catalogs and the filtered expense list concurrently
// and atomically swaps the snapshot. A reload that was superseded while in
// flight is discarded.
func (c *ExpensesController) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	filter := api.ExpenseFilter{
		CategoryID: c.filterCategoryID,
		TagID:      c.filterTagID,
	}
	c.mu.Unlock()

	var (
		categories []models.Category
		tags       []models.Tag
		expenses   []models.Expense
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = c.client.ListCategories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = c.client.ListTags(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = c.client.ListExpenses(gctx, filter)
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
	c.categories = categories
	c.tags = tags
	c.expenses = expenses
	c.err = nil
	return nil
}

// Categories returns the category catalog for the pickers. The catalog is
// never narrowed by the active filters.
func (c *ExpensesController) Categories() []models.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.categories
}

// Tags returns the tag catalog for the pickers.
func (c *ExpensesController) Tags() []models.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tags
}

// Expenses returns the current filtered snapshot, newest first.
func (c *ExpensesController) Expenses() []models.Expense {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expenses
}

// Err returns the failure of the most recent operation, or nil.
func (c *ExpensesController) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SetCategoryFilter narrows the expense list to one category; nil clears the
// dimension. The tag filter is untouched.
func (c *ExpensesController) SetCategoryFilter(ctx context.Context, id *int) error {
	c.mu.Lock()
	c.filterCategoryID = id
	c.mu.Unlock()
	return c.Reload(ctx)
}

// SetTagFilter narrows the expense list to one tag; nil clears the dimension.
func (c *ExpensesController) SetTagFilter(ctx context.Context, id *int) error {
	c.mu.Lock()
	c.filterTagID = id
	c.mu.Unlock()
	return c.Reload(ctx)
}

// CategoryFilter returns the active category filter, nil when unset.
func (c *ExpensesController) CategoryFilter() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterCategoryID
}

// TagFilter returns the active tag filter, nil when unset.
func (c *ExpensesController) TagFilter() *int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filterTagID
}

// QuickAdd returns a copy of the current quick-add form.
func (c *ExpensesController) QuickAdd() QuickAddForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quickAdd
}

// SetQuickAdd replaces the quick-add form with edited input.
func (c *ExpensesController) SetQuickAdd(form QuickAddForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quickAdd = form
}

// SubmitQuickAdd validates the quick-add form, creates the expense, resets
// the form and reloads. Validation failures return before any request is
// made and leave the typed input in place.
func (c *ExpensesController) SubmitQuickAdd(ctx context.Context) error {
	c.mu.Lock()
	form := c.quickAdd
	c.mu.Unlock()

	req, err := buildCreateRequest(form.Amount, form.CategoryID, form.TagIDs, form.Description, form.Date)
	if err != nil {
		return err
	}

	if _, err := c.client.CreateExpense(ctx, *req); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.quickAdd = QuickAddForm{}
	c.mu.Unlock()
	return c.Reload(ctx)
}

// StartEdit opens the inline editor for the given expense, prefilled from
// the snapshot. Starting an edit while another row is open simply switches
// rows; the previous draft is discarded. Returns false when the id is not in
// the snapshot.
func (c *ExpensesController) StartEdit(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, exp := range c.expenses {
		if exp.ID != id {
			continue
		}
		tagIDs := make([]int, 0, len(exp.Tags))
		for _, tag := range exp.Tags {
			tagIDs = append(tagIDs, tag.ID)
		}
		c.edit = editState{
			active: true,
			id:     id,
			form: EditForm{
				Amount:      exp.Amount.String(),
				CategoryID:  exp.Category.ID,
				TagIDs:      tagIDs,
				Description: exp.Description,
				Date:        exp.Date.String(),
			},
		}
		return true
	}
	return false
}

// Editing reports whether an inline edit is open and for which expense.
func (c *ExpensesController) Editing() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit.id, c.edit.active
}

// EditDraft returns a copy of the open edit form; ok is false when idle.
func (c *ExpensesController) EditDraft() (EditForm, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit.form, c.edit.active
}

// SetEditDraft replaces the open edit form. Ignored when idle.
func (c *ExpensesController) SetEditDraft(form EditForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.edit.active {
		c.edit.form = form
	}
}

// CancelEdit discards the draft and returns to idle.
func (c *ExpensesController) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.edit = editState{}
}

// SaveEdit validates the draft, sends the update, closes the editor and
// reloads.
func (c *ExpensesController) SaveEdit(ctx context.Context) error {
	c.mu.Lock()
	edit := c.edit
	c.mu.Unlock()

	if !edit.active {
		return errors.New("no expense is being edited")
	}

	amount, err := parseAmount(edit.form.Amount)
	if err != nil {
		return err
	}
	if edit.form.CategoryID == 0 {
		return ErrCategoryRequired
	}

	description := strings.TrimSpace(edit.form.Description)
	tagIDs := edit.form.TagIDs
	if tagIDs == nil {
		tagIDs = []int{}
	}
	req := api.UpdateExpenseRequest{
		Amount:      &amount,
		CategoryID:  &edit.form.CategoryID,
		TagIDs:      &tagIDs,
		Description: &description,
	}
	if edit.form.Date != "" {
		d, err := models.ParseDate(edit.form.Date)
		if err != nil {
			return err
		}
		req.Date = &d
	}

	if _, err := c.client.UpdateExpense(ctx, edit.id, req); err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.edit = editState{}
	c.mu.Unlock()
	return c.Reload(ctx)
}

// SelectMode reports whether multi-select is active.
func (c *ExpensesController) SelectMode() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectMode
}

// ToggleSelectMode flips multi-select. Leaving the mode drops the selection.
func (c *ExpensesController) ToggleSelectMode() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selectMode = !c.selectMode
	if !c.selectMode {
		c.selected = make(map[int]struct{})
	}
}

// ToggleSelected flips one expense in or out of the selection. Ignored
// outside select mode.
func (c *ExpensesController) ToggleSelected(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selectMode {
		return
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
}

// IsSelected reports whether an expense is in the selection.
func (c *ExpensesController) IsSelected(id int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.selected[id]
	return ok
}

// SelectAll puts every expense of the current snapshot into the selection.
func (c *ExpensesController) SelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.selectMode {
		return
	}
	for _, exp := range c.expenses {
		c.selected[exp.ID] = struct{}{}
	}
}

// ClearSelection empties the selection and leaves select mode.
func (c *ExpensesController) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[int]struct{})
	c.selectMode = false
}

// SelectedIDs returns the selection in ascending id order.
func (c *ExpensesController) SelectedIDs() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedIDsLocked()
}

func (c *ExpensesController) selectedIDsLocked() []int {
	ids := make([]int, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SelectedCount returns the size of the selection.
func (c *ExpensesController) SelectedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.selected)
}

// RequestDelete stages a single-expense deletion pending confirmation.
func (c *ExpensesController) RequestDelete(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = confirmState{kind: confirmSingle, ids: []int{id}}
}

// RequestDeleteSelected stages the current selection for deletion. A no-op
// when nothing is selected.
func (c *ExpensesController) RequestDeleteSelected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.selected) == 0 {
		return
	}
	c.confirm = confirmState{kind: confirmBulk, ids: c.selectedIDsLocked()}
}

// ConfirmPending reports whether a deletion awaits confirmation, and for how
// many expenses.
func (c *ExpensesController) ConfirmPending() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirm.count(), c.confirm.pending()
}

// CancelDelete dismisses the confirmation without side effects.
func (c *ExpensesController) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = confirmState{}
}

// ConfirmDelete deletes every staged expense, then clears the confirmation,
// the selection and any open edit, and reloads. Individual failures are
// collected; the reload still runs so the snapshot reflects whatever was
// deleted.
func (c *ExpensesController) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	confirm := c.confirm
	c.mu.Unlock()

	if !confirm.pending() {
		return nil
	}

	var errs []error
	for _, id := range confirm.ids {
		if err := c.client.DeleteExpense(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	deleteErr := errors.Join(errs...)

	c.mu.Lock()
	c.confirm = confirmState{}
	c.selected = make(map[int]struct{})
	c.selectMode = false
	c.edit = editState{}
	c.mu.Unlock()

	reloadErr := c.Reload(ctx)
	if deleteErr != nil {
		// A successful resync must not mask delete failures.
		c.mu.Lock()
		c.err = deleteErr
		c.mu.Unlock()
		return deleteErr
	}
	return reloadErr
}

// TotalSpend sums the current snapshot.
func (c *ExpensesController) TotalSpend() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sumAmounts(c.expenses)
}

// TodaySpend sums the snapshot entries dated today.
func (c *ExpensesController) TodaySpend() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	today := models.Today()
	total := decimal.Zero
	for _, exp := range c.expenses {
		if exp.Date.Equal(today) {
			total = total.Add(exp.Amount)
		}
	}
	return total
}

// Breakdown returns per-category totals and percentages over the snapshot,
// largest first. Empty when nothing has been spent.
func (c *ExpensesController) Breakdown() []CategoryShare {
	c.mu.Lock()
	expenses := c.expenses
	c.mu.Unlock()

	return breakdown(expenses, func(name string, _ int) string {
		return format.ColorFor(name)
	})
}

func buildCreateRequest(amount string, categoryID int, tagIDs []int, description, date string) (*api.CreateExpenseRequest, error) {
	parsed, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	if categoryID == 0 {
		return nil, ErrCategoryRequired
	}

	req := api.CreateExpenseRequest{
		Amount:      parsed,
		CategoryID:  categoryID,
		TagIDs:      tagIDs,
		Description: strings.TrimSpace(description),
	}
	if req.TagIDs == nil {
		req.TagIDs = []int{}
	}
	if date != "" {
		d, err := models.ParseDate(date)
		if err != nil {
			return nil, err
		}
		req.Date = &d
	}
	return &req, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, ErrAmountRequired
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, ErrAmountRequired
	}
	return amount, nil
}
