package view

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kaasu-app/kaasu/internal/api"
	"github.com/kaasu-app/kaasu/internal/models"
)

// fakeBackend is an in-memory stand-in for the REST server, close enough in
// wire shape for controller tests: same routes, same JSON, same ordering.
type fakeBackend struct {
	mu         sync.Mutex
	categories []models.Category
	tags       []models.Tag
	expenses   []models.Expense
	nextID     int

	initCalls int
	failAll   bool

	// listGate, when set, holds the next expense-list request: arrived is
	// closed once the request is in flight, release lets it proceed. Used
	// to order overlapping reloads.
	listGate *listGate
}

type listGate struct {
	arrived chan struct{}
	release chan struct{}
}

func newListGate() *listGate {
	return &listGate{arrived: make(chan struct{}), release: make(chan struct{})}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 1}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/init-db", f.handleInit)
	mux.HandleFunc("GET /api/categories", f.handleListCategories)
	mux.HandleFunc("POST /api/categories", f.handleCreateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", f.handleDeleteCategory)
	mux.HandleFunc("GET /api/tags", f.handleListTags)
	mux.HandleFunc("POST /api/tags", f.handleCreateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", f.handleDeleteTag)
	mux.HandleFunc("GET /api/expenses", f.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", f.handleCreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", f.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", f.handleDeleteExpense)
	mux.HandleFunc("GET /api/summary", f.handleSummary)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		failing := f.failAll
		f.mu.Unlock()
		if failing {
			http.Error(w, `{"detail":"backend down"}`, http.StatusInternalServerError)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

// newTestClient spins up a fake backend and a client pointed at it.
func newTestClient(t *testing.T) (*api.Client, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	return api.New(srv.URL, 5*time.Second), backend
}

func (f *fakeBackend) addCategory(name string) models.Category {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat := models.Category{ID: f.nextID, Name: name}
	f.nextID++
	f.categories = append(f.categories, cat)
	return cat
}

func (f *fakeBackend) addTag(name string) models.Tag {
	f.mu.Lock()
	defer f.mu.Unlock()
	tag := models.Tag{ID: f.nextID, Name: name}
	f.nextID++
	f.tags = append(f.tags, tag)
	return tag
}

func (f *fakeBackend) addExpense(amount string, cat models.Category, date models.Date, tags ...models.Tag) models.Expense {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tags == nil {
		tags = []models.Tag{}
	}
	exp := models.Expense{
		ID:       f.nextID,
		Amount:   decimal.RequireFromString(amount),
		Date:     date,
		Category: cat,
		Tags:     tags,
	}
	f.nextID++
	f.expenses = append(f.expenses, exp)
	return exp
}

func (f *fakeBackend) setFailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = fail
}

func (f *fakeBackend) expenseByID(id int) (models.Expense, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, exp := range f.expenses {
		if exp.ID == id {
			return exp, true
		}
	}
	return models.Expense{}, false
}

func (f *fakeBackend) handleInit(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.initCalls++
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeBackend) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := append([]models.Category{}, f.categories...)
	f.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	writeJSON(w, http.StatusOK, items)
}

func (f *fakeBackend) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	for _, cat := range f.categories {
		if cat.Name == req.Name {
			f.mu.Unlock()
			http.Error(w, `{"detail":"category already exists"}`, http.StatusConflict)
			return
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.addCategory(req.Name))
}

func (f *fakeBackend) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, exp := range f.expenses {
		if exp.Category.ID == id {
			http.Error(w, `{"detail":"category still has expenses"}`, http.StatusConflict)
			return
		}
	}
	for i, cat := range f.categories {
		if cat.ID == id {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"detail":"category not found"}`, http.StatusNotFound)
}

func (f *fakeBackend) handleListTags(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	items := append([]models.Tag{}, f.tags...)
	f.mu.Unlock()
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	writeJSON(w, http.StatusOK, items)
}

func (f *fakeBackend) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	for _, tag := range f.tags {
		if tag.Name == req.Name {
			f.mu.Unlock()
			http.Error(w, `{"detail":"tag already exists"}`, http.StatusConflict)
			return
		}
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.addTag(req.Name))
}

func (f *fakeBackend) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, tag := range f.tags {
		if tag.ID == id {
			f.tags = append(f.tags[:i], f.tags[i+1:]...)
			for j := range f.expenses {
				kept := f.expenses[j].Tags[:0]
				for _, et := range f.expenses[j].Tags {
					if et.ID != id {
						kept = append(kept, et)
					}
				}
				f.expenses[j].Tags = kept
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"detail":"tag not found"}`, http.StatusNotFound)
}

func (f *fakeBackend) matchExpenses(r *http.Request) []models.Expense {
	query := r.URL.Query()
	var matched []models.Expense

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, exp := range f.expenses {
		if raw := query.Get("category_id"); raw != "" {
			if id, _ := strconv.Atoi(raw); exp.Category.ID != id {
				continue
			}
		}
		if raw := query.Get("tag_id"); raw != "" {
			id, _ := strconv.Atoi(raw)
			found := false
			for _, tag := range exp.Tags {
				if tag.ID == id {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if raw := query.Get("date_from"); raw != "" {
			from, _ := models.ParseDate(raw)
			if exp.Date.Before(from) {
				continue
			}
		}
		if raw := query.Get("date_to"); raw != "" {
			to, _ := models.ParseDate(raw)
			if to.Before(exp.Date) {
				continue
			}
		}
		matched = append(matched, exp)
	}
	return matched
}

func (f *fakeBackend) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	gate := f.listGate
	f.listGate = nil
	f.mu.Unlock()
	if gate != nil {
		close(gate.arrived)
		<-gate.release
	}

	matched := f.matchExpenses(r)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date) {
			return matched[j].Date.Before(matched[i].Date)
		}
		return matched[i].ID > matched[j].ID
	})
	if matched == nil {
		matched = []models.Expense{}
	}
	writeJSON(w, http.StatusOK, matched)
}

func (f *fakeBackend) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		CategoryID  int             `json:"category_id"`
		TagIDs      []int           `json:"tag_ids"`
		Description string          `json:"description"`
		Date        *models.Date    `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var cat *models.Category
	for i := range f.categories {
		if f.categories[i].ID == req.CategoryID {
			cat = &f.categories[i]
			break
		}
	}
	if cat == nil {
		http.Error(w, `{"detail":"unknown category or tag id"}`, http.StatusBadRequest)
		return
	}
	tags := []models.Tag{}
	for _, id := range req.TagIDs {
		found := false
		for _, tag := range f.tags {
			if tag.ID == id {
				tags = append(tags, tag)
				found = true
				break
			}
		}
		if !found {
			http.Error(w, `{"detail":"unknown category or tag id"}`, http.StatusBadRequest)
			return
		}
	}

	date := models.Today()
	if req.Date != nil {
		date = *req.Date
	}
	exp := models.Expense{
		ID:          f.nextID,
		Amount:      req.Amount,
		Description: req.Description,
		Date:        date,
		Category:    *cat,
		Tags:        tags,
	}
	f.nextID++
	f.expenses = append(f.expenses, exp)
	writeJSON(w, http.StatusOK, exp)
}

func (f *fakeBackend) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	var req struct {
		Amount      *decimal.Decimal `json:"amount"`
		CategoryID  *int             `json:"category_id"`
		TagIDs      *[]int           `json:"tag_ids"`
		Description *string          `json:"description"`
		Date        *models.Date     `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.expenses {
		if f.expenses[i].ID != id {
			continue
		}
		if req.Amount != nil {
			f.expenses[i].Amount = *req.Amount
		}
		if req.Description != nil {
			f.expenses[i].Description = *req.Description
		}
		if req.Date != nil {
			f.expenses[i].Date = *req.Date
		}
		if req.CategoryID != nil {
			for _, cat := range f.categories {
				if cat.ID == *req.CategoryID {
					f.expenses[i].Category = cat
				}
			}
		}
		if req.TagIDs != nil {
			tags := []models.Tag{}
			for _, tagID := range *req.TagIDs {
				for _, tag := range f.tags {
					if tag.ID == tagID {
						tags = append(tags, tag)
					}
				}
			}
			f.expenses[i].Tags = tags
		}
		writeJSON(w, http.StatusOK, f.expenses[i])
		return
	}
	http.Error(w, `{"detail":"expense not found"}`, http.StatusNotFound)
}

func (f *fakeBackend) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, exp := range f.expenses {
		if exp.ID == id {
			f.expenses = append(f.expenses[:i], f.expenses[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	http.Error(w, `{"detail":"expense not found"}`, http.StatusNotFound)
}

func (f *fakeBackend) handleSummary(w http.ResponseWriter, r *http.Request) {
	matched := f.matchExpenses(r)

	totals := make(map[string]decimal.Decimal)
	for _, exp := range matched {
		totals[exp.Category.Name] = totals[exp.Category.Name].Add(exp.Amount)
	}
	rows := []models.SummaryRow{}
	for name, total := range totals {
		rows = append(rows, models.SummaryRow{Category: name, Total: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Total.Equal(rows[j].Total) {
			return rows[i].Total.GreaterThan(rows[j].Total)
		}
		return rows[i].Category < rows[j].Category
	})
	writeJSON(w, http.StatusOK, rows)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
