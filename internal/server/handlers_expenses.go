package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kaasu-app/kaasu/internal/models"
	"github.com/kaasu-app/kaasu/internal/repository"
)

// createExpenseRequest accepts amounts as JSON strings or numbers; a missing
// date defaults server-side to today.
type createExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	CategoryID  int             `json:"category_id"`
	TagIDs      []int           `json:"tag_ids"`
	Description string          `json:"description"`
	Date        *models.Date    `json:"date"`
}

// updateExpenseRequest is a partial update: absent fields stay unchanged.
// An explicit empty tag_ids list clears all tags.
type updateExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	CategoryID  *int             `json:"category_id"`
	TagIDs      *[]int           `json:"tag_ids"`
	Description *string          `json:"description"`
	Date        *models.Date     `json:"date"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseExpenseFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.expenses.List(r.Context(), filter)
	if err != nil {
		respondRepoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Amount.IsNegative() {
		respondError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}
	if req.CategoryID == 0 {
		respondError(w, http.StatusBadRequest, "category_id is required")
		return
	}

	exp := models.Expense{
		Amount:      req.Amount,
		Description: req.Description,
		Category:    models.Category{ID: req.CategoryID},
	}
	if req.Date != nil {
		exp.Date = *req.Date
	}

	if err := s.expenses.Create(r.Context(), &exp, req.TagIDs); err != nil {
		// A foreign-key failure here means the category or a tag id does
		// not exist, which is a caller mistake rather than a conflict.
		if errors.Is(err, repository.ErrReferenced) {
			respondError(w, http.StatusBadRequest, "unknown category or tag id")
			return
		}
		respondRepoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, exp)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req updateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Amount != nil && req.Amount.IsNegative() {
		respondError(w, http.StatusBadRequest, "amount must not be negative")
		return
	}

	upd := repository.Update{
		Amount:      req.Amount,
		Description: req.Description,
		Date:        req.Date,
		CategoryID:  req.CategoryID,
		TagIDs:      req.TagIDs,
	}

	exp, err := s.expenses.ApplyUpdate(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrReferenced) {
			respondError(w, http.StatusBadRequest, "unknown category or tag id")
			return
		}
		respondRepoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, exp)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.expenses.Delete(r.Context(), id); err != nil {
		respondRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
