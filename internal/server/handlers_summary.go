package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kaasu-app/kaasu/internal/models"
	"github.com/kaasu-app/kaasu/internal/repository"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	dateFrom, err := parseDateParam(r, "date_from")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	dateTo, err := parseDateParam(r, "date_to")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := s.expenses.SummaryByCategory(r.Context(), dateFrom, dateTo)
	if err != nil {
		respondRepoError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

// parseExpenseFilter reads the optional list-query parameters. An absent
// parameter leaves its filter dimension unconstrained.
func parseExpenseFilter(r *http.Request) (repository.Filter, error) {
	var f repository.Filter

	var err error
	if f.CategoryID, err = parseIntParam(r, "category_id"); err != nil {
		return f, err
	}
	if f.TagID, err = parseIntParam(r, "tag_id"); err != nil {
		return f, err
	}
	if f.DateFrom, err = parseDateParam(r, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDateParam(r, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}

func parseIntParam(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return &v, nil
}

func parseDateParam(r *http.Request, name string) (*models.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return &d, nil
}
