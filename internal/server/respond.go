package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kaasu-app/kaasu/internal/logger"
	"github.com/kaasu-app/kaasu/internal/repository"
)

// errorBody mirrors the {"detail": ...} error shape clients already expect.
type errorBody struct {
	Detail string `json:"detail"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorBody{Detail: detail})
}

// respondRepoError maps repository sentinels onto HTTP statuses; anything
// unrecognized is a 500 with a generic body.
func respondRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrDuplicateName):
		respondError(w, http.StatusConflict, "name already exists")
	case errors.Is(err, repository.ErrReferenced):
		respondError(w, http.StatusConflict, "category still has expenses")
	default:
		logger.Log.Error().Err(err).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
