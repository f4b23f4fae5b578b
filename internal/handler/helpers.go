package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/domain"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error     string           `json:"error"`
	ErrorKind domain.ErrorKind `json:"errorKind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var config *domain.ErrConfig

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &config):
		logger.Error("configuration error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		kind := domain.KindOf(err)
		logger.Error("claim request failed", zap.String("error_kind", string(kind)), zap.Error(err))
		writeJSON(w, kind.HTTPStatus(), errorResponse{Error: domain.UserMessage(kind), ErrorKind: kind})
	}
}
