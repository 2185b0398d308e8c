package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// propagationResponse is returned when a retroactive edit was rolled back.
type propagationResponse struct {
	Error       string            `json:"error"`
	AccountCode model.AccountCode `json:"accountCode"`
	NotUpdated  []model.RecordRef `json:"notUpdated"`
	Updated     []model.RecordRef `json:"updated,omitempty"`
	Applied     any               `json:"applied,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decode reads a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *model.ErrValidation
	var notFound *model.ErrNotFound
	var propagation *model.PropagationError

	switch {
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: validation.Field})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &propagation):
		logger.Warn("propagation rolled back", zap.String("code", string(propagation.Code)))
		writeJSON(w, http.StatusConflict, propagationResponse{
			Error:       err.Error(),
			AccountCode: propagation.Code,
			NotUpdated:  propagation.NotUpdated,
			Updated:     propagation.Updated,
		})
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
