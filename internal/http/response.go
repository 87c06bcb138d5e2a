package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"coleta/internal/core"
)

// errorBody is the JSON error shape of the API: a human-readable message the
// client shows verbatim, plus per-field details for validation failures.
type errorBody struct {
	Error   string            `json:"error"`
	Details []core.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, details []core.FieldError) {
	writeJSON(w, status, errorBody{Error: message, Details: details})
}

// writeOutcome maps the error taxonomy to status codes: validation and stale
// dates to 400, duplicates to 409, missing ids to 404 and anything else to a
// generic 500 with the detail kept server-side.
func writeOutcome(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var verr *core.ValidationError
	var derr *core.DuplicateError
	var werr *core.DateWriteError

	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "Dados inválidos", verr.Fields)
	case errors.As(err, &werr):
		writeError(w, http.StatusBadRequest, werr.Error(), nil)
	case errors.As(err, &derr):
		writeError(w, http.StatusConflict, derr.Error(), nil)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Coleta não encontrada", nil)
	default:
		slog.ErrorContext(r.Context(), logMsg, "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "Erro interno no servidor", nil)
	}
}
