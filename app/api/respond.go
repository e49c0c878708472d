package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/esolangs/codeguessing/app/shared"
	"github.com/esolangs/codeguessing/app/shared/results"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			slog.Error("Failed to encode response", slog.Any("error", err))
		}
	}
}

// writeFailure maps a domain failure to an HTTP status.
func writeFailure(w http.ResponseWriter, failure error) {
	status := http.StatusBadRequest
	var (
		notFound  *shared.NotFoundError
		conflict  *shared.ConflictError
		forbidden *shared.ForbiddenError
	)
	switch {
	case errors.As(failure, &notFound):
		status = http.StatusNotFound
	case errors.As(failure, &conflict):
		status = http.StatusConflict
	case errors.As(failure, &forbidden):
		status = http.StatusForbidden
	}
	writeJSON(w, status, errorBody{Error: failure.Error()})
}

// respond renders an operation outcome: infrastructure errors become 500s,
// domain failures map to their status, success payloads marshal as-is.
func respond[S any](w http.ResponseWriter, result results.OperationResult[S, error], err error) {
	if err != nil {
		slog.Error("Operation failed", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	if result.IsFailure() {
		writeFailure(w, *result.Failure)
		return
	}
	writeJSON(w, http.StatusOK, result.Success)
}
