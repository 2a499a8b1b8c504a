package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ahmethakanbesel/exchange-rate-api/internal/apperror"
)

type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error,omitempty"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Success: true,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[any]{
		Success: false,
		Error:   message,
	})
}

const internalErrorMessage = "internal server error"

// writeAppError maps err to a status code. Errors without a code are treated
// as apperror.Internal. Server-side failures are logged and answered with a
// generic message.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperror.As(err)
	if !ok {
		ae = apperror.Wrap(apperror.Internal, internalErrorMessage, err)
	}

	status := ae.HTTPStatus()
	if status < http.StatusInternalServerError {
		writeError(w, status, ae.Message())
		return
	}

	slog.Error("request failed", //nolint:gosec // structured logging
		"path", r.URL.Path,
		"code", ae.Code(),
		"requestID", r.Context().Value(requestIDKey),
		"error", err,
	)
	writeError(w, status, internalErrorMessage)
}
