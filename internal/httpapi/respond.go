package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jensholdgaard/cricket-auction/internal/auction"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *API) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.WarnContext(r.Context(), "failed to encode JSON response",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
}

func (a *API) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	a.respondJSON(w, r, status, errorResponse{Error: message})
}

// statusFor maps an engine error kind onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auction.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auction.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auction.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err. Engine errors carry their own message; anything else is
// logged and reported as a generic 500.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	var engineErr *auction.Error
	if errors.As(err, &engineErr) {
		a.respondError(w, r, statusFor(engineErr), engineErr.Msg)
		return
	}
	a.logger.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	a.respondError(w, r, http.StatusInternalServerError, "internal server error")
}
