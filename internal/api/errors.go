package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mkravets/inventar/internal/model"
)

// writeError maps a domain error to an HTTP status and writes a JSON
// error body. Unrecognized errors become a generic 500; the detail is
// logged server-side only.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		jsonError(w, status, "server error")
		return
	}
	jsonError(w, status, err.Error())
}

// writeTextError is writeError for the plain-text photo endpoints.
func writeTextError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		textError(w, status, "server error")
		return
	}
	textError(w, status, err.Error())
}

// statusFor maps domain sentinel errors to status codes. Uses errors.Is
// so wrapped sentinels are matched.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
