package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wudi/pdfsnap/ledger"
	"github.com/wudi/pdfsnap/observability"
	"github.com/wudi/pdfsnap/overlay"
	"github.com/wudi/pdfsnap/pool"
	"github.com/wudi/pdfsnap/store"
)

type message struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// statusFor maps a pipeline error to the HTTP status reported to callers.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, overlay.ErrInvalidVariable), errors.Is(err, overlay.ErrTemplateLoad),
		errors.Is(err, store.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, overlay.ErrPageNotFound), errors.Is(err, overlay.ErrFontFit),
		errors.Is(err, overlay.ErrImageDecode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, overlay.ErrNetwork):
		return http.StatusBadGateway
	case errors.Is(err, store.ErrNotFound), errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, errStorageDisabled):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, pool.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.cfg.Logger.Error("request failed", observability.Int("status", status), observability.Error("error", err))
	} else {
		s.cfg.Logger.Debug("request rejected", observability.Int("status", status), observability.Error("error", err))
	}
	writeJSON(w, status, message{Type: "error", Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
