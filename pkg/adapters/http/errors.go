package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/concierge/pkg/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domain.ErrThreadNotFound, http.StatusNotFound, "thread_not_found"},
	{domain.ErrNoPendingConfirmation, http.StatusConflict, "no_pending_confirmation"},
	{domain.ErrStaleConfirmation, http.StatusConflict, "stale_confirmation"},
	{domain.ErrUnauthorizedAccess, http.StatusForbidden, "unauthorized"},
	{domain.ErrExternalService, http.StatusBadGateway, "external_service"},
	{domain.ErrNoResponse, http.StatusInternalServerError, "no_response"},
	{domain.ErrStepLimit, http.StatusInternalServerError, "step_limit"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// StatusFor maps an error onto an HTTP status and a stable error code.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "err", err)
	} else {
		logger.Debug("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: domain.UserMessage(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
