package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/fintech-transfers/internal/api/httpx"
	"github.com/baharkarakas/fintech-transfers/internal/api/validate"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/baharkarakas/fintech-transfers/internal/services"
)

// writeServiceError maps service sentinels to responses. Causes wrapped
// beneath the sentinel are logged, never sent.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fields validate.Errs
	switch {
	case errors.As(err, &fields):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request", fields)
	case errors.Is(err, services.ErrUnauthorized):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil)
	case errors.Is(err, services.ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request", nil)
	case errors.Is(err, services.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusBadRequest, "username_taken", "username already taken", nil)
	case errors.Is(err, services.ErrRecipientNotFound), errors.Is(err, services.ErrAccountNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "account not found", nil)
	case errors.Is(err, services.ErrSelfTransfer):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "self_transfer", "cannot transfer to yourself", nil)
	case errors.Is(err, services.ErrInsufficientFunds):
		httpx.WriteError(w, http.StatusPaymentRequired, "insufficient_funds", "insufficient funds", nil)
	case errors.Is(err, services.ErrTransferFailed):
		httpx.WriteError(w, http.StatusInternalServerError, "transfer_failed", "transfer failed", nil)
	default:
		logger.FromContext(r.Context(), slog.Default()).Error("request failed", "path", r.URL.Path, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

func writeBadBody(w http.ResponseWriter) {
	httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed request body", nil)
}
