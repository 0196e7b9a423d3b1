package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/api/httpx"
	"github.com/baharkarakas/fintech-transfers/internal/middleware"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/services"
	"github.com/baharkarakas/fintech-transfers/internal/worker"
	"github.com/shopspring/decimal"
)

const OneTimeTokenHeader = "X-One-Time-Token"

type TransferHandler struct {
	Transfers *services.TransferService
	Pool      *worker.Pool
}

func NewTransferHandler(ts *services.TransferService, pool *worker.Pool) *TransferHandler {
	return &TransferHandler{Transfers: ts, Pool: pool}
}

// transferReq accepts the amount as a JSON string or number. Field rules are
// left to the orchestrator, which checks the one-time token before anything else.
type transferReq struct {
	RecipientUsername string          `json:"recipient_username"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description"`
}

type transferOutcome struct {
	res services.TransferResult
	err error
}

func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadBody(w)
		return
	}

	ctx := r.Context()
	done := make(chan transferOutcome, 1)
	err := h.Pool.TrySubmit(func() {
		res, err := h.Transfers.Execute(ctx, services.TransferRequest{
			RequestingUserID:  middleware.UserID(ctx),
			AuthToken:         r.Header.Get(OneTimeTokenHeader),
			RecipientUsername: req.RecipientUsername,
			Amount:            req.Amount,
			Description:       req.Description,
		})
		done <- transferOutcome{res: res, err: err}
	})
	if err != nil {
		w.Header().Set("Retry-After", "1")
		httpx.WriteError(w, http.StatusTooManyRequests, "busy", "too many transfers in flight, retry shortly", nil)
		return
	}

	var out transferOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		// the job still runs to completion; its context is already cancelled
		return
	}
	if out.err != nil {
		writeServiceError(w, r, out.err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"message":        "Transfer successful",
		"transaction_id": out.res.TransactionID,
		"amount":         models.FormatAmount(out.res.Amount),
		"currency":       out.res.Currency,
		"status":         string(out.res.Status),
		"created_at":     out.res.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}
