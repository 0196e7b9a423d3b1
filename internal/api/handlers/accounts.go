package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/api/httpx"
	"github.com/baharkarakas/fintech-transfers/internal/api/validate"
	"github.com/baharkarakas/fintech-transfers/internal/middleware"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/services"
)

type AccountHandler struct {
	Accounts *services.AccountService
}

func NewAccountHandler(as *services.AccountService) *AccountHandler {
	return &AccountHandler{Accounts: as}
}

func (h *AccountHandler) OneTimeToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.Accounts.IssueTransferToken(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"one_time_token": tok.Value,
		"expires_at":     tok.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	acc, err := h.Accounts.Balance(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"balance":  models.FormatAmount(acc.Balance),
		"currency": acc.Currency,
	})
}

type txnView struct {
	ID                string  `json:"id"`
	SenderAccountID   string  `json:"sender_account_id"`
	ReceiverAccountID string  `json:"receiver_account_id"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	Description       *string `json:"description,omitempty"`
	Status            string  `json:"status"`
	CreatedAt         string  `json:"created_at"`
}

func viewTxn(t models.Transaction) txnView {
	return txnView{
		ID:                t.ID,
		SenderAccountID:   t.SenderAccountID,
		ReceiverAccountID: t.ReceiverAccountID,
		Amount:            models.FormatAmount(t.Amount),
		Currency:          t.Currency,
		Description:       t.Description,
		Status:            string(t.Status),
		CreatedAt:         t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var bad validate.Errs
	limit, ferr := validate.QueryInt("limit", q.Get("limit"), services.DefaultHistoryLimit)
	if ferr != nil {
		bad = append(bad, *ferr)
	}
	offset, ferr := validate.QueryInt("offset", q.Get("offset"), 0)
	if ferr != nil {
		bad = append(bad, *ferr)
	}
	if len(bad) > 0 {
		writeServiceError(w, r, bad)
		return
	}

	txns, err := h.Accounts.History(r.Context(), middleware.UserID(r.Context()), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]txnView, 0, len(txns))
	for _, t := range txns {
		out = append(out, viewTxn(t))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": out,
		"limit":        limit,
		"offset":       offset,
	})
}
