package models

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxnPending   TransactionStatus = "pending"
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

const MaxDescriptionLen = 255

type Transaction struct {
	ID                string            `json:"id"`
	SenderAccountID   string            `json:"sender_account_id"`
	ReceiverAccountID string            `json:"receiver_account_id"`
	Amount            decimal.Decimal   `json:"amount"`
	Currency          string            `json:"currency"`
	Description       *string           `json:"description,omitempty"`
	Status            TransactionStatus `json:"status"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (t Transaction) Validate() error {
	if t.SenderAccountID == "" || t.ReceiverAccountID == "" {
		return errors.New("sender and receiver accounts are required")
	}
	if t.SenderAccountID == t.ReceiverAccountID {
		return errors.New("sender and receiver must differ")
	}
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if len(t.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	if t.Description != nil && utf8.RuneCountInString(*t.Description) > MaxDescriptionLen {
		return errors.New("description too long")
	}
	switch t.Status {
	case TxnPending, TxnCompleted, TxnFailed:
	default:
		return errors.New("unknown status")
	}
	return nil
}
