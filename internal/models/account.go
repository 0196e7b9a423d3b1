package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"created_at"`
}

// Debit and Credit only touch the in-memory value; the ledger store
// persists the result inside the enclosing unit.
func (a *Account) Debit(amount decimal.Decimal)  { a.Balance = a.Balance.Sub(amount) }
func (a *Account) Credit(amount decimal.Decimal) { a.Balance = a.Balance.Add(amount) }

func (a Account) CanCover(amount decimal.Decimal) bool { return a.Balance.GreaterThanOrEqual(amount) }
