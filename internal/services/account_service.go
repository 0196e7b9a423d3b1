package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/metrics"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	repo "github.com/baharkarakas/fintech-transfers/internal/repository"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// TokenIssuer mints one-time transfer tokens.
type TokenIssuer interface {
	Issue(userID string, now time.Time) (auth.OneTimeToken, error)
}

type AccountService struct {
	ledger repo.Ledger
	txns   repo.Transactions
	issuer TokenIssuer
	now    func() time.Time
}

func NewAccountService(ledger repo.Ledger, txns repo.Transactions, issuer TokenIssuer) *AccountService {
	return &AccountService{ledger: ledger, txns: txns, issuer: issuer, now: time.Now}
}

// Balance reads the caller's account under its row lock, so it never sees
// half of a concurrent transfer.
func (s *AccountService) Balance(ctx context.Context, userID string) (models.Account, error) {
	var acc models.Account
	err := s.ledger.WithTx(ctx, func(tx repo.LedgerTx) error {
		a, err := tx.LockAccountForUser(ctx, userID)
		if err != nil {
			return err
		}
		acc = *a
		return nil
	})
	if errors.Is(err, repo.ErrNotFound) {
		return models.Account{}, ErrAccountNotFound
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("read balance: %w", err)
	}
	return acc, nil
}

// History lists the caller's transfers, newest first, sent and received.
func (s *AccountService) History(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	var accountID string
	err := s.ledger.WithTx(ctx, func(tx repo.LedgerTx) error {
		id, err := tx.AccountIDForUser(ctx, userID)
		accountID = id
		return err
	})
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve account: %w", err)
	}

	txns, err := s.txns.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txns == nil {
		txns = []models.Transaction{}
	}
	return txns, nil
}

func (s *AccountService) IssueTransferToken(ctx context.Context, userID string) (auth.OneTimeToken, error) {
	tok, err := s.issuer.Issue(userID, s.now())
	if err != nil {
		return auth.OneTimeToken{}, err
	}
	metrics.OneTimeTokensIssued.Inc()
	return tok, nil
}
