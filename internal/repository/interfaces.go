package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	// ErrNotLocked is returned when a mutation targets an account the unit has not locked.
	ErrNotLocked = errors.New("account not locked by this unit")
)

// Users is the user/account directory.
type Users interface {
	// CreateWithAccount inserts the user and its single account atomically.
	// A duplicate username or email yields ErrConflict.
	CreateWithAccount(ctx context.Context, u models.User, opening models.Account) (models.User, models.Account, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
}

// Ledger runs atomic units against account balances and the transaction log.
type Ledger interface {
	// WithTx runs fn as one unit. If fn fails, panics or the commit fails,
	// nothing fn did is visible afterwards.
	WithTx(ctx context.Context, fn func(LedgerTx) error) error
	Ping(ctx context.Context) error
}

// LedgerTx is the view of the store inside one unit.
type LedgerTx interface {
	AccountLocker
	TransactionLog
}

// AccountLocker owns balance mutation. Locks are exclusive and held until the unit ends.
type AccountLocker interface {
	AccountIDForUser(ctx context.Context, userID string) (string, error)
	LockAccountForUser(ctx context.Context, userID string) (*models.Account, error)
	LockAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	// LockAccountsInOrder locks the given account ids in ascending order,
	// whatever order the caller passed them in.
	LockAccountsInOrder(ctx context.Context, ids ...string) (map[string]*models.Account, error)
	// ApplyTransfer debits sender and credits recipient. Both must already be locked.
	ApplyTransfer(ctx context.Context, sender, recipient *models.Account, amount decimal.Decimal) error
}

// TransactionLog is the append side of the transaction log.
type TransactionLog interface {
	Record(ctx context.Context, t models.Transaction) (models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error
}

// Transactions is the read side of the transaction log.
type Transactions interface {
	GetByID(ctx context.Context, id string) (models.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error)
}

// Nonces records consumed one-time token ids.
type Nonces interface {
	// Consume marks id as used for ttl. It reports false if id was already used.
	Consume(ctx context.Context, id string, ttl time.Duration) (bool, error)
}
