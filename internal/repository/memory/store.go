// Package memory is a process-local store with the same locking and
// atomicity guarantees as the Postgres store. It backs STORE_DRIVER=memory
// and the service tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrLockTimeout = errors.New("lock wait timeout")

var (
	_ repository.Users  = (*Store)(nil)
	_ repository.Ledger = (*Store)(nil)
)

type accountRow struct {
	lock chan struct{} // one slot; holding it is the row lock
	acc  models.Account
}

type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	byUsername    map[string]string
	byEmail       map[string]string
	accounts      map[string]*accountRow
	accountByUser map[string]string
	txns          map[string]models.Transaction
	txnOrder      []string

	lockTimeout time.Duration
}

type Option func(*Store)

// WithLockTimeout bounds every single lock wait, like Postgres lock_timeout.
func WithLockTimeout(d time.Duration) Option { return func(s *Store) { s.lockTimeout = d } }

func New(opts ...Option) *Store {
	s := &Store{
		users:         map[string]models.User{},
		byUsername:    map[string]string{},
		byEmail:       map[string]string{},
		accounts:      map[string]*accountRow{},
		accountByUser: map[string]string{},
		txns:          map[string]models.Transaction{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

// ----------------- Users -----------------

func (s *Store) CreateWithAccount(_ context.Context, u models.User, opening models.Account) (models.User, models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[u.Username]; ok {
		return models.User{}, models.Account{}, fmt.Errorf("username %q: %w", u.Username, repository.ErrConflict)
	}
	if _, ok := s.byEmail[u.Email]; ok {
		return models.User{}, models.Account{}, fmt.Errorf("email: %w", repository.ErrConflict)
	}

	now := time.Now().UTC()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = now
	if opening.ID == "" {
		opening.ID = uuid.NewString()
	}
	opening.UserID = u.ID
	opening.CreatedAt = now

	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	s.byEmail[u.Email] = u.ID
	s.accounts[opening.ID] = &accountRow{lock: make(chan struct{}, 1), acc: opening}
	s.accountByUser[u.ID] = opening.ID
	return u, opening, nil
}

func (s *Store) GetByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Store) GetByUsername(ctx context.Context, username string) (models.User, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// Accounts returns a committed snapshot of every account, ordered by id.
func (s *Store) Accounts() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.accounts))
	for _, row := range s.accounts {
		out = append(out, row.acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ----------------- Transaction log (read side) -----------------

func (s *Store) GetTransaction(_ context.Context, id string) (models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txns[id]
	if !ok {
		return models.Transaction{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Transaction
	skipped := 0
	for i := len(s.txnOrder) - 1; i >= 0 && len(out) < limit; i-- {
		t := s.txns[s.txnOrder[i]]
		if t.SenderAccountID != accountID && t.ReceiverAccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// TransactionReader adapts the store to repository.Transactions, whose
// GetByID would otherwise clash with the user directory's.
func (s *Store) TransactionReader() repository.Transactions { return txnReader{s} }

type txnReader struct{ s *Store }

func (r txnReader) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	return r.s.GetTransaction(ctx, id)
}

func (r txnReader) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	return r.s.ListByAccount(ctx, accountID, limit, offset)
}

// ----------------- Units -----------------

func (s *Store) WithTx(ctx context.Context, fn func(repository.LedgerTx) error) error {
	u := &unit{s: s, held: map[string]*models.Account{}, staged: map[string]*models.Transaction{}}
	defer u.release()

	if err := fn(u); err != nil {
		return err
	}
	return u.commit()
}

// unit works on private copies of the rows it locked; commit publishes them.
type unit struct {
	s      *Store
	rows   []*accountRow
	held   map[string]*models.Account
	staged map[string]*models.Transaction
	order  []string
}

func (u *unit) release() {
	for _, row := range u.rows {
		<-row.lock
	}
	u.rows = nil
}

func (u *unit) commit() error {
	for _, acc := range u.held {
		if acc.Balance.IsNegative() {
			return fmt.Errorf("account %s: balance would become negative", acc.ID)
		}
	}

	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, row := range u.rows {
		row.acc = *u.held[row.acc.ID]
	}
	for _, id := range u.order {
		u.s.txns[id] = *u.staged[id]
		u.s.txnOrder = append(u.s.txnOrder, id)
	}
	return nil
}

func (u *unit) lock(ctx context.Context, id string) (*models.Account, error) {
	if acc, ok := u.held[id]; ok {
		return acc, nil
	}
	u.s.mu.RLock()
	row, ok := u.s.accounts[id]
	u.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	var timeout <-chan time.Time
	if u.s.lockTimeout > 0 {
		t := time.NewTimer(u.s.lockTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case row.lock <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("lock account %s: %w", id, ctx.Err())
	case <-timeout:
		return nil, fmt.Errorf("lock account %s: %w", id, ErrLockTimeout)
	}

	u.s.mu.RLock()
	acc := row.acc
	u.s.mu.RUnlock()

	u.rows = append(u.rows, row)
	u.held[id] = &acc
	return &acc, nil
}

func (u *unit) AccountIDForUser(_ context.Context, userID string) (string, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	id, ok := u.s.accountByUser[userID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return id, nil
}

func (u *unit) LockAccountForUser(ctx context.Context, userID string) (*models.Account, error) {
	id, err := u.AccountIDForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.lock(ctx, id)
}

func (u *unit) LockAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	u.s.mu.RLock()
	userID, ok := u.s.byUsername[username]
	u.s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u.LockAccountForUser(ctx, userID)
}

func (u *unit) LockAccountsInOrder(ctx context.Context, ids ...string) (map[string]*models.Account, error) {
	out := make(map[string]*models.Account, len(ids))
	for _, id := range sortedUnique(ids) {
		acc, err := u.lock(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = acc
	}
	return out, nil
}

func (u *unit) ApplyTransfer(_ context.Context, sender, recipient *models.Account, amount decimal.Decimal) error {
	if sender.ID == recipient.ID {
		return errors.New("apply transfer: sender and recipient are the same account")
	}
	if !amount.IsPositive() {
		return errors.New("apply transfer: amount must be positive")
	}
	from, ok := u.held[sender.ID]
	if !ok {
		return fmt.Errorf("sender %s: %w", sender.ID, repository.ErrNotLocked)
	}
	to, ok := u.held[recipient.ID]
	if !ok {
		return fmt.Errorf("recipient %s: %w", recipient.ID, repository.ErrNotLocked)
	}

	from.Debit(amount)
	to.Credit(amount)
	if sender != from {
		*sender = *from
	}
	if recipient != to {
		*recipient = *to
	}
	return nil
}

func (u *unit) Record(_ context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := t.Validate(); err != nil {
		return models.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}
	u.s.mu.RLock()
	_, senderOK := u.s.accounts[t.SenderAccountID]
	_, receiverOK := u.s.accounts[t.ReceiverAccountID]
	u.s.mu.RUnlock()
	if !senderOK || !receiverOK {
		return models.Transaction{}, fmt.Errorf("record transaction: account %w", repository.ErrNotFound)
	}

	u.staged[t.ID] = &t
	u.order = append(u.order, t.ID)
	return t, nil
}

// UpdateStatus only reaches transactions recorded in this unit; committed
// rows are never revisited.
func (u *unit) UpdateStatus(_ context.Context, id string, status models.TransactionStatus) error {
	t, ok := u.staged[id]
	if !ok {
		return fmt.Errorf("transaction %s: %w", id, repository.ErrNotFound)
	}
	t.Status = status
	return nil
}

func sortedUnique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
