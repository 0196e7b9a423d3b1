package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ledgerRepo struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

func (r *ledgerRepo) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

// WithTx runs fn in one READ COMMITTED transaction. Row locks taken with
// FOR UPDATE serialize writers, so a stricter isolation level would only
// turn lock waits into serialization failures.
func (r *ledgerRepo) WithTx(ctx context.Context, fn func(repository.LedgerTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
	}()

	if r.lockTimeout > 0 {
		// SET does not take bind parameters; the value is an integer we format ourselves.
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(newLedgerTx(tx)); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx       pgx.Tx
	held     map[string]*models.Account
	recorded map[string]struct{}
}

func newLedgerTx(tx pgx.Tx) *ledgerTx {
	return &ledgerTx{tx: tx, held: map[string]*models.Account{}, recorded: map[string]struct{}{}}
}

const accountColumns = `a.id, a.user_id, a.balance, a.currency, a.created_at`

// lockRow runs a FOR UPDATE query returning one account. A row this unit
// already holds is returned as held, so in-flight changes are not lost.
func (l *ledgerTx) lockRow(ctx context.Context, query string, arg any) (*models.Account, error) {
	var a models.Account
	err := l.tx.QueryRow(ctx, query, arg).Scan(&a.ID, &a.UserID, &a.Balance, &a.Currency, &a.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if held, ok := l.held[a.ID]; ok {
		return held, nil
	}
	l.held[a.ID] = &a
	return &a, nil
}

func (l *ledgerTx) AccountIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	if err := l.tx.QueryRow(ctx, `SELECT id FROM accounts WHERE user_id=$1`, userID).Scan(&id); err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (l *ledgerTx) LockAccountForUser(ctx context.Context, userID string) (*models.Account, error) {
	return l.lockRow(ctx,
		`SELECT `+accountColumns+` FROM accounts a WHERE a.user_id=$1 FOR UPDATE`, userID)
}

func (l *ledgerTx) LockAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return l.lockRow(ctx,
		`SELECT `+accountColumns+`
		   FROM accounts a
		   JOIN users u ON u.id = a.user_id
		  WHERE u.username=$1
		    FOR UPDATE OF a`, username)
}

// LockAccountsInOrder issues one FOR UPDATE per id in ascending order.
// A single `WHERE id = ANY($1) ORDER BY id FOR UPDATE` does not promise
// the order in which rows are locked.
func (l *ledgerTx) LockAccountsInOrder(ctx context.Context, ids ...string) (map[string]*models.Account, error) {
	sorted := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			sorted = append(sorted, id)
		}
	}
	sort.Strings(sorted)

	out := make(map[string]*models.Account, len(sorted))
	for _, id := range sorted {
		if _, err := uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("account %q: %w", id, repository.ErrNotFound)
		}
		acc, err := l.lockRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id=$1 FOR UPDATE`, id)
		if err != nil {
			return nil, fmt.Errorf("lock account %s: %w", id, err)
		}
		out[id] = acc
	}
	return out, nil
}

func (l *ledgerTx) ApplyTransfer(ctx context.Context, sender, recipient *models.Account, amount decimal.Decimal) error {
	if sender.ID == recipient.ID {
		return errors.New("apply transfer: sender and recipient are the same account")
	}
	if !amount.IsPositive() {
		return errors.New("apply transfer: amount must be positive")
	}
	if l.held[sender.ID] != sender {
		return fmt.Errorf("sender %s: %w", sender.ID, repository.ErrNotLocked)
	}
	if l.held[recipient.ID] != recipient {
		return fmt.Errorf("recipient %s: %w", recipient.ID, repository.ErrNotLocked)
	}

	sender.Debit(amount)
	recipient.Credit(amount)

	b := &pgx.Batch{}
	b.Queue(`UPDATE accounts SET balance=$2 WHERE id=$1`, sender.ID, sender.Balance)
	b.Queue(`UPDATE accounts SET balance=$2 WHERE id=$1`, recipient.ID, recipient.Balance)
	br := l.tx.SendBatch(ctx, b)
	for _, id := range []string{sender.ID, recipient.ID} {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return fmt.Errorf("update balance %s: %w", id, err)
		}
		if tag.RowsAffected() != 1 {
			_ = br.Close()
			return fmt.Errorf("update balance %s: %w", id, repository.ErrNotFound)
		}
	}
	return br.Close()
}

func (l *ledgerTx) Record(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := t.Validate(); err != nil {
		return models.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}
	err := l.tx.QueryRow(ctx,
		`INSERT INTO transactions(id, sender_account_id, receiver_account_id, amount, currency, description, status)
		 VALUES($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at`,
		t.ID, t.SenderAccountID, t.ReceiverAccountID, t.Amount, t.Currency, t.Description, t.Status,
	).Scan(&t.CreatedAt)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("record transaction: %w", mapErr(err))
	}
	l.recorded[t.ID] = struct{}{}
	return t, nil
}

func (l *ledgerTx) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) error {
	if _, ok := l.recorded[id]; !ok {
		return fmt.Errorf("transaction %s: %w", id, repository.ErrNotFound)
	}
	_, err := l.tx.Exec(ctx, `UPDATE transactions SET status=$2 WHERE id=$1`, id, status)
	return err
}
