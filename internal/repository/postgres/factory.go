package postgres

import (
	"errors"
	"time"

	repo "github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users        repo.Users
	Ledger       repo.Ledger
	Transactions repo.Transactions
}

func NewRepositories(pool *pgxpool.Pool, lockTimeout time.Duration) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		Ledger:       &ledgerRepo{pool: pool, lockTimeout: lockTimeout},
		Transactions: &transactionsRepo{pool},
	}
}

const uniqueViolation = "23505"

// mapErr turns driver errors the callers branch on into repository sentinels.
func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repo.ErrConflict
	}
	return err
}
