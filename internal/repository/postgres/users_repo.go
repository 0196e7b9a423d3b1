// internal/repository/postgres/users_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type usersRepo struct{ pool *pgxpool.Pool }

const userColumns = `id, username, email, COALESCE(full_name, ''), password_hash, kyc_status, created_at`

func (r *usersRepo) CreateWithAccount(ctx context.Context, u models.User, opening models.Account) (models.User, models.Account, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if opening.ID == "" {
		opening.ID = uuid.NewString()
	}
	opening.UserID = u.ID

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO users(id, username, email, full_name, password_hash, kyc_status)
			 VALUES($1,$2,$3,NULLIF($4,''),$5,$6)
			 RETURNING created_at`,
			u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.KYCStatus,
		).Scan(&u.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert user: %w", mapErr(err))
		}
		err = tx.QueryRow(ctx,
			`INSERT INTO accounts(id, user_id, balance, currency)
			 VALUES($1,$2,$3,$4)
			 RETURNING created_at`,
			opening.ID, opening.UserID, opening.Balance, opening.Currency,
		).Scan(&opening.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert account: %w", mapErr(err))
		}
		return nil
	})
	if err != nil {
		return models.User{}, models.Account{}, err
	}
	return u, opening, nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (models.User, error) {
	return r.getBy(ctx, "username", username)
}

// column is always one of the constants above, never user input.
func (r *usersRepo) getBy(ctx context.Context, column, value string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+`=$1`, value,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.KYCStatus, &u.CreatedAt)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	return u, nil
}
