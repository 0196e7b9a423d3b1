package postgres

import (
	"context"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// transactionsRepo is the read side of the transaction log; rows are only
// written through ledgerTx.
type transactionsRepo struct{ pool *pgxpool.Pool }

const txnColumns = `id, sender_account_id, receiver_account_id, amount, currency, description, status, created_at`

func scanTxn(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.SenderAccountID, &t.ReceiverAccountID, &t.Amount, &t.Currency, &t.Description, &t.Status, &t.CreatedAt)
	return t, err
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTxn(r.pool.QueryRow(ctx, `SELECT `+txnColumns+` FROM transactions WHERE id=$1`, id))
	if err != nil {
		return models.Transaction{}, mapErr(err)
	}
	return t, nil
}

func (r *transactionsRepo) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]models.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+`
		   FROM transactions
		  WHERE sender_account_id=$1 OR receiver_account_id=$1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2 OFFSET $3`,
		accountID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
