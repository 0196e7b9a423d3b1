// Package reporting exports an account's transfer history for offline review.
package reporting

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/repository"
)

const pageSize = 500

var header = []string{"ID", "Direction", "SenderAccountID", "ReceiverAccountID", "Amount", "Currency", "Status", "Description", "CreatedAt"}

// WriteCSV writes every transaction touching accountID, newest first, and
// returns the number of rows written.
func WriteCSV(ctx context.Context, w io.Writer, txns repository.Transactions, accountID string) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}

	rows := 0
	for offset := 0; ; offset += pageSize {
		page, err := txns.ListByAccount(ctx, accountID, pageSize, offset)
		if err != nil {
			return rows, fmt.Errorf("list transactions: %w", err)
		}
		for _, t := range page {
			if err := cw.Write(record(t, accountID)); err != nil {
				return rows, fmt.Errorf("write row: %w", err)
			}
			rows++
		}
		if len(page) < pageSize {
			break
		}
	}

	cw.Flush()
	return rows, cw.Error()
}

func record(t models.Transaction, accountID string) []string {
	direction := "in"
	if t.SenderAccountID == accountID {
		direction = "out"
	}
	desc := ""
	if t.Description != nil {
		desc = *t.Description
	}
	return []string{
		t.ID,
		direction,
		t.SenderAccountID,
		t.ReceiverAccountID,
		models.FormatAmount(t.Amount),
		t.Currency,
		string(t.Status),
		desc,
		t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
