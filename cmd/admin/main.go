package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/config"
	"github.com/baharkarakas/fintech-transfers/internal/db"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/baharkarakas/fintech-transfers/internal/models"
	"github.com/baharkarakas/fintech-transfers/internal/reporting"
	"github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/baharkarakas/fintech-transfers/internal/repository/postgres"
	"github.com/google/uuid"
)

func main() {
	log := logger.NewWithWriter("dev", os.Stderr)

	if len(os.Args) < 2 {
		log.Error("expected subcommand: report")
		os.Exit(2)
	}

	switch os.Args[1] {
	case "report":
		if err := runReport(os.Args[2:], log); err != nil {
			log.Error("report failed", "err", err)
			os.Exit(1)
		}
	case "migrate":
		if err := runMigrate(log); err != nil {
			log.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	default:
		log.Error("unknown command", "command", os.Args[1])
		os.Exit(2)
	}
}

func runReport(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	user := fs.String("user", "", "user id or username (required)")
	out := fs.String("out", "", "output file (default user_<username>_report.csv, - for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" {
		return errors.New("--user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	repos := postgres.NewRepositories(pool, cfg.LockTimeout)

	u, err := lookupUser(ctx, repos.Users, *user)
	if err != nil {
		return fmt.Errorf("user %q: %w", *user, err)
	}
	var accountID string
	err = repos.Ledger.WithTx(ctx, func(tx repository.LedgerTx) error {
		accountID, err = tx.AccountIDForUser(ctx, u.ID)
		return err
	})
	if err != nil {
		return fmt.Errorf("account for %s: %w", u.Username, err)
	}

	name := *out
	if name == "" {
		name = fmt.Sprintf("user_%s_report.csv", u.Username)
	}
	var w io.Writer = os.Stdout
	if name != "-" {
		f, err := os.Create(name)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)

	log.Info("generating transaction report", "user_id", u.ID, "account_id", accountID)
	n, err := reporting.WriteCSV(ctx, bw, repos.Transactions, accountID)
	if err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	log.Info("report generated", "rows", n, "output", name)
	return nil
}

func lookupUser(ctx context.Context, users repository.Users, ref string) (models.User, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return users.GetByID(ctx, ref)
	}
	return users.GetByUsername(ctx, models.NormalizeUsername(ref))
}

func runMigrate(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := db.RunMigrations(ctx, pool); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
