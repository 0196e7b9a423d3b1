package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/baharkarakas/fintech-transfers/internal/api"
	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/config"
	"github.com/baharkarakas/fintech-transfers/internal/db"
	"github.com/baharkarakas/fintech-transfers/internal/logger"
	"github.com/baharkarakas/fintech-transfers/internal/metrics"
	"github.com/baharkarakas/fintech-transfers/internal/repository"
	"github.com/baharkarakas/fintech-transfers/internal/repository/memory"
	"github.com/baharkarakas/fintech-transfers/internal/repository/postgres"
	redisrepo "github.com/baharkarakas/fintech-transfers/internal/repository/redis"
	"github.com/baharkarakas/fintech-transfers/internal/services"
	"github.com/baharkarakas/fintech-transfers/internal/worker"
)

type stores struct {
	users  repository.Users
	ledger repository.Ledger
	txns   repository.Transactions
	health []api.Pinger
	close  func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, stop, cfg, log, openStores)
	stop()
	if err != nil {
		log.Error("exit", "err", err)
		os.Exit(1)
	}
}

type storeOpener func(context.Context, config.Config, *slog.Logger) (stores, error)

// run serves until ctx is done. Everything it opens is closed before it
// returns, including on startup errors.
func run(ctx context.Context, stop context.CancelFunc, cfg config.Config, log *slog.Logger, open storeOpener) error {
	st, err := open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("store %s: %w", cfg.StoreDriver, err)
	}
	defer st.close()

	nonces, closeNonces, err := openNonces(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("nonce store: %w", err)
	}
	defer closeNonces()
	if p, ok := nonces.(api.Pinger); ok {
		st.health = append(st.health, p)
	}

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	guard := auth.NewOneTimeGuard(cfg.OneTimeSecret, cfg.JWTIssuer, cfg.OneTimeTTL, nonces)

	wp := worker.NewPool(cfg.WorkerCount, cfg.WorkerQueue)

	userSvc := services.NewUserService(st.users, tm, cfg.StartingBalance, cfg.Currency, log)
	accountSvc := services.NewAccountService(st.ledger, st.txns, guard)
	transferSvc := services.NewTransferService(st.ledger, st.users, guard, log)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:         cfg,
		Log:         log,
		Tokens:      tm,
		UserSvc:     userSvc,
		AccountSvc:  accountSvc,
		TransferSvc: transferSvc,
		Pool:        wp,
		Health:      st.health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}
	wp.Stop()
	return nil
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		log.Warn("using in-memory store; data is lost on exit")
		s := memory.New(memory.WithLockTimeout(cfg.LockTimeout))
		return stores{
			users:  s,
			ledger: s,
			txns:   s.TransactionReader(),
			health: []api.Pinger{s},
			close:  func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	if cfg.Migrate {
		if err := db.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return stores{}, err
		}
		log.Info("migrations applied")
	}
	repos := postgres.NewRepositories(pool, cfg.LockTimeout)
	return stores{
		users:  repos.Users,
		ledger: repos.Ledger,
		txns:   repos.Transactions,
		health: []api.Pinger{repos.Ledger},
		close:  pool.Close,
	}, nil
}

func openNonces(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Nonces, func(), error) {
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set; one-time tokens are tracked in process memory")
		return memory.NewNonces(), func() {}, nil
	}
	client, err := redisrepo.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return redisrepo.NewNonces(client), func() { _ = client.Close() }, nil
}
