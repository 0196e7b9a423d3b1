package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/fintech-transfers/internal/api/handlers"
	"github.com/baharkarakas/fintech-transfers/internal/api/httpx"
	"github.com/baharkarakas/fintech-transfers/internal/auth"
	"github.com/baharkarakas/fintech-transfers/internal/config"
	"github.com/baharkarakas/fintech-transfers/internal/metrics"
	"github.com/baharkarakas/fintech-transfers/internal/middleware"
	"github.com/baharkarakas/fintech-transfers/internal/services"
	"github.com/baharkarakas/fintech-transfers/internal/worker"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterDeps struct {
	Cfg         config.Config
	Log         *slog.Logger
	Tokens      *auth.TokenManager
	UserSvc     *services.UserService
	AccountSvc  *services.AccountService
	TransferSvc *services.TransferService
	Pool        *worker.Pool
	Health      []Pinger
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID(d.Log), middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", handlers.OneTimeTokenHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// health & metrics
	r.Get("/health", healthHandler(d.Health))
	r.Handle("/metrics", metrics.Handler())

	authH := handlers.NewAuthHandler(d.UserSvc)
	accountH := handlers.NewAccountHandler(d.AccountSvc)
	transferH := handlers.NewTransferHandler(d.TransferSvc, d.Pool)
	authMW := middleware.NewAuthMiddleware(d.Tokens)

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Post("/register", authH.Register)
		r.Post("/login", authH.Login)
		r.Post("/refresh", authH.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authMW.Auth)
			r.Get("/currentuser", authH.CurrentUser)
			r.Post("/one-time-token", accountH.OneTimeToken)
			r.Get("/balance", accountH.Balance)
			r.Post("/transfer", transferH.Transfer)
			r.Get("/transactions", accountH.Transactions)
		})
	})

	return r
}

func healthHandler(deps []Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, p := range deps {
			if err := p.Ping(ctx); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
