package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/budgetledger/internal/adapter/http/handler"
	"github.com/iho/budgetledger/internal/adapter/http/middleware"
	"github.com/iho/budgetledger/internal/infrastructure/auth"
	"github.com/iho/budgetledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	WalletHandler      *handler.WalletHandler
	EnvelopeHandler    *handler.EnvelopeHandler
	TransactionHandler *handler.TransactionHandler
	TransferHandler    *handler.TransferHandler
	CategoryHandler    *handler.CategoryHandler
	AccountHandler     *handler.AccountHandler
	HealthHandler      *handler.HealthHandler

	Logger           zerolog.Logger
	JWTManager       *auth.JWTManager // nil reads the caller from X-User-ID
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	MetricsHandler   http.Handler
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery)
	r.Use(middleware.Metrics)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTManager))

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		// Wallets
		r.Route("/wallets", func(r chi.Router) {
			h := cfg.WalletHandler
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/adjust", h.Adjust)
			r.Get("/{id}/transactions", h.Transactions)
		})

		// Envelopes
		r.Route("/envelopes", func(r chi.Router) {
			h := cfg.EnvelopeHandler
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Post("/{id}/budget/increase", h.IncreaseBudget)
			r.Post("/{id}/budget/decrease", h.DecreaseBudget)
			r.Get("/{id}/categories", h.Categories)
			r.Post("/{id}/categories", h.LinkCategories)
			r.Post("/{id}/recompute", h.Recompute)
			r.Get("/{id}/allocations", h.Allocations)
			r.Get("/{id}/participants", h.Participants)
			r.Post("/{id}/participants", h.AddParticipant)
			r.Delete("/{id}/participants/{userID}", h.RemoveParticipant)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			h := cfg.TransactionHandler
			r.Post("/", h.Create)
			r.Post("/expense", h.CreateExpense)
			r.Post("/income", h.CreateIncome)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})

		// Money and budget movements
		r.Post("/transfers", cfg.TransferHandler.Create)
		r.Post("/card-payments", cfg.TransferHandler.PayCard)
		r.Post("/envelope-transfers", cfg.TransferHandler.MoveBudget)

		// Categories
		r.Route("/categories", func(r chi.Router) {
			h := cfg.CategoryHandler
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{id}", h.Get)
			r.Patch("/{id}", h.Rename)
			r.Delete("/{id}", h.Delete)
			r.Get("/{id}/subcategories", h.ListSubcategories)
			r.Post("/{id}/subcategories", h.CreateSubcategory)
		})
		r.Route("/subcategories", func(r chi.Router) {
			h := cfg.CategoryHandler
			r.Patch("/{id}", h.RenameSubcategory)
			r.Delete("/{id}", h.DeleteSubcategory)
		})

		// Caller
		r.Get("/me/preferences", cfg.AccountHandler.GetPreferences)
		r.Put("/me/preferences", cfg.AccountHandler.PutPreferences)
		r.Get("/reconciliation", cfg.AccountHandler.Reconcile)
	})

	return r
}
