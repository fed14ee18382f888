package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/iho/budgetledger/internal/adapter/http"
	"github.com/iho/budgetledger/internal/adapter/http/handler"
	"github.com/iho/budgetledger/internal/adapter/http/middleware"
	postgresRepo "github.com/iho/budgetledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/budgetledger/internal/adapter/repository/redis"
	"github.com/iho/budgetledger/internal/infrastructure/auth"
	"github.com/iho/budgetledger/internal/infrastructure/config"
	"github.com/iho/budgetledger/internal/infrastructure/eventpublisher"
	"github.com/iho/budgetledger/internal/infrastructure/logger"
	"github.com/iho/budgetledger/internal/infrastructure/metrics"
	"github.com/iho/budgetledger/internal/infrastructure/postgres"
	"github.com/iho/budgetledger/internal/infrastructure/redis"
	"github.com/iho/budgetledger/internal/usecase"
)

const limiterIdleTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(logger.WithContext(ctx, log), cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}

	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Connect to PostgreSQL
	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	// Connect to Redis
	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	jwtManager, err := newJWTManager(cfg)
	if err != nil {
		return err
	}

	publisher, closePublisher, err := eventpublisher.NewPublisher(eventpublisher.BrokerConfig{
		Broker:            cfg.EventBroker,
		AMQPURL:           cfg.AMQPURL,
		AMQPExchange:      cfg.AMQPExchange,
		NATSURL:           cfg.NATSURL,
		NATSSubjectPrefix: cfg.NATSSubjectPrefix,
	}, log)
	if err != nil {
		return fmt.Errorf("connect to event broker: %w", err)
	}
	defer func() {
		if err := closePublisher(); err != nil {
			log.Warn().Err(err).Msg("failed to close event broker")
		}
	}()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	walletRepo := postgresRepo.NewWalletRepository(pool)
	envelopeRepo := postgresRepo.NewEnvelopeRepository(pool)
	transactionRepo := postgresRepo.NewTransactionRepository(pool)
	categoryRepo := postgresRepo.NewCategoryRepository(pool)
	subcategoryRepo := postgresRepo.NewSubcategoryRepository(pool)
	participantRepo := postgresRepo.NewParticipantRepository(pool)
	allocationRepo := postgresRepo.NewAllocationRepository(pool)
	preferenceRepo := postgresRepo.NewPreferenceRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	retrier := postgresRepo.NewRetrier()
	idGen := postgresRepo.NewULIDGenerator()

	m := metrics.New()

	// Use cases
	preferenceUC := usecase.NewPreferenceUseCase(preferenceRepo, redisRepo.NewCache(redisClient), cfg.PreferenceCacheTTL, cfg.DefaultCurrency)
	walletUC := usecase.NewWalletUseCase(txManager, walletRepo, transactionRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithOutbox(outboxRepo)
	envelopeUC := usecase.NewEnvelopeUseCase(txManager, envelopeRepo, walletRepo, transactionRepo,
		categoryRepo, participantRepo, allocationRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithOutbox(outboxRepo)
	transactionUC := usecase.NewTransactionUseCase(txManager, walletRepo, envelopeRepo, transactionRepo,
		categoryRepo, subcategoryRepo, participantRepo, allocationRepo, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithOutbox(outboxRepo)
	transferUC := usecase.NewTransferUseCase(txManager, walletRepo, envelopeRepo, transactionRepo,
		participantRepo, allocationRepo, preferenceUC, idGen).
		WithRetrier(retrier).
		WithMetrics(m).
		WithOutbox(outboxRepo)
	categoryUC := usecase.NewCategoryUseCase(categoryRepo, subcategoryRepo, idGen)
	reconciliationUC := usecase.NewReconciliationUseCase(walletRepo, envelopeRepo, transactionRepo, allocationRepo)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).OnLimited(m.RecordRateLimited)

	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		WalletHandler:      handler.NewWalletHandler(walletUC),
		EnvelopeHandler:    handler.NewEnvelopeHandler(envelopeUC),
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		TransferHandler:    handler.NewTransferHandler(transferUC),
		CategoryHandler:    handler.NewCategoryHandler(categoryUC),
		AccountHandler:     handler.NewAccountHandler(preferenceUC, reconciliationUC),
		HealthHandler: handler.NewHealthHandler(
			handler.Check{Name: "postgres", Probe: pool.Ping},
			handler.Check{Name: "redis", Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		),
		Logger:           log,
		JWTManager:       jwtManager,
		IdempotencyStore: redisRepo.NewIdempotencyStore(redisClient),
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      limiter,
	})

	server := newHTTPServer(cfg, router)

	outbox := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  publisher,
		Metrics:    m,
		Logger:     log,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		log.Info().Str("broker", cfg.EventBroker).Msg("starting outbox publisher")
		if err := outbox.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("outbox publisher: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(limiterIdleTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.CleanupLimiters(limiterIdleTimeout); n > 0 {
					log.Debug().Int("removed", n).Msg("evicted idle rate limiters")
				}
			}
		}
	})

	return g.Wait()
}

// newJWTManager returns nil when auth is disabled; callers are then
// identified by the X-User-ID header.
func newJWTManager(cfg *config.Config) (*auth.JWTManager, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required when AUTH_ENABLED is set")
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration), nil
}

func newHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      h,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
}
