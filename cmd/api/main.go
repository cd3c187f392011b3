package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/yieldpro/backend/internal/account"
	"github.com/yieldpro/backend/internal/admin"
	"github.com/yieldpro/backend/internal/auth"
	"github.com/yieldpro/backend/internal/catalog"
	"github.com/yieldpro/backend/internal/config"
	"github.com/yieldpro/backend/internal/eligibility"
	"github.com/yieldpro/backend/internal/insight"
	"github.com/yieldpro/backend/internal/ledger"
	"github.com/yieldpro/backend/internal/lifecycle"
	"github.com/yieldpro/backend/internal/middleware"
	"github.com/yieldpro/backend/internal/payout"
	"github.com/yieldpro/backend/internal/repository"
	"github.com/yieldpro/backend/internal/router"
	"github.com/yieldpro/backend/internal/session"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Payout dispatch worker and queue client
	workers := river.NewWorkers()
	river.AddWorker(workers, payout.NewDispatchPayoutWorker(cfg.PayoutWebhookURL))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Ledger: payout jobs are enqueued inside the approval transaction
	insertPayout := func(ctx context.Context, tx pgx.Tx, args payout.DispatchPayoutArgs) error {
		_, err := riverClient.InsertTx(ctx, tx, args, nil)
		return err
	}
	ledgerRepo := ledger.NewRepository(pool, insertPayout)
	ledgerSvc := ledger.NewService(ledgerRepo)

	// Tier catalog
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			slog.Error("Failed to load tier catalog", "error", err, "path", cfg.CatalogPath)
			os.Exit(1)
		}
	} else {
		cat = catalog.Default()
	}

	profileRepo := repository.NewProfileRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)

	engine := eligibility.New(cat, cfg.Location)
	manager := lifecycle.NewManager(profileRepo, txRepo, ledgerSvc, engine, cat, logger)
	sessions := session.New(profileRepo, txRepo)

	authSvc := auth.NewService(profileRepo, manager)
	authHandler := auth.NewHandler(authSvc, logger)

	// Insight cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("Cannot reach redis; insight caching degraded", "error", err)
	}
	insightSvc := insight.NewService(insight.NewHTTPGenerator(cfg.InsightAPIURL), insight.NewRedisCache(rdb), logger)

	accountHandler := account.NewHandler(manager, sessions, authSvc, insightSvc, cat, profileRepo, cfg.DepositAddress, logger)
	adminHandler := admin.NewHandler(manager, sessions, txRepo, cat, logger)

	limiter := middleware.NewRateLimiter(1, 5)
	apiRouter := router.New(authHandler, accountHandler, adminHandler, authSvc, limiter)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes payout jobs)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
