package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-sync/internal/auth"
	"todo-sync/internal/config"
	"todo-sync/internal/documents"
	"todo-sync/internal/logging"
	"todo-sync/internal/repository/postgres"
	"todo-sync/internal/server"
)

func main() {
	// 1. Configuration: optional file, then environment
	cfg, err := config.NewLoader().Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("invalid backend configuration: %v", err)
	}

	// 2. Logger
	logger := logging.New(cfg.LoggingOptions())
	logger.Info("todo backend starting", slog.String("addr", cfg.Server.Addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Schema, then the pool
	if err := postgres.Migrate(cfg.Server.DatabaseURL, logger); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	pool, err := postgres.Connect(ctx, cfg.Server.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	// 4. Blob storage and token issuing
	files, err := documents.NewFileStore(cfg.Server.DataDir)
	if err != nil {
		log.Fatalf("failed to open document storage: %v", err)
	}
	tokens, err := auth.NewTokenIssuer(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	if err != nil {
		log.Fatalf("failed to create token issuer: %v", err)
	}

	// 5. Handlers and router
	handler := server.NewHandler(server.HandlerDeps{
		Users:     postgres.NewUserRepository(pool),
		Tasks:     postgres.NewTaskRepository(pool),
		Documents: postgres.NewDocumentRepository(pool),
		Files:     files,
		Tokens:    tokens,
		Logger:    logger,
		PublicURL: cfg.Server.PublicURL,
		MaxUpload: cfg.Server.MaxUpload,
	})
	health := server.NewHealthHandler(postgres.NewReadinessChecker(pool))
	router := server.NewRouter(handler, health, tokens, logger)

	// 6. Serve until interrupted
	srv := server.New(server.Options{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}, router, logger)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with an error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("todo backend stopped")
}
