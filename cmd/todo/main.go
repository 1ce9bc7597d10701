package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"todo-sync/internal/api"
	"todo-sync/internal/auth"
	"todo-sync/internal/cache"
	"todo-sync/internal/cli"
	"todo-sync/internal/config"
	"todo-sync/internal/connectivity"
	"todo-sync/internal/logging"
	"todo-sync/internal/remote/httpclient"
	"todo-sync/internal/services"
	"todo-sync/internal/validation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(config.NewLoader(), newApp)
	defer root.Close()

	if err := root.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp wires the device stack for one command invocation
func newApp(cfg *config.Config) (*cli.App, func(), error) {
	env := getEnvironment()
	logging.Debugf("environment=%s cache=%s remote=%s\n", env, cfg.GetDatabasePath(), cfg.Remote.BaseURL)

	repo, err := NewRepositoryFactory(env).CreateRepository(cfg)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.LoggingOptions())

	store, err := cache.New(repo, cfg.Cache.MemoryEntries, logger)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	preferences := cache.NewPreferences(repo, cfg.Sync.AutoSync, logger)
	sessions := auth.NewSessionStore(repo, store, logger)

	var oracle connectivity.Oracle
	if cfg.Connectivity.ForceOffline {
		oracle = connectivity.NewStatic(false)
	} else {
		oracle = connectivity.NewChecker(cfg.GetHealthURL(), cfg.Connectivity.HealthTimeout, logger)
	}

	client := httpclient.New(cfg.Remote.BaseURL, cfg.Remote.Timeout, sessions)

	sync := services.NewSyncService(services.SyncDeps{
		Cache:     store,
		Oracle:    oracle,
		Tasks:     client,
		Documents: client.Documents(),
		Logger:    logger,
	})

	businessAPI := api.NewBusinessAPI(api.Deps{
		Sync:          sync,
		Sessions:      sessions,
		Accounts:      client,
		Preferences:   preferences,
		Cache:         store,
		Oracle:        oracle,
		Logger:        logger,
		TaskValidator: validation.NewTaskValidatorWithConfig(cfg),
	})

	monitor := connectivity.NewMonitor(oracle, cfg.Connectivity.PollInterval, logger)
	watcher := services.NewSyncWatcher(sync, sessions, preferences, logger, func(result *services.SyncResult) {
		if result.Total() > 0 || result.HasErrors() {
			logger.Info("background sync finished",
				slog.Int("created", result.Created),
				slog.Int("updated", result.Pushed),
				slog.Int("deleted", result.Deleted),
				slog.Int("failed", result.Failed))
			fmt.Fprintf(os.Stdout, "Synced %d change(s), %d failed\n", result.Total(), result.Failed)
		}
	})

	app := cli.NewApp(cli.AppDeps{
		BusinessAPI: businessAPI,
		Config:      cfg,
		Monitor:     monitor,
		Watcher:     watcher,
	})

	cleanup := func() {
		if err := repo.Close(); err != nil {
			logger.Warn("failed to close device storage", slog.Any("error", err))
		}
	}
	return app, cleanup, nil
}
