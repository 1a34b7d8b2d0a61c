package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ldi/planner/internal/config"
	"github.com/ldi/planner/internal/history"
	"github.com/ldi/planner/internal/storage/csvfile"
	"github.com/ldi/planner/internal/storage/postgres"
	"github.com/ldi/planner/internal/storage/sqlite"
	"github.com/ldi/planner/internal/tracker"
)

// openManager loads the configured backend into a Manager. The returned
// close func releases the backend and is never nil.
func openManager(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tracker.Manager, func(), error) {
	hist := history.NewInMemory(cfg.History.Limit)
	noop := func() {}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Debug("using in-memory storage")
		return tracker.New(hist), noop, nil

	case config.BackendFile:
		logger.Debug("opening task file", "path", cfg.Storage.Path)
		m, err := tracker.Open(ctx, hist, csvfile.New(cfg.Storage.Path))
		if err != nil {
			return nil, nil, err
		}
		return m, noop, nil

	case config.BackendSQLite:
		logger.Debug("opening sqlite database", "path", cfg.Storage.SQLitePath)
		store, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		m, err := tracker.Open(ctx, hist, store)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return m, func() { store.Close() }, nil

	case config.BackendPostgres:
		logger.Debug("connecting to postgres")
		store, err := postgres.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureTable(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		m, err := tracker.Open(ctx, hist, store)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return m, store.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// withManager loads config, logger and backend, runs fn and closes the backend.
func (a *app) withManager(cmd *cobra.Command, fn func(m *tracker.Manager, logger *slog.Logger) error) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger, err := a.logger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	m, closeStore, err := openManager(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	return fn(m, logger)
}
