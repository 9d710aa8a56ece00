// Package backend assembles the bridge from configuration: the local store,
// the optional remote table and the optional change-event publisher.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"nutrilog/internal/amqp"
	"nutrilog/internal/bridge"
	"nutrilog/internal/config"
	"nutrilog/internal/store"
	"nutrilog/internal/store/csvfile"
	"nutrilog/internal/store/gsheet"
	"nutrilog/internal/store/sqlite"
)

// CleanupFunc releases backend resources at shutdown.
type CleanupFunc func() error

// Result carries the assembled bridge and its cleanup.
type Result struct {
	Bridge  *bridge.Bridge
	Cleanup CleanupFunc
}

// Build wires the configured backends together. A missing or broken remote
// configuration downgrades to local-only operation; only a broken local
// backend is fatal, since without it no write could ever land anywhere.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cleanups []func() error
	cleanup := func() error {
		var firstErr error
		for _, fn := range cleanups {
			if err := fn(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	local, err := buildLocal(cfg, logger, &cleanups)
	if err != nil {
		return nil, err
	}

	var remote store.EntryStore
	if cfg.RemoteConfigured() {
		cli, err := gsheet.NewFromEnv(ctx)
		if err != nil {
			logger.Warn("Remote table unavailable, continuing local-only", "error", err)
		} else {
			remote = cli
			logger.Info("Initialized remote table backend",
				"spreadsheet_id", cfg.GoogleSpreadsheetID,
				"sheet", cfg.GoogleSheetName)
		}
	} else {
		logger.Info("Remote table not configured, running local-only")
	}

	var events bridge.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			events = amqpClient
			cleanups = append(cleanups, amqpClient.Close)
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	return &Result{
		Bridge:  bridge.New(remote, local, events),
		Cleanup: cleanup,
	}, nil
}

func buildLocal(cfg *config.Config, logger *slog.Logger, cleanups *[]func() error) (store.EntryStore, error) {
	switch cfg.LocalBackend {
	case config.LocalBackendCSV:
		logger.Info("Initialized local file backend", "path", cfg.CSVPath)
		return csvfile.New(cfg.CSVPath), nil
	case config.LocalBackendSQLite:
		repo, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite backend: %w", err)
		}
		*cleanups = append(*cleanups, repo.Close)
		logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported local backend: %s", cfg.LocalBackend)
	}
}
