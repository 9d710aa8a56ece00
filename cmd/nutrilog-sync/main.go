// nutrilog-sync is a one-shot migration tool between the local file and the
// remote table. "resync" replays the file upward, "export" snapshots the
// remote table downward.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nutrilog/internal/backend"
	"nutrilog/internal/config"
	applog "nutrilog/internal/log"
)

func main() {
	mode := flag.String("mode", "", "sync direction: resync (file to remote) or export (remote to file)")
	file := flag.String("file", "", "local CSV path override (default: CSV_PATH)")
	flag.Parse()

	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentSync,
	})
	applog.SetDefault(logger)

	if *mode != "resync" && *mode != "export" {
		fmt.Fprintln(os.Stderr, "usage: nutrilog-sync -mode=resync|export [-file=path]")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	path := cfg.CSVPath
	if *file != "" {
		path = *file
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.Build(ctx, cfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to build backends", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	switch *mode {
	case "resync":
		count, err := result.Bridge.ResyncFromFile(ctx, path)
		if err != nil {
			logger.Error("Resync failed", "error", err, "migrated", count, "path", path)
			os.Exit(1)
		}
		logger.Info("Resync completed", "migrated", count, "path", path)
	case "export":
		if err := result.Bridge.ExportRemoteToFile(ctx, path); err != nil {
			logger.Error("Export failed", "error", err, "path", path)
			os.Exit(1)
		}
		logger.Info("Export completed", "path", path)
	}
}
