package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"bild-story/api"
	"bild-story/compiler"
	"bild-story/config"
	"bild-story/formats"
	"bild-story/observability"
	"bild-story/storage"
	"bild-story/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bild: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("📖 Bild Story Backend", zap.String("version", api.Version))

	metrics := observability.NewCollector()

	repo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	// L'export del player è opzionale: senza toolchain il server parte comunque
	var playerCompiler *compiler.PlayerCompiler
	if cfg.Export {
		playerCompiler, err = compiler.NewPlayerCompiler("", ".", cfg.PlayerSource, cfg.ExportDir, logger)
		if err != nil {
			logger.Warn("⚠️ Export del player disabilitato", zap.Error(err))
			playerCompiler = nil
		}
	}

	server, err := api.NewServer(api.ServerConfig{
		Addr:          cfg.Addr,
		Repository:    repo,
		Compiler:      playerCompiler,
		Metrics:       metrics,
		Logger:        logger,
		CORSOrigins:   cfg.CORSOrigins,
		PublicURL:     cfg.PublicURL,
		Dialect:       cfg.Dialect,
		StrictTargets: cfg.StrictTargets,
		PreviewTTL:    cfg.PreviewTTL,
		Debug:         cfg.Debug,
	})
	if err != nil {
		return err
	}

	if cfg.Watch && cfg.Storage == config.StorageFile {
		w, err := watcher.New(watcher.Config{
			Dir:      cfg.StoriesDir,
			Debounce: cfg.Debounce,
			Checker:  formats.GetDialect(cfg.Dialect, observability.DiagnosticReporter(logger, metrics, "")),
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer func() { _ = w.Stop() }()
		go server.ForwardWatcherEvents(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}

func openRepository(cfg config.Config, logger *zap.Logger) (storage.Repository, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		logger.Info("💾 Storage SQLite", zap.String("path", cfg.SQLitePath))
		return storage.OpenSQLite(cfg.SQLitePath, logger)
	default:
		logger.Info("💾 Storage su file", zap.String("dir", cfg.StoriesDir))
		return storage.NewFileStore(cfg.StoriesDir, logger)
	}
}
