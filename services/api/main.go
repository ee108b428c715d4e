package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/02loveslollipop/groundwater-hpi/internal/logger"
	"github.com/02loveslollipop/groundwater-hpi/internal/quality"
	"github.com/02loveslollipop/groundwater-hpi/services/api/config"
	"github.com/02loveslollipop/groundwater-hpi/services/api/db"
	httpserver "github.com/02loveslollipop/groundwater-hpi/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	lg, err := logger.New(cfg.LogLevel, cfg.LogFormat, "groundwater-api")
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer lg.Sync() //nolint:errcheck

	standards, err := quality.LoadStandards(cfg.StandardsFile)
	if err != nil {
		lg.Fatal("standards error", zap.String("file", cfg.StandardsFile), zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("db connection error", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		lg.Fatal("schema error", zap.Error(err))
	}

	srv, err := httpserver.New(cfg, store, quality.NewCalculator(standards), lg)
	if err != nil {
		lg.Fatal("server setup error", zap.Error(err))
	}
	lg.Info("REST API listening",
		zap.String("addr", cfg.ListenAddr()),
		zap.Int("ingest_workers", cfg.IngestWorkers),
		zap.Bool("require_coordinates", cfg.RequireCoordinates))

	if err := srv.Run(ctx); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
