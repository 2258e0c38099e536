// Command server runs the SONIX HTTP API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/app"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/config"
	handler "github.com/SONIX-Kelompok-6/sonix-be/internal/handler/http"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sonix api exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(handler.ServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting sonix api",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("record_store", cfg.RecordStoreDriver),
		slog.Bool("kafka_enabled", cfg.KafkaEnabled),
	)

	api, err := app.NewApp(cfg, log)
	if err != nil {
		return fmt.Errorf("init api: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := api.Run(ctx); err != nil {
		return err
	}
	log.Info("sonix api stopped")
	return nil
}
