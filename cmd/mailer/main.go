// Command mailer consumes mail requests from Kafka and delivers them over SMTP.
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
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sonix mailer exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(app.MailerServiceName, cfg.LogLevel)
	slog.SetDefault(log)
	log.Info("starting sonix mailer",
		slog.String("environment", cfg.Environment),
		slog.Any("brokers", cfg.KafkaBrokers),
	)

	worker, err := app.NewMailer(cfg, log)
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		return err
	}
	log.Info("sonix mailer stopped")
	return nil
}
