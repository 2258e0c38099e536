package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/config"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/event"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/mailer"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/database"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/health"
	pkgkafka "github.com/SONIX-Kelompok-6/sonix-be/pkg/kafka"
)

// MailerServiceName labels the mailer worker in logs and metrics.
const MailerServiceName = "sonix-mailer"

// processedMailTTL is how long delivered mail request IDs are remembered.
const processedMailTTL = 24 * time.Hour

// Mailer consumes mail requests from Kafka and delivers them. It serves
// health and metrics endpoints on the HTTP port.
type Mailer struct {
	logger     *slog.Logger
	redis      *redis.Client
	consumer   *pkgkafka.Consumer
	dlq        *pkgkafka.DLQProducer
	httpServer *http.Server
}

// NewMailer creates the mailer worker.
func NewMailer(cfg *config.Config, logger *slog.Logger) (*Mailer, error) {
	if err := cfg.ValidateMailer(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := database.NewRedisClient(ctx, redisConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	sender := newMailSender(cfg, logger)
	logger.Info("mail sender initialized", slog.String("sender", sender.Name()))

	store := pkgkafka.NewRedisIdempotencyStore(redisClient, MailerServiceName, processedMailTTL)
	handler := pkgkafka.IdempotentHandler(store, event.TopicMailRequested, mailer.ConsumerGroupID,
		mailer.Handler(sender, logger), logger)

	dlq := pkgkafka.NewDLQProducer(cfg.KafkaBrokers, logger)
	consumer := pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
		Brokers:  cfg.KafkaBrokers,
		GroupID:  mailer.ConsumerGroupID,
		Topic:    event.TopicMailRequested,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}, handler, logger).WithDLQ(dlq)

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return pkgkafka.PingBrokers(ctx, cfg.KafkaBrokers)
	})

	r := chi.NewRouter()
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	return &Mailer{
		logger:   logger,
		redis:    redisClient,
		consumer: consumer,
		dlq:      dlq,
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run consumes until the context is canceled.
func (m *Mailer) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		m.logger.Info("starting HTTP server", slog.String("addr", m.httpServer.Addr))
		if err := m.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := m.consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("mail consumer: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		m.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, m.Shutdown())
	}

	return m.Shutdown()
}

// Shutdown stops consuming before closing the DLQ writer and Redis.
func (m *Mailer) Shutdown() error {
	m.logger.Info("shutting down mailer...")

	var errs []error

	httpCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.httpServer.Shutdown(httpCtx); err != nil {
		errs = append(errs, err)
	}
	if err := m.consumer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.dlq.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := m.redis.Close(); err != nil {
		errs = append(errs, err)
	}

	for _, err := range errs {
		m.logger.Error("mailer shutdown error", slog.String("error", err.Error()))
	}
	m.logger.Info("mailer shutdown complete")
	return errors.Join(errs...)
}
