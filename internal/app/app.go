package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/SONIX-Kelompok-6/sonix-be/internal/auth"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/config"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/event"
	handler "github.com/SONIX-Kelompok-6/sonix-be/internal/handler/http"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/identity"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/mailer"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore"
	recordpg "github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore/postgres"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/recordstore/rest"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository/postgres"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/repository/records"
	"github.com/SONIX-Kelompok-6/sonix-be/internal/service"
	"github.com/SONIX-Kelompok-6/sonix-be/migrations"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/database"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/health"
	pkgkafka "github.com/SONIX-Kelompok-6/sonix-be/pkg/kafka"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/middleware"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/tracing"
)

// serviceVersion is reported to the tracing backend.
const serviceVersion = "0.1.0"

// App wires together all dependencies and runs the SONIX API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	limiter        *middleware.RateLimiter
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    handler.ServiceName,
		ServiceVersion: serviceVersion,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	pool, err := connectPostgres(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.NewRedisClient(ctx, redisConfig(cfg), logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis", slog.String("addr", redisConfig(cfg).Addr()))

	store, err := newRecordStore(cfg, pool, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	logger.Info("record store initialized", slog.String("driver", cfg.RecordStoreDriver))

	// Mail delivery goes through Kafka to the mailer worker when enabled and
	// is sent inline otherwise.
	var (
		producer    *pkgkafka.Producer
		mail        service.MailRequester
		userEvents  service.UserEvents
		reviewEvent service.ReviewEvents
	)
	if cfg.KafkaEnabled {
		producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		eventProducer := event.NewProducer(producer, logger)
		mail, userEvents, reviewEvent = eventProducer, eventProducer, eventProducer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	} else {
		sender := newMailSender(cfg, logger)
		mail = mailer.NewDirect(sender, logger)
		logger.Info("kafka disabled, sending mail inline", slog.String("sender", sender.Name()))
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	denylist := auth.NewDenylist(redisClient)
	identityProvider := identity.NewProvider(redisClient, identity.Config{
		OTPLength:      cfg.OTPLength,
		OTPTTL:         cfg.OTPTTL,
		OTPMaxAttempts: cfg.OTPMaxAttempts,
		ResetTokenTTL:  cfg.ResetTokenTTL,
	})

	userRepo := postgres.NewUserRepository(pool)
	shoeRepo := records.NewShoeRepository(store)
	reviewRepo := records.NewReviewRepository(store)
	favoriteRepo := records.NewFavoriteRepository(store)

	userService := service.NewUserService(service.UserServiceDeps{
		Users:         userRepo,
		Profiles:      postgres.NewProfileRepository(pool),
		RefreshTokens: postgres.NewRefreshTokenRepository(pool),
		JWT:           jwtManager,
		Identity:      identityProvider,
		Mail:          mail,
		Revoker:       denylist,
		Events:        userEvents,
	}, logger)
	shoeService := service.NewShoeService(shoeRepo, reviewRepo, favoriteRepo, userRepo, logger)
	reviewService := service.NewReviewService(reviewRepo, shoeRepo, reviewEvent, logger)
	favoriteService := service.NewFavoriteService(favoriteRepo, shoeRepo, reviewRepo, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("record_store", func(ctx context.Context) error {
		_, err := store.Select(ctx, recordstore.Shoes, recordstore.Query{Limit: 1})
		return err
	})
	if producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return producer.Ping(ctx)
		})
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitEvery(), cfg.RateLimitBurst, logger)

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Auth:      userService,
		Profiles:  userService,
		Catalog:   shoeService,
		Reviews:   reviewService,
		Favorites: favoriteService,
		Validator: auth.Validator(jwtManager, denylist),
		Limiter:   limiter,
		Health:    healthHandler,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			ExposedHeaders: []string{middleware.CorrelationHeader, "Retry-After"},
			Environment:    cfg.Environment,
		},
		PprofCIDR: cfg.PprofAllowedCIDRs,
	}, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		producer:       producer,
		limiter:        limiter,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests (5s budget).
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.limiter.Stop()

	// 2. Flush pending spans after HTTP drain so in-flight request spans are captured.
	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 3. Close Kafka producer.
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	// 4. Close Redis and PostgreSQL.
	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// connectPostgres opens the pool, registers its metrics and applies the
// embedded migrations.
func connectPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, handler.ServiceName)

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}
	return pool, nil
}

func redisConfig(cfg *config.Config) database.RedisConfig {
	return database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// newRecordStore selects the record store implementation named by
// RECORD_STORE_DRIVER.
func newRecordStore(cfg *config.Config, pool database.DBTX, logger *slog.Logger) (recordstore.Store, error) {
	switch cfg.RecordStoreDriver {
	case config.DriverREST:
		store, err := rest.New(rest.Config{
			BaseURL:    cfg.SupabaseURL,
			APIKey:     cfg.SupabaseKey,
			Timeout:    cfg.RecordStoreTimeout,
			MaxRetries: cfg.RecordStoreMaxRetries,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create rest record store: %w", err)
		}
		return store, nil
	case config.DriverPostgres:
		return recordpg.New(pool), nil
	case config.DriverMemory:
		store := recordstore.NewMemoryStore()
		if cfg.RecordStoreSeedFile != "" {
			if err := store.LoadSeedFile(cfg.RecordStoreSeedFile); err != nil {
				return nil, fmt.Errorf("seed memory record store: %w", err)
			}
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown record store driver %q", cfg.RecordStoreDriver)
	}
}

// newMailSender returns an SMTP sender when SMTP_HOST is set and a sender
// that only logs otherwise.
func newMailSender(cfg *config.Config, logger *slog.Logger) mailer.Sender {
	if cfg.SMTPHost == "" {
		return mailer.NewLogSender(logger)
	}
	return mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		UseTLS:   cfg.SMTPUseTLS,
	})
}
