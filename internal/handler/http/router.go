package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/SONIX-Kelompok-6/sonix-be/pkg/health"
	"github.com/SONIX-Kelompok-6/sonix-be/pkg/middleware"
)

// ServiceName labels the API in metrics and traces.
const ServiceName = "sonix-api"

// shoeCacheControl lets browsers reuse catalog responses briefly. The views
// depend on the viewer, so shared caches must not store them.
const shoeCacheControl = "private, max-age=30"

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Auth      AuthService
	Profiles  ProfileService
	Catalog   CatalogService
	Reviews   ReviewService
	Favorites FavoriteService

	// Validator checks bearer tokens for Auth and OptionalAuth.
	Validator middleware.TokenValidator

	// Limiter guards the endpoints that send mail. Nil disables limiting.
	Limiter *middleware.RateLimiter

	Health    *health.Handler
	CORS      middleware.CORSConfig
	PprofCIDR []string
}

// NewRouter creates a chi router with all API routes registered.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.StripSlashes)
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))

	// Health check endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.LivenessHandler())
		r.Get("/health/ready", cfg.Health.ReadinessHandler())
	}
	r.Handle("/metrics", promhttp.Handler())
	if len(cfg.PprofCIDR) > 0 {
		middleware.RegisterPprof(r, cfg.PprofCIDR, logger)
	}

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.Limiter != nil {
		limited = cfg.Limiter.Handler
	}

	authHandler := NewAuthHandler(cfg.Auth, logger)
	profileHandler := NewProfileHandler(cfg.Profiles, logger)
	shoeHandler := NewShoeHandler(cfg.Catalog, cfg.Reviews, cfg.Favorites, logger)

	r.Route("/api", func(r chi.Router) {
		// Account and session endpoints (public)
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)

			r.Post("/register", authHandler.Register)
			r.Post("/verify-otp", authHandler.VerifyOTP)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.With(limited).Post("/resend-otp", authHandler.ResendOTP)
			r.With(limited).Post("/forgot-password", authHandler.ForgotPassword)
		})

		// Endpoints that require a session
		r.Group(func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Use(middleware.Auth(cfg.Validator))

			r.Post("/logout", authHandler.Logout)
			r.Get("/profile", profileHandler.Get)
			r.Put("/profile", profileHandler.Update)
			r.Post("/add-review", shoeHandler.AddReview)
			r.Post("/favorites/toggle", shoeHandler.ToggleFavorite)
			r.Get("/favorites", shoeHandler.ListFavorites)
		})

		// Catalog (anonymous or authenticated)
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(shoeCacheControl))
			r.Use(middleware.OptionalAuth(cfg.Validator))

			r.Get("/shoes", shoeHandler.List)
			r.Get("/shoes/search", shoeHandler.Search)
			r.Get("/shoes/{slug}", shoeHandler.Detail)
		})
	})

	return r
}
