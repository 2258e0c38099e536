package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

var (
	defaultCORSMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	defaultCORSHeaders = []string{"Accept", "Authorization", "Content-Type", CorrelationHeader, "X-Requested-With"}
)

// CORSConfig configures the cross-origin policy of the API.
type CORSConfig struct {
	// AllowedOrigins lists exact origins or patterns such as
	// "https://*.sonix.id". "*" allows any origin.
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	// MaxAge caches preflight results, in seconds.
	MaxAge           int
	AllowCredentials bool
	// Environment decides what an empty origin list means: every origin in
	// development, none elsewhere.
	Environment string
}

// CORS returns the go-chi/cors handler for cfg. Preflight requests are
// answered with 204 and never reach the router.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:     cfg.AllowedOrigins,
		AllowedMethods:     cfg.AllowedMethods,
		AllowedHeaders:     cfg.AllowedHeaders,
		ExposedHeaders:     cfg.ExposedHeaders,
		AllowCredentials:   cfg.AllowCredentials,
		MaxAge:             cfg.MaxAge,
		OptionsPassthrough: true,
	}
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = defaultCORSMethods
	}
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = defaultCORSHeaders
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = 3600
	}

	wildcard := slices.Contains(cfg.AllowedOrigins, "*")
	switch {
	case len(cfg.AllowedOrigins) == 0 && cfg.Environment != "development":
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	case wildcard && cfg.AllowCredentials:
		// Browsers refuse "*" on credentialed responses, so the origin is echoed.
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}

	handler := cors.Handler(opts)
	return func(next http.Handler) http.Handler {
		return handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func isPreflight(r *http.Request) bool {
	_, hasOrigin := r.Header["Origin"]
	return r.Method == http.MethodOptions && hasOrigin && r.Header.Get("Access-Control-Request-Method") != ""
}
