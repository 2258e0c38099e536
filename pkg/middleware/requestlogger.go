package middleware

import (
	"log/slog"
	"net/http"

	"github.com/SONIX-Kelompok-6/sonix-be/pkg/logger"
)

// RequestLogger makes base available through logger.FromContext for the rest
// of the chain. Context attributes such as correlation_id and user_id are
// added by the logger itself when records are written with a *Context method.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), base)))
		})
	}
}
