package middleware

import (
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 64 * 1024

// Chain returns the middleware stack in the order it should be installed.
// Order: CORS → RequestID → Logging → Metrics → MaxBytes → router
func Chain(l *zap.Logger) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		CORS,
		RequestID,
		Logging(l),
		Metrics,
		MaxBytes(maxBodyBytes),
	}
}
