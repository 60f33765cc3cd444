package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vastralabs/vastra-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID tags the request and its log context with a correlation id,
// honoring one supplied by the caller so gateway traces line up.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, requestID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
