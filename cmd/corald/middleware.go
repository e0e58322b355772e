package main

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/openbiome/coral/pkg/observability"
)

// requestIDMiddleware tags every request with an id. The id rides the
// context so resolution logs and audit events can be correlated with
// the response, and is echoed in the X-Request-ID header. A caller-
// supplied id is kept.
func requestIDMiddleware(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := observability.WithRequestID(r.Context(), requestID)
			ctx = observability.WithLogger(ctx, logger)
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
