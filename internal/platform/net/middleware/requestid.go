// Package middleware holds the in-house chi middlewares
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"challengeutils/internal/platform/logger"
	pnet "challengeutils/internal/platform/net"
)

// RequestID assigns every request an id, honoring an inbound X-Request-ID.
// The id lands on the context for handlers and on the logger context so every
// log line of the request carries it, and is mirrored back in the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := pnet.WithRequestID(r.Context(), reqID)
		ctx = logger.WithRequest(ctx, reqID, "")
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
