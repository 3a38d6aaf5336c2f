package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/docusage-ai/search-platform/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the context and response headers,
// honoring an incoming X-Request-ID when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}
