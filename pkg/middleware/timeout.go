package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/docusage-ai/search-platform/pkg/logger"
)

// Timeout cancels the request context after the given duration. A
// handler that has not produced output by then gets a 504 carrying the
// same JSON error envelope the API handlers write; anything the handler
// writes after that is discarded rather than interleaved with the 504.
func Timeout(limit time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), limit)
			defer cancel()

			dw := &deadlineWriter{ResponseWriter: w}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(dw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				// A handler that already started its response keeps the
				// writer.
				if !dw.owner.CompareAndSwap(writerOpen, writerTimedOut) {
					return
				}
				slog.Warn("request deadline exceeded",
					"method", r.Method,
					"path", r.URL.Path,
					"limit", limit,
					"request_id", logger.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusGatewayTimeout)
				json.NewEncoder(w).Encode(map[string]string{"error": "request timed out"})
			}
		})
	}
}

const (
	writerOpen int32 = iota
	writerHandler
	writerTimedOut
)

// deadlineWriter hands the underlying writer to whichever side starts
// writing first, the handler or the timeout response.
type deadlineWriter struct {
	http.ResponseWriter
	owner atomic.Int32
}

func (dw *deadlineWriter) claim() bool {
	return dw.owner.CompareAndSwap(writerOpen, writerHandler) || dw.owner.Load() == writerHandler
}

func (dw *deadlineWriter) WriteHeader(code int) {
	if !dw.claim() {
		return
	}
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	if !dw.claim() {
		return len(b), nil
	}
	return dw.ResponseWriter.Write(b)
}
