package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/boddenberg/expense-claim-bfa/internal/infra/resilience"
)

// BulkheadMiddleware bounds how many claims are processed at once. A request
// waits for a slot until its context ends.
func BulkheadMiddleware(b *resilience.Bulkhead, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := b.Acquire(r.Context()); err != nil {
				logger.Warn("bulkhead: no slot before request ended",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("in_use", b.InUse()),
				)
				writeError(w, http.StatusServiceUnavailable, "too many claims in progress, try again shortly")
				return
			}
			defer b.Release()

			next.ServeHTTP(w, r)
		})
	}
}
