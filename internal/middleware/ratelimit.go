package middleware

import (
	"net/http"
	"path"
	"strconv"

	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/ratelimit"
)

// AIBucket is the Redis bucket shared by the AI routes
const AIBucket = "ai"

// AIRateLimit enforces a per-client limit on the AI routes through Redis and
// counts daily usage per route. With a nil manager it passes through. Redis
// failures let the request through.
func AIRateLimit(m *ratelimit.Manager, requestsPerMinute int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil || requestsPerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			d, err := m.CheckRate(r.Context(), AIBucket, clientIP(r), requestsPerMinute)
			if err != nil {
				logger.WithContext(r.Context()).Warn("AI rate check failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(d.ResetSec))
			if !d.Allowed {
				write429(w, d.ResetSec)
				return
			}

			next.ServeHTTP(w, r)

			if err := m.IncUsage(r.Context(), path.Base(r.URL.Path)); err != nil {
				logger.WithContext(r.Context()).Warn("AI usage count failed", "error", err)
			}
		})
	}
}
