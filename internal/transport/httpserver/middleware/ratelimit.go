package middleware

import (
	"net/http"

	"golang.org/x/time/rate"

	"gym-access-go/pkg/logger"
)

// NewRateLimit caps the request rate of the wrapped routes. A non-positive
// rate disables the limit.
func NewRateLimit(perSecond float64, burst int, log logger.Logger) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Warn("ratelimit: request rejected", "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
