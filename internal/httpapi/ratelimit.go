package httpapi

import (
	"net/http"

	"golang.org/x/time/rate"
)

// routeLimiter throttles POST /route when configured. Nil means unlimited.
var routeLimiter *rate.Limiter

// SetRateLimit configures the request rate for routing. rps <= 0 disables
// limiting.
func SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		routeLimiter = nil
		return
	}
	if burst < 1 {
		burst = 1
	}
	routeLimiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimitMiddleware rejects requests over the configured rate with 429.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routeLimiter != nil && !routeLimiter.Allow() {
			IncrementBackpressure("rate_limit")
			writeJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
