// Package ratelimit throttles requests accepted by the trigger listener.
package ratelimit

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket whose burst equals its per-second rate.
// A rate of zero disables limiting.
type RateLimiter struct {
	limiter *rate.Limiter
}

func NewRateLimiter(rps int) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	if r.limiter.Limit() == 0 {
		return true
	}
	return r.limiter.Allow()
}

// Middleware rejects requests with 429 once the bucket is empty.
func (r *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !r.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}
