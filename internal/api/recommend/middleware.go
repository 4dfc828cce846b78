package recommend

import (
	"net"
	"net/http"

	"cropadvisor/internal/metrics"
	"cropadvisor/internal/ratelimit"
)

// RateLimit rejects clients that exceed their per-address budget with 429.
// A nil limiter disables limiting.
func RateLimit(limiter *ratelimit.KeyedLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientKey(r)) {
			metrics.RecordHTTPRateLimited()
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
