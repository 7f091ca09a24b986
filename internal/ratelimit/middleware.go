package ratelimit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// ByIP limits requests per client IP over a one-minute sliding window. A
// nil counter keeps state in process memory. A non-positive limit
// disables limiting.
func ByIP(requestsPerMinute int, counter httprate.LimitCounter) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []httprate.Option{
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded),
	}
	if counter != nil {
		opts = append(opts, httprate.WithLimitCounter(counter))
	}

	return httprate.Limit(requestsPerMinute, time.Minute, opts...)
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	json.NewEncoder(w).Encode(map[string]any{
		"ok":    false,
		"error": "rate limit exceeded, retry later",
	})
}
