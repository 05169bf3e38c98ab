package middleware

import (
	"context"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds slow spreadsheet fetches behind a request.
const DefaultRequestTimeout = 30 * time.Second

// Timeout enforces a deadline on request handlers. The request context is
// cancelled at the deadline so downstream Google API calls stop too, and
// http.TimeoutHandler closes out the response.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		withDeadline := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
		return http.TimeoutHandler(withDeadline, timeout, "Request Timeout")
	}
}
