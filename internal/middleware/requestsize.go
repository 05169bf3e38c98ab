package middleware

import "net/http"

// DefaultMaxRequestSize caps request bodies at 1 MiB, plenty for the small
// JSON payloads the task endpoints accept.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize rejects request bodies larger than maxBytes. A declared
// Content-Length over the cap is refused before any body bytes are read;
// chunked bodies are cut off by MaxBytesReader once they exceed it.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()
			next.ServeHTTP(w, r)
		})
	}
}
