package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

const maxBodyBytes = 262144

// isPublicPath reports whether path is one of the browser-facing
// control-surface endpoints spec.md's "if the endpoint is marked
// public" clause grants CORS headers to. The /sync/* endpoints are
// master/slave protocol traffic exchanged between daemons, never
// called from a browser origin, and are not public.
func isPublicPath(path string) bool {
	return !strings.HasPrefix(path, "/sync/")
}

// corsMiddleware implements spec.md §4.1's CORS policy: any path
// answers OPTIONS with a full preflight response, but the
// Access-Control-Allow-Origin/Vary pair on a substantive response is
// only asserted for public endpoints. Grounded on
// Generativebots-ocx-backend-go-svc/internal/api/server.go's
// mux.Use(...) CORS wrapper, extended with the preflight headers and
// max-age this spec requires.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if isPublicPath(r.URL.Path) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Vary", "Origin")
		}
		next.ServeHTTP(w, r)
	})
}

// bodyLimitMiddleware rejects a declared Content-Length above the cap
// with 413 before the handler ever reads the body, per spec.md §4.1.
func bodyLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBodyBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, envelope{"error": "body_too_large"})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

// connectionCloseMiddleware sets the response header policy common to
// every handler (Connection: close, Cache-Control: no-store).
func connectionCloseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// envelope is a convenience alias for ad-hoc JSON response bodies.
type envelope map[string]any

func contentLengthHeader(n int) string {
	return strconv.Itoa(n)
}
