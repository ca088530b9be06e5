package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON marshals body once and appends a trailing newline (so
// Content-Length is exact), then writes headers and the body. Whether CORS headers accompany this
// response is decided per-path by corsMiddleware, not here; a handler
// never needs to know its own "public" status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	b = append(b, '\n')
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", contentLengthHeader(len(b)))
	w.WriteHeader(status)
	w.Write(b)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{"error": "method_not_allowed"})
}

func badJSON(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, envelope{"error": "bad_json"})
}

func bodyReadFailed(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, envelope{"error": "body_read_failed"})
}
