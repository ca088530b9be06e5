package httpapi

import (
	"net/http"
	"strings"
)

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	eff := s.cfg.Snapshot()
	if eff.MediaRoot == "" {
		writeJSON(w, http.StatusNotFound, envelope{"error": "not_found"})
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/media/")
	path, ok := safeJoin(eff.MediaRoot, rel)
	if !ok {
		writeJSON(w, http.StatusForbidden, envelope{"error": "forbidden"})
		return
	}

	serveFile(w, r, path)
}
