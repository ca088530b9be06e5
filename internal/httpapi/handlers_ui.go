package httpapi

import (
	"net/http"
	"strings"
)

func (s *Server) handleUIAsset(w http.ResponseWriter, r *http.Request) {
	eff := s.cfg.Snapshot()
	if !eff.ServeUI || eff.UIPath == "" {
		writeJSON(w, http.StatusNotFound, envelope{"error": "not_found"})
		return
	}

	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel == "" {
		rel = "index.html"
	}

	path, ok := safeJoin(eff.UIPath, rel)
	if !ok {
		writeJSON(w, http.StatusForbidden, envelope{"error": "forbidden"})
		return
	}

	serveFile(w, r, path)
}
