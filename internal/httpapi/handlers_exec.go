package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/snokvist/autod-sub000/internal/execrunner"
)

type execRequest struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
}

type execResponse struct {
	RC        int    `json:"rc"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req execRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w)
		return
	}

	eff := s.cfg.Snapshot()
	res, err := execrunner.Run(r.Context(), execrunner.Request{
		Interpreter:    eff.Interpreter,
		Path:           req.Path,
		Args:           req.Args,
		TimeoutMS:      eff.TimeoutMS,
		MaxOutputBytes: eff.MaxOutputBytes,
	})
	if err != nil {
		s.log.WithError(err).Warn("exec failed to spawn")
		writeJSON(w, http.StatusInternalServerError, envelope{"error": "exec_failed"})
		return
	}

	writeJSON(w, http.StatusOK, execResponse{
		RC:        res.RC,
		ElapsedMS: res.ElapsedMS,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
	})
}
