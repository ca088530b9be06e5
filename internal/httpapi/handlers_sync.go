package httpapi

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/snokvist/autod-sub000/internal/syncproto"
)

func (s *Server) handleSyncRegister(w http.ResponseWriter, r *http.Request) {
	if s.master == nil {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "not_master"})
		return
	}

	var req syncproto.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w)
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "bad_request"})
		return
	}

	remoteIP := remoteHost(r.RemoteAddr)
	resp := s.master.Register(req, remoteIP, nowFunc())
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncSlaves(w http.ResponseWriter, r *http.Request) {
	if s.master == nil {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "not_master"})
		return
	}
	writeJSON(w, http.StatusOK, s.master.Slaves())
}

func (s *Server) handleSyncPush(w http.ResponseWriter, r *http.Request) {
	if s.master == nil {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "not_master"})
		return
	}

	var req syncproto.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w)
		return
	}

	resp, err := s.master.Push(req)
	if err != nil {
		writePushError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSyncBind(w http.ResponseWriter, r *http.Request) {
	if s.slaveLoop == nil {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "not_slave"})
		return
	}

	var req syncproto.BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badJSON(w)
		return
	}

	normalized, err := s.slaveLoop.Bind(req.MasterRef, req.RegisterIntervalS)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"error": "bind_failed", "detail": err.Error()})
		return
	}

	eff := s.cfg.Snapshot()
	writeJSON(w, http.StatusOK, syncproto.BindResponse{
		Status:            "bound",
		MasterRef:         normalized,
		RegisterIntervalS: eff.ResolvedRegisterIntervalS(),
	})
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
