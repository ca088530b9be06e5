package httpapi

import "net/http"

type nodeView struct {
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Role     string `json:"role,omitempty"`
	Device   string `json:"device,omitempty"`
	Version  string `json:"version,omitempty"`
	LastSeen int64  `json:"last_seen"`
	SeenScan int64  `json:"seen_scan"`
	Misses   int    `json:"misses"`
	IsSelf   bool   `json:"is_self"`
}

type scanStatusView struct {
	Running      bool  `json:"running"`
	Targets      int64 `json:"targets"`
	Done         int64 `json:"done"`
	ProgressPct  int   `json:"progress_pct"`
	LastStarted  int64 `json:"last_started"`
	LastFinished int64 `json:"last_finished"`
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		nodes := s.scn.Registry.All()
		views := make([]nodeView, 0, len(nodes))
		for _, n := range nodes {
			views = append(views, nodeView{
				IP: n.IP, Port: n.Port, Role: n.Role, Device: n.Device, Version: n.Version,
				LastSeen: n.LastSeen, SeenScan: n.SeenScan, Misses: n.Misses, IsSelf: n.IsSelf,
			})
		}
		st := s.scn.Status()
		writeJSON(w, http.StatusOK, envelope{
			"nodes": views,
			"scan_status": scanStatusView{
				Running: st.Running, Targets: st.Targets, Done: st.Done,
				ProgressPct: st.ProgressPct(), LastStarted: st.LastStarted, LastFinished: st.LastFinished,
			},
		})

	case http.MethodPost:
		if !s.cfg.Snapshot().EnableScan {
			writeJSON(w, http.StatusBadRequest, envelope{"error": "scan_disabled"})
			return
		}
		if started := s.scn.Start(); !started {
			st := s.scn.Status()
			writeJSON(w, http.StatusAccepted, envelope{
				"status": "already_running",
				"scan_status": scanStatusView{
					Running: st.Running, Targets: st.Targets, Done: st.Done,
					ProgressPct: st.ProgressPct(), LastStarted: st.LastStarted, LastFinished: st.LastFinished,
				},
			})
			return
		}
		writeJSON(w, http.StatusAccepted, envelope{"status": "started"})

	default:
		methodNotAllowed(w)
	}
}
