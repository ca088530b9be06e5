package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/snokvist/autod-sub000/internal/sysinfo"
)

type runtimeSnapshot struct {
	UptimeS   *float64  `json:"uptime_s,omitempty"`
	LoadAvg   *[3]float64 `json:"load_avg,omitempty"`
	MemFreeKB *int64    `json:"mem_free_kb,omitempty"`
	MemAvailKB *int64   `json:"mem_available_kb,omitempty"`
	UnixTime  int64     `json:"unix_time"`
}

type ifaceInfo struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
}

type uiInfo struct {
	Served bool `json:"served"`
	Public bool `json:"public"`
}

type capsPayload struct {
	ID                 string            `json:"id"`
	Device             string            `json:"device"`
	Role               string            `json:"role"`
	Version            string            `json:"version"`
	Caps               []string          `json:"caps"`
	Runtime            runtimeSnapshot   `json:"runtime"`
	Interfaces         []ifaceInfo       `json:"interfaces,omitempty"`
	SSE                map[string]string `json:"sse,omitempty"`
	UI                 *uiInfo           `json:"ui,omitempty"`
	ScanFeatureEnabled bool              `json:"scan_feature_enabled"`
}

func (s *Server) handleCaps(w http.ResponseWriter, r *http.Request) {
	eff := s.cfg.Snapshot()

	rt := runtimeSnapshot{UnixTime: time.Now().Unix()}
	if v, ok := sysinfo.Uptime(); ok {
		rt.UptimeS = &v
	}
	if v, ok := sysinfo.LoadAvg(); ok {
		rt.LoadAvg = &v
	}
	if mi, ok := sysinfo.ReadMemInfo(); ok {
		rt.MemFreeKB = &mi.MemFreeKB
		rt.MemAvailKB = &mi.MemAvailableKB
	}

	caps := append([]string{}, eff.Caps...)
	switch eff.EffectiveRole() {
	case "master":
		caps = append(caps, "sync-master")
	case "slave":
		caps = append(caps, "sync-slave")
	}
	if eff.MediaRoot != "" {
		caps = append(caps, "dvr")
	}

	payload := capsPayload{
		ID:                 eff.SelfID,
		Device:             eff.Device,
		Role:               eff.EffectiveRole(),
		Version:            eff.Version,
		Caps:               caps,
		Runtime:            rt,
		ScanFeatureEnabled: eff.EnableScan,
	}

	if eff.IncludeNetInfo {
		if ifaces, err := sysinfo.Interfaces(); err == nil {
			for _, ifc := range ifaces {
				payload.Interfaces = append(payload.Interfaces, ifaceInfo{Name: ifc.Name, IP: ifc.IP})
			}
		}
	}

	if len(eff.SSE) > 0 {
		host := hostOnly(r.Host)
		payload.SSE = make(map[string]string, len(eff.SSE))
		for name, tmpl := range eff.SSE {
			sub := strings.ReplaceAll(tmpl, "{IP}", host)
			sub = strings.ReplaceAll(sub, "http://IP", "http://"+host)
			payload.SSE[name] = sub
		}
	}

	if eff.ServeUI {
		payload.UI = &uiInfo{Served: true, Public: eff.UIPublic}
	}

	writeJSON(w, http.StatusOK, payload)
}

func hostOnly(hostHeader string) string {
	host := hostHeader
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
