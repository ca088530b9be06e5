// Package scanner discovers peer nodes on the local network by
// concurrently probing planned targets' /health and /caps endpoints,
// and maintains a freshness-tracked registry of what it found.
package scanner

import "time"

// NodeRecord is the scanner's bookkeeping for one reachable peer,
// keyed by (IP, Port).
type NodeRecord struct {
	IP       string
	Port     int
	SyncID   string // the node's [sync].id, used to resolve sync://<id> references
	Role     string
	Device   string
	Version  string
	LastSeen int64 // unix seconds
	SeenScan int64 // sequence number of the most recent scan that observed it
	Misses   int
	IsSelf   bool
}

// Status is the point-in-time progress of the scanner.
type Status struct {
	Running      bool
	Targets      int64
	Done         int64
	LastStarted  int64
	LastFinished int64
}

// ProgressPct returns 100*done/targets, or 0 when there are no targets.
func (s Status) ProgressPct() int {
	if s.Targets == 0 {
		return 0
	}
	return int(100 * s.Done / s.Targets)
}

// capsResponse is the subset of /caps this scanner cares about when
// probing a peer (the peer's own daemon returns the full shape
// described in spec.md §4.1; only id/role/device/version feed the
// registry, id being stored as the node's SyncID).
type capsResponse struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Device  string `json:"device"`
	Version string `json:"version"`
}

func nowUnix() int64 { return time.Now().Unix() }
