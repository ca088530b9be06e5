// Package syncproto holds the wire structs shared by the master and
// slave sides of the slot orchestration protocol, generalized from the
// teacher's internal/cluster request/response envelopes (one flat JSON
// struct per endpoint, JSON tags matching the wire field names).
package syncproto

import "encoding/json"

// CommandPayload is one handler invocation as delivered to a slave.
type CommandPayload struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
}

// RegisterRequest is the body of POST /sync/register.
type RegisterRequest struct {
	ID             string   `json:"id"`
	Device         string   `json:"device,omitempty"`
	Role           string   `json:"role,omitempty"`
	Version        string   `json:"version,omitempty"`
	Caps           any      `json:"caps,omitempty"` // string or []string on the wire
	Address        string   `json:"address,omitempty"`
	CallbackURL    string   `json:"callback_url,omitempty"`
	AckGeneration  uint32   `json:"ack_generation,omitempty"`
}

// CapsList normalizes the Caps field (string or []string) into a
// comma-joined string, per spec.md §4.4.1 step 2.
func (r RegisterRequest) CapsList() string {
	switch v := r.Caps.(type) {
	case string:
		return v
	case []any:
		var parts []string
		for _, e := range v {
			if s, ok := e.(string); ok {
				parts = append(parts, s)
			}
		}
		return joinComma(parts)
	case []string:
		return joinComma(v)
	default:
		return ""
	}
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// RegisterResponse is the body returned from POST /sync/register.
type RegisterResponse struct {
	Status         string           `json:"status"`
	ID             string           `json:"id,omitempty"`
	IntervalS      int              `json:"interval_s,omitempty"`
	Generation     uint32           `json:"generation,omitempty"`
	Slot           *int             `json:"slot"`
	SlotGeneration uint32           `json:"slot_generation,omitempty"`
	SlotLabel      string           `json:"slot_label,omitempty"`
	Commands       []CommandPayload `json:"commands,omitempty"`
	Reason         string           `json:"reason,omitempty"`
}

// SlaveView is one row of GET /sync/slaves.
type SlaveView struct {
	ID                  string `json:"id"`
	RemoteIP            string `json:"remote_ip,omitempty"`
	CallbackURL         string `json:"callback_url,omitempty"`
	Device              string `json:"device,omitempty"`
	Role                string `json:"role,omitempty"`
	Version             string `json:"version,omitempty"`
	Caps                string `json:"caps,omitempty"`
	LastSeenMS          int64  `json:"last_seen_ms"`
	SlotIndex           int    `json:"slot_index"`
	LastAckedGeneration uint32 `json:"last_ack_generation"`
}

// SlotView is one row of the slot table in GET /sync/slaves.
type SlotView struct {
	Index      int    `json:"index"`
	Assignee   string `json:"assignee,omitempty"`
	Generation uint32 `json:"generation"`
	Override   bool   `json:"override"`
	PreferID   string `json:"prefer_id,omitempty"`
	Label      string `json:"label,omitempty"`
}

// SlavesView is the full body of GET /sync/slaves.
type SlavesView struct {
	Slaves []SlaveView `json:"slaves"`
	Slots  []SlotView  `json:"slots"`
}

// Move is one entry in POST /sync/push's moves array.
type Move struct {
	SlaveID string `json:"slave_id"`
	Slot    *int   `json:"slot"` // nil means unassign
}

// PushRequest is the body of POST /sync/push.
type PushRequest struct {
	Moves       []Move   `json:"moves"`
	ReplaySlots []int    `json:"replay_slots,omitempty"`
	ReplayIDs   []string `json:"replay_ids,omitempty"`
	DeleteIDs   []string `json:"delete_ids,omitempty"`
}

// Assignment is one entry in PushResponse.Assignments.
type Assignment struct {
	Slot       int    `json:"slot"`
	SlaveID    string `json:"slave_id"`
	Generation uint32 `json:"generation"`
	SlotLabel  string `json:"slot_label,omitempty"`
}

// PushResponse is the body returned from POST /sync/push.
type PushResponse struct {
	Status        string       `json:"status"`
	Moves         int          `json:"moves"`
	ReplayedSlots int          `json:"replayed_slots"`
	Deleted       int          `json:"deleted"`
	DeletedIDs    []string     `json:"deleted_ids,omitempty"`
	Assignments   []Assignment `json:"assignments"`
}

// BindRequest is the body of POST /sync/bind.
type BindRequest struct {
	MasterRef         string `json:"master_ref"`
	RegisterIntervalS int    `json:"register_interval_s,omitempty"`
}

// BindResponse echoes the normalized master reference.
type BindResponse struct {
	Status            string `json:"status"`
	MasterRef         string `json:"master_ref"`
	RegisterIntervalS int    `json:"register_interval_s"`
}

// MarshalRaw is a convenience used when re-encoding a decoded request
// for logging without re-parsing.
func MarshalRaw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
