// Package config implements the base/effective configuration snapshot
// layer: an immutable value parsed from an INI file plus a small
// transient overlay applied through /sync/bind.
package config

// SlotSpec is one [sync.slotN] section: a named slot with an optional
// preferred slave id and an ordered list of raw command templates.
type SlotSpec struct {
	Name     string
	PreferID string
	Exec     []RawCommand
}

// RawCommand is the unparsed JSON body of one `exec=` line in a slot
// section. It is kept raw so one malformed entry does not invalidate
// the whole slot (see master.renderCommands).
type RawCommand string

// Base is everything derived purely from the on-disk INI file.
type Base struct {
	// [server]
	Bind        string
	Port        int
	EnableScan  bool

	// [exec]
	Interpreter    string
	TimeoutMS      int
	MaxOutputBytes int

	// [caps]
	Device         string
	Role           string // "", "master", "slave"
	Version        string
	Caps           []string
	IncludeNetInfo bool

	// [announce]
	SSE map[string]string // name -> url template

	// [scan]
	ExtraCIDRs []string

	// [ui]
	UIPath   string
	ServeUI  bool
	UIPublic bool

	// [media] (dvr capability backing store; not a named section in
	// spec.md §6 but required by the /media contract in §4.1)
	MediaRoot string

	// [sync]
	SyncRole            string // "", "master", "slave" (mirrors Role when set)
	MasterURL           string
	SelfID              string
	RegisterIntervalS   int
	AllowBind           bool
	SlotRetentionS      int
	Slots               []SlotSpec
}

// Effective is Base plus any transient runtime overrides applied
// through POST /sync/bind. It is what handlers actually read.
type Effective struct {
	Base

	MasterURLOverride         string
	RegisterIntervalOverride  int
	HasMasterURLOverride      bool
	HasRegisterIntervalOverride bool
}

// ResolvedMasterURL returns the override when bound, else the
// configured master URL.
func (e Effective) ResolvedMasterURL() string {
	if e.HasMasterURLOverride {
		return e.MasterURLOverride
	}
	return e.MasterURL
}

// ResolvedRegisterIntervalS returns the override when bound, else the
// configured interval, else a default of 15 seconds.
func (e Effective) ResolvedRegisterIntervalS() int {
	if e.HasRegisterIntervalOverride {
		return e.RegisterIntervalOverride
	}
	if e.RegisterIntervalS > 0 {
		return e.RegisterIntervalS
	}
	return 15
}

// EffectiveRole reports the configured role, preferring [sync].role
// over the legacy [caps].role field.
func (e Effective) EffectiveRole() string {
	if e.SyncRole != "" {
		return e.SyncRole
	}
	return e.Role
}
