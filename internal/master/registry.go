package master

import (
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snokvist/autod-sub000/internal/config"
	"github.com/snokvist/autod-sub000/internal/scanner"
	"github.com/snokvist/autod-sub000/internal/syncproto"
)

// SlaveRecord is the master's bookkeeping for one slave, keyed by its
// self-chosen identifier.
type SlaveRecord struct {
	InUse               bool
	ID                  string
	RemoteIP            string
	CallbackURL         string
	Device              string
	Role                string
	Version             string
	Caps                string
	LastSeenMS          int64
	SlotIndex           int // -1 if unassigned
	LastAckedGeneration uint32
}

const defaultSlaveCapacity = 64

// Registry is the master-side slave table plus the slot table, guarded
// by one mutex as required by spec.md §5 ("all multi-field transitions
// happen under it").
type Registry struct {
	mu sync.Mutex

	log *logrus.Entry

	slaves   map[string]*SlaveRecord
	capacity int

	slots     *SlotTable
	slotSpecs []config.SlotSpec

	retentionS        int
	registerIntervalS int

	knownHosts *scanner.Registry // opportunistic probe target seeding
}

// New builds a Registry from the configured slot specs. Each
// configured slot gets one table entry, in order. registerIntervalS is
// the operator's configured `[sync] register_interval_s`, echoed back
// to every slave in its registration response so a reconnecting slave
// re-adopts the master's poll cadence instead of whatever default it
// started with.
func New(log *logrus.Logger, slotSpecs []config.SlotSpec, retentionS, registerIntervalS int, knownHosts *scanner.Registry) *Registry {
	if registerIntervalS <= 0 {
		registerIntervalS = 15
	}
	return &Registry{
		log:               log.WithField("component", "master"),
		slaves:            make(map[string]*SlaveRecord),
		capacity:          defaultSlaveCapacity,
		slots:             NewSlotTable(len(slotSpecs)),
		slotSpecs:         slotSpecs,
		retentionS:        retentionS,
		registerIntervalS: registerIntervalS,
		knownHosts:        knownHosts,
	}
}

func (r *Registry) preferredSlotFor(slaveID string) int {
	for i, spec := range r.slotSpecs {
		if spec.PreferID == slaveID {
			return i
		}
	}
	return -1
}

func (r *Registry) overrideFor(slotIdx int, assignee string) bool {
	if slotIdx < 0 || slotIdx >= len(r.slotSpecs) {
		return assignee != ""
	}
	return assignee != "" && assignee != r.slotSpecs[slotIdx].PreferID
}

func (r *Registry) doAssign(slotIdx int, assignee string) uint32 {
	return r.slots.assign(slotIdx, assignee, r.overrideFor(slotIdx, assignee))
}

// assignSlot implements spec.md §4.4.1 step 4's ordered policy,
// carrying `forbidden` through the recursive displacement call per
// spec.md §9's "slot policy recursion" note.
func (r *Registry) assignSlot(slaveID string, forbidden int) int {
	if idx := r.slots.findByAssignee(slaveID); idx >= 0 {
		return idx
	}

	if p := r.preferredSlotFor(slaveID); p >= 0 && p != forbidden {
		existing, _ := r.slots.Get(p)
		if existing.Assignee == "" || existing.Assignee == slaveID {
			r.doAssign(p, slaveID)
			return p
		}
		displaced := existing.Assignee
		r.doAssign(p, slaveID)
		newIdx := r.assignSlot(displaced, p)
		if rec, ok := r.slaves[displaced]; ok {
			rec.SlotIndex = newIdx
			rec.LastAckedGeneration = 0
		}
		return p
	}

	if e := r.slots.findEmpty(); e >= 0 && e != forbidden {
		r.doAssign(e, slaveID)
		return e
	}

	return -1
}

// pruneLocked releases slots whose assignee record is missing or past
// retention, and deletes slaveless records past retention. Caller
// holds mu.
func (r *Registry) pruneLocked(nowMS int64) {
	for i := 0; i < r.slots.Len(); i++ {
		s, _ := r.slots.Get(i)
		if s.Assignee == "" {
			continue
		}
		rec, ok := r.slaves[s.Assignee]
		if !ok {
			r.slots.release(i)
			continue
		}
		if r.retentionS > 0 && nowMS-rec.LastSeenMS > int64(r.retentionS)*1000 {
			r.slots.release(i)
			rec.SlotIndex = -1
		}
	}
	if r.retentionS <= 0 {
		return
	}
	for id, rec := range r.slaves {
		if rec.SlotIndex >= 0 {
			continue
		}
		if nowMS-rec.LastSeenMS > int64(r.retentionS)*1000 {
			delete(r.slaves, id)
		}
	}
}

// Register implements POST /sync/register.
func (r *Registry) Register(req syncproto.RegisterRequest, remoteIP string, now time.Time) syncproto.RegisterResponse {
	r.mu.Lock()
	defer r.mu.Unlock()

	nowMS := now.UnixMilli()
	r.pruneLocked(nowMS)

	rec, existed := r.slaves[req.ID]
	if !existed {
		if len(r.slaves) >= r.capacity {
			r.log.WithField("id", req.ID).Warn("slave table at capacity, accepting new registration anyway")
		}
		rec = &SlaveRecord{ID: req.ID, SlotIndex: -1}
		r.slaves[req.ID] = rec
	}
	rec.InUse = true
	rec.RemoteIP = remoteIP
	rec.LastSeenMS = nowMS
	if req.Device != "" {
		rec.Device = req.Device
	}
	if req.Role != "" {
		rec.Role = req.Role
	}
	if req.Version != "" {
		rec.Version = req.Version
	}
	if req.CallbackURL != "" {
		rec.CallbackURL = req.CallbackURL
	}
	if caps := req.CapsList(); caps != "" {
		rec.Caps = caps
	}

	if r.knownHosts != nil && remoteIP != "" && req.Address != "" {
		if port, err := portOf(req.Address); err == nil {
			r.knownHosts.EnsureKnownHost(remoteIP, port)
		}
	}

	prevSlot := rec.SlotIndex
	slotIdx := r.assignSlot(req.ID, -1)
	rec.SlotIndex = slotIdx

	if slotIdx < 0 {
		return syncproto.RegisterResponse{Status: "waiting", Slot: nil, Reason: "no_slots_available"}
	}

	slot, _ := r.slots.Get(slotIdx)

	if slotIdx != prevSlot {
		rec.LastAckedGeneration = 0
	} else if req.AckGeneration > slot.Generation {
		rec.LastAckedGeneration = 0
	} else {
		rec.LastAckedGeneration = req.AckGeneration
	}

	resp := syncproto.RegisterResponse{
		Status:         "registered",
		ID:             req.ID,
		IntervalS:      r.registerIntervalS,
		Slot:           intPtr(slotIdx),
		SlotGeneration: slot.Generation,
	}
	if slotIdx < len(r.slotSpecs) {
		resp.SlotLabel = r.slotSpecs[slotIdx].Name
	}

	if slot.Generation > rec.LastAckedGeneration {
		resp.Generation = slot.Generation
		resp.Commands = r.renderCommands(slotIdx)
	}

	return resp
}

// Slaves implements GET /sync/slaves.
func (r *Registry) Slaves() syncproto.SlavesView {
	r.mu.Lock()
	defer r.mu.Unlock()

	var view syncproto.SlavesView
	for _, rec := range r.slaves {
		view.Slaves = append(view.Slaves, syncproto.SlaveView{
			ID:                  rec.ID,
			RemoteIP:            rec.RemoteIP,
			CallbackURL:         rec.CallbackURL,
			Device:              rec.Device,
			Role:                rec.Role,
			Version:             rec.Version,
			Caps:                rec.Caps,
			LastSeenMS:          rec.LastSeenMS,
			SlotIndex:           rec.SlotIndex,
			LastAckedGeneration: rec.LastAckedGeneration,
		})
	}
	for i := 0; i < r.slots.Len(); i++ {
		s, _ := r.slots.Get(i)
		sv := syncproto.SlotView{
			Index:      i,
			Assignee:   s.Assignee,
			Generation: s.Generation,
			Override:   s.Override,
		}
		if i < len(r.slotSpecs) {
			sv.PreferID = r.slotSpecs[i].PreferID
			sv.Label = r.slotSpecs[i].Name
		}
		view.Slots = append(view.Slots, sv)
	}
	return view
}

func intPtr(i int) *int { return &i }

// portOf extracts a port number from an announced callback address,
// which may be a bare port ("8080"), ":8080", or "host:8080".
func portOf(addr string) (int, error) {
	if _, portStr, err := net.SplitHostPort(addr); err == nil {
		return strconv.Atoi(portStr)
	}
	return strconv.Atoi(addr)
}
