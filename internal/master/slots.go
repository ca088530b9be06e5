// Package master implements the master-side slot orchestrator:
// the slave registry, slot table, and the registration/push handlers
// that implement spec.md §4.4.1.
//
// SlotTable generalizes the teacher's coordinator.ShardRegistry
// (internal/coordinator/shard_registry.go): ShardAssignment's static
// NodeID/IsPrimary/ShardID become Slot's Assignee/Generation/Override,
// and AssignShard's plain overwrite becomes assign(), which always
// bumps the slot's generation (wrapping 0 to 1, generation zero being
// reserved for "never issued").
package master

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Slot is one fixed-index bucket in the slot table.
type Slot struct {
	Assignee   string
	Generation uint32
	Override   bool
}

// SlotTable is a fixed-size array of slots with no lock of its own.
// It is embedded in Registry rather than used standalone, since every
// mutation in spec.md §4.4.1 also touches the slave table under the
// same lock.
type SlotTable struct {
	slots []Slot
}

// NewSlotTable allocates n slots, all initially empty.
func NewSlotTable(n int) *SlotTable {
	return &SlotTable{slots: make([]Slot, n)}
}

// Len returns the number of slots.
func (t *SlotTable) Len() int { return len(t.slots) }

// Get returns a copy of slot i. Callers must already hold the
// Registry's lock; this type has no lock of its own.
func (t *SlotTable) Get(i int) (Slot, error) {
	if i < 0 || i >= len(t.slots) {
		return Slot{}, fmt.Errorf("master: slot index %d out of range", i)
	}
	return t.slots[i], nil
}

// bumpGeneration advances a slot's generation by one, wrapping 0 to 1
// (generation zero is reserved for "never issued").
func bumpGeneration(g uint32) uint32 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}

// assign sets slot i's assignee, always bumping its generation (the
// open question in spec.md §9 is resolved here as "preserve": even a
// no-op re-assignment bumps). override marks whether this differs
// from the slot's configured preference.
func (t *SlotTable) assign(i int, assignee string, override bool) uint32 {
	s := &t.slots[i]
	s.Assignee = assignee
	s.Override = override
	s.Generation = bumpGeneration(s.Generation)
	return s.Generation
}

// release empties slot i, bumping its generation so any slave still
// holding it observes the change.
func (t *SlotTable) release(i int) uint32 {
	return t.assign(i, "", false)
}

// replay forces slot i's generation to advance without changing its
// assignee or override flag, per spec.md §4.4.1 step 6's replay_slots
// / replay_ids handling.
func (t *SlotTable) replay(i int) uint32 {
	s := &t.slots[i]
	s.Generation = bumpGeneration(s.Generation)
	return s.Generation
}

// findByAssignee returns the index of the slot currently assigned to
// id, or -1. Uses slices.IndexFunc the same way the teacher locates a
// node by ID in its register handler.
func (t *SlotTable) findByAssignee(id string) int {
	return slices.IndexFunc(t.slots, func(s Slot) bool { return s.Assignee == id })
}

// findEmpty returns the index of the first empty slot, or -1.
func (t *SlotTable) findEmpty() int {
	return slices.IndexFunc(t.slots, func(s Slot) bool { return s.Assignee == "" })
}
