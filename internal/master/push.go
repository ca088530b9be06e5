package master

import (
	"fmt"

	"github.com/snokvist/autod-sub000/internal/syncproto"
)

// PushError carries the HTTP status a push validation failure should
// surface as (404 for an unknown slave, 400 for an out-of-range slot).
type PushError struct {
	Status int
	Msg    string
}

func (e *PushError) Error() string { return e.Msg }

func errSlaveNotFound(id string) error {
	return &PushError{Status: 404, Msg: fmt.Sprintf("slave %q not found", id)}
}

func errSlotOutOfRange(i int) error {
	return &PushError{Status: 400, Msg: fmt.Sprintf("slot %d out of range", i)}
}

// Push implements POST /sync/push per spec.md §4.4.1: validate fully
// before mutating anything, apply deletions, re-project moves, then
// honour replay requests, all under one lock so the whole call is
// atomic from any reader's perspective.
func (r *Registry) Push(req syncproto.PushRequest) (syncproto.PushResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.log.WithField("req", syncproto.MarshalRaw(req)).Debug("push request received")

	if err := r.validatePush(req); err != nil {
		return syncproto.PushResponse{}, err
	}

	deletedIDs := r.applyDeletes(req.DeleteIDs)
	r.applyMoves(req.Moves)
	replayed := r.applyReplay(req.ReplaySlots, req.ReplayIDs)

	return syncproto.PushResponse{
		Status:        "updated",
		Moves:         len(req.Moves),
		ReplayedSlots: replayed,
		Deleted:       len(deletedIDs),
		DeletedIDs:    deletedIDs,
		Assignments:   r.currentAssignments(),
	}, nil
}

func (r *Registry) validatePush(req syncproto.PushRequest) error {
	for _, m := range req.Moves {
		if _, ok := r.slaves[m.SlaveID]; !ok {
			return errSlaveNotFound(m.SlaveID)
		}
		if m.Slot != nil && (*m.Slot < 0 || *m.Slot >= r.slots.Len()) {
			return errSlotOutOfRange(*m.Slot)
		}
	}
	for _, id := range req.DeleteIDs {
		if _, ok := r.slaves[id]; !ok {
			return errSlaveNotFound(id)
		}
	}
	for _, id := range req.ReplayIDs {
		if _, ok := r.slaves[id]; !ok {
			return errSlaveNotFound(id)
		}
	}
	for _, s := range req.ReplaySlots {
		if s < 0 || s >= r.slots.Len() {
			return errSlotOutOfRange(s)
		}
	}
	return nil
}

func (r *Registry) applyDeletes(ids []string) []string {
	var deleted []string
	for _, id := range ids {
		rec, ok := r.slaves[id]
		if !ok {
			continue
		}
		if rec.SlotIndex >= 0 {
			r.slots.release(rec.SlotIndex)
		}
		delete(r.slaves, id)
		deleted = append(deleted, id)
	}
	return deleted
}

func (r *Registry) applyMoves(moves []syncproto.Move) {
	for _, m := range moves {
		// A slave moved to the slot it already holds is not released
		// first, so re-pushing the same assignment bumps that slot's
		// generation once (in doAssign below), not twice.
		if cur := r.slots.findByAssignee(m.SlaveID); cur >= 0 && (m.Slot == nil || *m.Slot != cur) {
			r.slots.release(cur)
			if rec, ok := r.slaves[m.SlaveID]; ok {
				rec.SlotIndex = -1
			}
		}
	}
	for _, m := range moves {
		if m.Slot == nil {
			continue
		}
		idx := *m.Slot

		// The slot's current occupant may be a slave that doesn't
		// appear anywhere in this push's moves (a plain admin
		// re-push). Evict it too, symmetrically with assignSlot's
		// displacement path, so no slave record is ever left
		// pointing at a slot some other slave now owns.
		if occ, _ := r.slots.Get(idx); occ.Assignee != "" && occ.Assignee != m.SlaveID {
			if rec, ok := r.slaves[occ.Assignee]; ok {
				rec.SlotIndex = -1
			}
		}

		r.doAssign(idx, m.SlaveID)
		if rec, ok := r.slaves[m.SlaveID]; ok {
			rec.SlotIndex = idx
			rec.LastAckedGeneration = 0
		}
	}
}

func (r *Registry) applyReplay(slots []int, ids []string) int {
	seen := map[int]bool{}
	for _, s := range slots {
		seen[s] = true
	}
	for _, id := range ids {
		if idx := r.slots.findByAssignee(id); idx >= 0 {
			seen[idx] = true
		}
	}
	for idx := range seen {
		r.slots.replay(idx)
		s, _ := r.slots.Get(idx)
		if s.Assignee != "" {
			if rec, ok := r.slaves[s.Assignee]; ok {
				rec.LastAckedGeneration = 0
			}
		}
	}
	return len(seen)
}

func (r *Registry) currentAssignments() []syncproto.Assignment {
	var out []syncproto.Assignment
	for i := 0; i < r.slots.Len(); i++ {
		s, _ := r.slots.Get(i)
		if s.Assignee == "" {
			continue
		}
		a := syncproto.Assignment{Slot: i, SlaveID: s.Assignee, Generation: s.Generation}
		if i < len(r.slotSpecs) {
			a.SlotLabel = r.slotSpecs[i].Name
		}
		out = append(out, a)
	}
	return out
}
