package master

import (
	"testing"
	"time"

	"github.com/snokvist/autod-sub000/internal/config"
	"github.com/snokvist/autod-sub000/internal/syncproto"
)

func TestPushMovesSlave(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0", PreferID: "slaveA"}, {Name: "s1"}}
	r := New(noopLog(), specs, 0, 0, nil)
	r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())

	slot1 := 1
	resp, err := r.Push(syncproto.PushRequest{Moves: []syncproto.Move{{SlaveID: "slaveA", Slot: &slot1}}})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.Status != "updated" {
		t.Fatalf("expected updated, got %+v", resp)
	}
	found := false
	for _, a := range resp.Assignments {
		if a.SlaveID == "slaveA" && a.Slot == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected slaveA at slot 1, got %+v", resp.Assignments)
	}

	// slot 0 should now be empty (released)
	s0, _ := r.slots.Get(0)
	if s0.Assignee != "" {
		t.Fatalf("expected slot 0 released, got assignee %q", s0.Assignee)
	}
}

func TestPushMoveDisplacesOccupantNotInMoveSet(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}, {Name: "s1"}}
	r := New(noopLog(), specs, 0, 0, nil)
	r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())
	r.Register(syncproto.RegisterRequest{ID: "slaveB"}, "10.0.0.2", time.Now())

	// slaveA and slaveB now each hold a slot (0 and 1, in registration
	// order). Push slaveB onto slaveA's slot without mentioning slaveA
	// at all, as an admin re-push would.
	aSlot := r.slaves["slaveA"].SlotIndex
	resp, err := r.Push(syncproto.PushRequest{Moves: []syncproto.Move{{SlaveID: "slaveB", Slot: &aSlot}}})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}

	seenSlot := map[int]string{}
	for _, a := range resp.Assignments {
		seenSlot[a.Slot] = a.SlaveID
	}
	if seenSlot[aSlot] != "slaveB" {
		t.Fatalf("expected slaveB to now hold slot %d, got %+v", aSlot, seenSlot)
	}

	// slaveA's record must no longer point at a slot slaveB now owns.
	recA := r.slaves["slaveA"]
	if recA.SlotIndex == aSlot {
		t.Fatalf("slaveA record still points at displaced slot %d", aSlot)
	}

	// Slot uniqueness: no two slots may share an assignee, and no
	// in-use slave's SlotIndex may point at a slot it doesn't own.
	for _, rec := range r.slaves {
		if rec.SlotIndex < 0 {
			continue
		}
		s, err := r.slots.Get(rec.SlotIndex)
		if err != nil || s.Assignee != rec.ID {
			t.Fatalf("slave %q's SlotIndex %d does not match slot assignee %q", rec.ID, rec.SlotIndex, s.Assignee)
		}
	}
}

func TestPushUnknownSlaveIs404(t *testing.T) {
	r := New(noopLog(), []config.SlotSpec{{Name: "s0"}}, 0, 0, nil)
	slot0 := 0
	_, err := r.Push(syncproto.PushRequest{Moves: []syncproto.Move{{SlaveID: "ghost", Slot: &slot0}}})
	perr, ok := err.(*PushError)
	if !ok || perr.Status != 404 {
		t.Fatalf("expected 404 PushError, got %v", err)
	}
}

func TestPushOutOfRangeSlotIs400(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}}
	r := New(noopLog(), specs, 0, 0, nil)
	r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())

	bad := 99
	_, err := r.Push(syncproto.PushRequest{Moves: []syncproto.Move{{SlaveID: "slaveA", Slot: &bad}}})
	perr, ok := err.(*PushError)
	if !ok || perr.Status != 400 {
		t.Fatalf("expected 400 PushError, got %v", err)
	}
}

func TestPushIdempotenceGenerationIncreasesOncePerTransition(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}, {Name: "s1"}}
	r := New(noopLog(), specs, 0, 0, nil)
	r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())

	slot1 := 1
	req := syncproto.PushRequest{Moves: []syncproto.Move{{SlaveID: "slaveA", Slot: &slot1}}}
	resp1, err := r.Push(req)
	if err != nil {
		t.Fatalf("Push 1: %v", err)
	}
	resp2, err := r.Push(req)
	if err != nil {
		t.Fatalf("Push 2: %v", err)
	}
	var gen1, gen2 uint32
	for _, a := range resp1.Assignments {
		if a.Slot == 1 {
			gen1 = a.Generation
		}
	}
	for _, a := range resp2.Assignments {
		if a.Slot == 1 {
			gen2 = a.Generation
		}
	}
	if gen2 != gen1+1 {
		t.Fatalf("expected generation to bump by exactly 1 per push, got %d -> %d", gen1, gen2)
	}
}

func TestPushDeleteReleasesSlot(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}}
	r := New(noopLog(), specs, 0, 0, nil)
	r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())

	resp, err := r.Push(syncproto.PushRequest{DeleteIDs: []string{"slaveA"}})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.Deleted != 1 || resp.DeletedIDs[0] != "slaveA" {
		t.Fatalf("expected 1 deletion, got %+v", resp)
	}
	view := r.Slaves()
	if len(view.Slaves) != 0 {
		t.Fatalf("expected slave removed from registry, got %+v", view.Slaves)
	}
}

func TestPushReplaySlotsForcesGeneration(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}}
	r := New(noopLog(), specs, 0, 0, nil)
	regResp := r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())

	resp, err := r.Push(syncproto.PushRequest{ReplaySlots: []int{0}})
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	if resp.ReplayedSlots != 1 {
		t.Fatalf("expected 1 replayed slot, got %d", resp.ReplayedSlots)
	}
	var newGen uint32
	for _, a := range resp.Assignments {
		if a.Slot == 0 {
			newGen = a.Generation
		}
	}
	if newGen <= regResp.SlotGeneration {
		t.Fatalf("expected generation to advance on replay, had %d now %d", regResp.SlotGeneration, newGen)
	}
}
