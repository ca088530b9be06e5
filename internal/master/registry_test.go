package master

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snokvist/autod-sub000/internal/config"
	"github.com/snokvist/autod-sub000/internal/syncproto"
)

func noopLog() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return l
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRegisterAssignsPreferredSlotWithCommands(t *testing.T) {
	specs := []config.SlotSpec{
		{Name: "primary", PreferID: "slaveA", Exec: []config.RawCommand{`{"path":"/sys/ping","args":["1.2.3.4"]}`}},
	}
	r := New(noopLog(), specs, 0, 0, nil)

	resp := r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.5", time.Now())
	if resp.Status != "registered" {
		t.Fatalf("expected registered, got %+v", resp)
	}
	if resp.Slot == nil || *resp.Slot != 0 {
		t.Fatalf("expected slot 0, got %+v", resp.Slot)
	}
	if resp.SlotGeneration != 1 || resp.Generation != 1 {
		t.Fatalf("expected generation 1, got %+v", resp)
	}
	if len(resp.Commands) != 1 || resp.Commands[0].Path != "/sys/ping" {
		t.Fatalf("expected one command, got %+v", resp.Commands)
	}
	if resp.SlotLabel != "primary" {
		t.Fatalf("expected slot label primary, got %q", resp.SlotLabel)
	}

	// second registration with matching ack_generation omits commands.
	resp2 := r.Register(syncproto.RegisterRequest{ID: "slaveA", AckGeneration: 1}, "10.0.0.5", time.Now())
	if len(resp2.Commands) != 0 {
		t.Fatalf("expected no commands on acked re-registration, got %+v", resp2.Commands)
	}
	if resp2.Generation != 0 {
		t.Fatalf("expected generation 0 when acked, got %d", resp2.Generation)
	}
}

func TestRegisterEchoesConfiguredInterval(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}}
	r := New(noopLog(), specs, 0, 30, nil)
	resp := r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())
	if resp.IntervalS != 30 {
		t.Fatalf("expected configured interval 30 echoed back, got %d", resp.IntervalS)
	}
}

func TestRegisterIntervalDefaultsWhenUnset(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}}
	r := New(noopLog(), specs, 0, 0, nil)
	resp := r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())
	if resp.IntervalS != 15 {
		t.Fatalf("expected default interval 15 when unconfigured, got %d", resp.IntervalS)
	}
}

func TestRegisterNoSlotsAvailable(t *testing.T) {
	r := New(noopLog(), nil, 0, 0, nil)
	resp := r.Register(syncproto.RegisterRequest{ID: "slaveX"}, "10.0.0.1", time.Now())
	if resp.Status != "waiting" || resp.Reason != "no_slots_available" {
		t.Fatalf("expected waiting/no_slots_available, got %+v", resp)
	}
}

func TestRegisterDisplacesAndReassignsDisplacedSlave(t *testing.T) {
	specs := []config.SlotSpec{
		{Name: "s0", PreferID: "slaveA"},
		{Name: "s1", PreferID: ""},
	}
	r := New(noopLog(), specs, 0, 0, nil)

	// slaveB has no preferred slot, so it takes the first empty slot via
	// fallback: slot 0, which slaveA prefers.
	r.Register(syncproto.RegisterRequest{ID: "slaveB"}, "10.0.0.2", time.Now())
	// Now slaveA registers and should displace whoever holds slot 0 (its
	// preferred slot), re-homing the displaced slave elsewhere.
	respA := r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())
	if respA.Slot == nil || *respA.Slot != 0 {
		t.Fatalf("expected slaveA to take its preferred slot 0, got %+v", respA.Slot)
	}

	view := r.Slaves()
	var bSlot int = -2
	for _, sv := range view.Slaves {
		if sv.ID == "slaveB" {
			bSlot = sv.SlotIndex
		}
	}
	if bSlot == 0 || bSlot == -2 {
		t.Fatalf("expected slaveB re-homed off slot 0, got %d", bSlot)
	}
}

func TestRegisterKeepsExistingSlotOnReconnect(t *testing.T) {
	specs := []config.SlotSpec{{Name: "s0"}, {Name: "s1"}}
	r := New(noopLog(), specs, 0, 0, nil)

	first := r.Register(syncproto.RegisterRequest{ID: "slaveA"}, "10.0.0.1", time.Now())
	second := r.Register(syncproto.RegisterRequest{ID: "slaveA", AckGeneration: first.SlotGeneration}, "10.0.0.1", time.Now())
	if *second.Slot != *first.Slot {
		t.Fatalf("expected slave to keep its slot across registrations: %d vs %d", *first.Slot, *second.Slot)
	}
}
