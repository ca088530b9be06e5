package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore(Base{Port: 80})
	snap := s.Snapshot()
	require.Equal(t, 80, snap.Port)

	s.ReplaceBase(Base{Port: 81})
	if snap.Port != 80 {
		t.Fatalf("prior snapshot mutated after ReplaceBase: %+v", snap)
	}
	if got := s.Snapshot().Port; got != 81 {
		t.Fatalf("expected new snapshot port 81, got %d", got)
	}
}

func TestApplyBindOverlay(t *testing.T) {
	s := NewStore(Base{MasterURL: "http://10.0.0.1:8080", RegisterIntervalS: 15})

	s.ApplyBind("sync://nodeB/x", 30)
	eff := s.Snapshot()
	require.Equal(t, "sync://nodeB/x", eff.ResolvedMasterURL())
	require.Equal(t, 30, eff.ResolvedRegisterIntervalS())

	if got := s.BaseSnapshot().MasterURL; got != "http://10.0.0.1:8080" {
		t.Fatalf("bind must not mutate base: %q", got)
	}
}

func TestResolvedRegisterIntervalDefault(t *testing.T) {
	eff := Effective{Base: Base{}}
	if got := eff.ResolvedRegisterIntervalS(); got != 15 {
		t.Fatalf("expected default interval 15, got %d", got)
	}
}

func TestEffectiveRolePrefersSyncRole(t *testing.T) {
	eff := Effective{Base: Base{Role: "legacy", SyncRole: "master"}}
	if got := eff.EffectiveRole(); got != "master" {
		t.Fatalf("expected sync role to win, got %q", got)
	}
}
