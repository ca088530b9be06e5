package scanner

import "testing"

func TestRegistryUpsertPreservesIsSelf(t *testing.T) {
	r := NewRegistry()
	r.Upsert(NodeRecord{IP: "10.0.0.1", Port: 80, IsSelf: true})
	r.Upsert(NodeRecord{IP: "10.0.0.1", Port: 80, Role: "slave"})

	n, ok := r.Get("10.0.0.1", 80)
	if !ok {
		t.Fatal("expected record to exist")
	}
	if !n.IsSelf {
		t.Fatal("IsSelf must survive an upsert that doesn't set it")
	}
	if n.Role != "slave" {
		t.Fatalf("expected role to update, got %q", n.Role)
	}
}

func TestPruneAfterScanRemovesStale(t *testing.T) {
	r := NewRegistry()
	r.Upsert(NodeRecord{IP: "10.0.0.2", Port: 80, SeenScan: 1})
	r.Upsert(NodeRecord{IP: "10.0.0.3", Port: 80, IsSelf: true, SeenScan: 1})

	r.PruneAfterScan(2, 2) // neither was seen in scan 2
	n2, ok2 := r.Get("10.0.0.2", 80)
	if !ok2 || n2.Misses != 1 {
		t.Fatalf("expected 1 miss after first stale scan, got %+v ok=%v", n2, ok2)
	}
	if _, ok := r.Get("10.0.0.3", 80); !ok {
		t.Fatal("self node must never be pruned")
	}

	r.PruneAfterScan(3, 2)
	if _, ok := r.Get("10.0.0.2", 80); !ok {
		t.Fatal("expected 2 misses still present")
	}
	r.PruneAfterScan(4, 2)
	if _, ok := r.Get("10.0.0.2", 80); ok {
		t.Fatal("expected node pruned after exceeding stale_max_misses")
	}
}

func TestFindBySyncID(t *testing.T) {
	r := NewRegistry()
	r.Upsert(NodeRecord{IP: "10.0.0.9", Port: 80, SyncID: "masterA"})
	n, ok := r.FindBySyncID("masterA")
	if !ok || n.IP != "10.0.0.9" {
		t.Fatalf("expected to find masterA, got %+v ok=%v", n, ok)
	}
	if _, ok := r.FindBySyncID("missing"); ok {
		t.Fatal("expected no match for unknown id")
	}
}
