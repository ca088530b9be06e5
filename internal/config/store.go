package config

import "sync"

// Store holds the base config parsed at startup and the effective
// config derived from it, guarded by one RWMutex. Readers always get
// a value copy; the lock is never held across a handler's work.
//
// This mirrors the snapshot idiom the teacher uses for its shared
// server state (internal/coordinator's node list, guarded the same
// way): copy under RLock, use without the lock held.
type Store struct {
	mu        sync.RWMutex
	base      Base
	effective Effective
}

// NewStore builds a Store from a parsed Base and derives the initial
// effective config.
func NewStore(base Base) *Store {
	s := &Store{base: base}
	s.rebuild()
	return s
}

// rebuild derives Effective from Base. Must be called with mu held
// for writing.
func (s *Store) rebuild() {
	s.effective = Effective{Base: s.base}
}

// Snapshot returns a value copy of the effective config.
func (s *Store) Snapshot() Effective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effective
}

// BaseSnapshot returns a value copy of the base config.
func (s *Store) BaseSnapshot() Base {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

// ApplyBind implements the transient overlay written by POST
// /sync/bind: it never mutates Base, only the effective overlay.
func (s *Store) ApplyBind(masterURL string, intervalS int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rebuild()
	s.effective.MasterURLOverride = masterURL
	s.effective.HasMasterURLOverride = true
	if intervalS > 0 {
		s.effective.RegisterIntervalOverride = intervalS
		s.effective.HasRegisterIntervalOverride = true
	}
}

// ReplaceBase atomically swaps the base config (used by a future
// config-reload trigger) and rebuilds the effective config, dropping
// any transient overlay in the process.
func (s *Store) ReplaceBase(base Base) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.base = base
	s.rebuild()
}
