package slave

import (
	"fmt"

	"github.com/snokvist/autod-sub000/internal/scanner"
)

// Bind implements POST /sync/bind: it normalizes ref through the same
// sync://<id>/path canonicalization used at registration time (so a
// bad reference is rejected up front) and installs it as the config
// store's transient override. Rebinding resets ack tracking so the
// slave treats the new master as a fresh registration.
func (l *Loop) Bind(ref string, intervalS int) (string, error) {
	if l.cfg.Snapshot().EffectiveRole() != "slave" {
		return "", fmt.Errorf("slave: bind is only valid in slave role")
	}
	if !l.cfg.Snapshot().AllowBind {
		return "", fmt.Errorf("slave: bind is not permitted by configuration")
	}

	normalized, err := normalizeBindRef(ref, l.nodes)
	if err != nil {
		return "", err
	}

	l.cfg.ApplyBind(normalized, intervalS)

	l.mu.Lock()
	l.appliedGeneration = 0
	l.lastReceivedGeneration = 0
	l.mu.Unlock()

	return normalized, nil
}

// normalizeBindRef accepts either a literal HTTP(S) URL (kept as-is)
// or a sync://<id>[/path] reference, which is validated against the
// scanner registry without being expanded (the loop resolves it fresh
// on every registration attempt, since the target node's address may
// change between binds).
func normalizeBindRef(ref string, nodes *scanner.Registry) (string, error) {
	if _, err := resolveRef(ref, nodes); err != nil {
		return "", err
	}
	return ref, nil
}
