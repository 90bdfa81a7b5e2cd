package store

import "sync"

// SessionRegistry maps session ids (the room's shared secret string) to
// their message ledgers. Ledgers are created lazily on first touch; the
// registry guarantees exactly one ledger per id even when many goroutines
// race on the first reference.
type SessionRegistry struct {
	mu      sync.RWMutex
	ledgers map[string]*Ledger
}

// NewSessionRegistry returns an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{ledgers: make(map[string]*Ledger)}
}

// LedgerFor returns the ledger for sessionID, creating it when absent.
// created reports whether this call brought the ledger into existence,
// which is what lets the engine bill a user's totalSessions exactly once.
func (r *SessionRegistry) LedgerFor(sessionID string) (l *Ledger, created bool) {
	r.mu.RLock()
	l, ok := r.ledgers[sessionID]
	r.mu.RUnlock()
	if ok {
		return l, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check: another goroutine may have won the race.
	if l, ok = r.ledgers[sessionID]; ok {
		return l, false
	}
	l = NewLedger()
	r.ledgers[sessionID] = l
	return l, true
}

// Exists reports whether a ledger has ever been created for sessionID.
func (r *SessionRegistry) Exists(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ledgers[sessionID]
	return ok
}

// Count returns the number of sessions ever touched.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ledgers)
}
