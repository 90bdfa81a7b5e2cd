package store

import (
	"sort"
	"sync"
	"time"
)

// DefaultTypingTTL is how long a typing signal stays live without renewal.
const DefaultTypingTTL = 3 * time.Second

// PresenceTracker keeps the per-session set of usernames that are currently
// typing. Entries expire lazily: every operation that touches a session's
// set first purges signals older than the TTL, so no background sweeper is
// needed.
type PresenceTracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]map[string]time.Time

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// NewPresenceTracker returns a tracker with the given TTL; a non-positive
// TTL falls back to DefaultTypingTTL.
func NewPresenceTracker(ttl time.Duration) *PresenceTracker {
	if ttl <= 0 {
		ttl = DefaultTypingTTL
	}
	return &PresenceTracker{
		ttl:      ttl,
		sessions: make(map[string]map[string]time.Time),
		now:      time.Now,
	}
}

// SetTyping records (active) or clears (inactive) a typing signal for
// username in sessionID, purging expired entries first.
func (p *PresenceTracker) SetTyping(sessionID, username string, active bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	set := p.purgeLocked(sessionID, now)

	if active {
		if set == nil {
			set = make(map[string]time.Time)
			p.sessions[sessionID] = set
		}
		set[username] = now
		return
	}
	if set != nil {
		delete(set, username)
		if len(set) == 0 {
			delete(p.sessions, sessionID)
		}
	}
}

// Current returns the post-purge set of typing usernames for sessionID,
// sorted for deterministic output. A session nobody is typing in yields an
// empty slice, never an error.
func (p *PresenceTracker) Current(sessionID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.purgeLocked(sessionID, p.now())
	if len(set) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// purgeLocked drops entries older than the TTL and returns the surviving
// set (nil when the session has none). Caller must hold p.mu.
func (p *PresenceTracker) purgeLocked(sessionID string, now time.Time) map[string]time.Time {
	set, ok := p.sessions[sessionID]
	if !ok {
		return nil
	}
	for u, last := range set {
		if now.Sub(last) > p.ttl {
			delete(set, u)
		}
	}
	if len(set) == 0 {
		delete(p.sessions, sessionID)
		return nil
	}
	return set
}
