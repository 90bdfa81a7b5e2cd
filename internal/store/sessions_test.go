package store

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestSessionRegistry_LedgerForCreatesOnce(t *testing.T) {
	r := NewSessionRegistry()

	l1, created := r.LedgerFor("room-1")
	if !created {
		t.Fatal("first touch did not report created")
	}
	l2, created := r.LedgerFor("room-1")
	if created {
		t.Fatal("second touch reported created")
	}
	if l1 != l2 {
		t.Fatal("same id returned different ledgers")
	}
	if !r.Exists("room-1") || r.Exists("room-2") {
		t.Fatal("Exists inconsistent")
	}
}

func TestSessionRegistry_ConcurrentFirstTouch(t *testing.T) {
	r := NewSessionRegistry()

	const n = 64
	var created atomic.Int64
	var wg sync.WaitGroup
	ledgers := make([]*Ledger, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			l, c := r.LedgerFor("popular-room")
			ledgers[i] = l
			if c {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Fatalf("created reported %d times, want exactly 1", created.Load())
	}
	for i := 1; i < n; i++ {
		if ledgers[i] != ledgers[0] {
			t.Fatal("racing goroutines got different ledgers")
		}
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestSessionRegistry_IsolationBetweenSessions(t *testing.T) {
	r := NewSessionRegistry()
	a, _ := r.LedgerFor("a")
	b, _ := r.LedgerFor("b")

	a.Append("only in a", "desktop", "alice", "")
	if got := b.List(); len(got) != 0 {
		t.Fatalf("message leaked across sessions: %+v", got)
	}
}
