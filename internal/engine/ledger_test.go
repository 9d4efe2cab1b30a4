package engine

import (
	"sync"
	"testing"
	"time"
)

func TestLedgerFirstAcceptAlwaysAllowed(t *testing.T) {
	l := NewLedger()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	if !l.TryAccept("alice", now, time.Hour) {
		t.Fatal("first accept for a key should always be allowed")
	}
	if l.Size() != 1 {
		t.Errorf("expected 1 entry, got %d", l.Size())
	}
}

func TestLedgerSuppressesWithinWindow(t *testing.T) {
	l := NewLedger()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	l.TryAccept("alice", now, time.Hour)

	tests := []struct {
		name    string
		at      time.Time
		allowed bool
	}{
		{"immediately after", now, false},
		{"half the window", now.Add(30 * time.Minute), false},
		{"one second short", now.Add(time.Hour - time.Second), false},
		{"exactly the window", now.Add(time.Hour), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			probe := NewLedger()
			probe.TryAccept("alice", now, time.Hour)
			if got := probe.TryAccept("alice", tc.at, time.Hour); got != tc.allowed {
				t.Errorf("TryAccept at %v = %v; want %v", tc.at, got, tc.allowed)
			}
		})
	}
}

func TestLedgerAcceptRefreshesTimestamp(t *testing.T) {
	l := NewLedger()
	t0 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	l.TryAccept("alice", t0, time.Hour)

	// The window expires, a new accept lands, and the window restarts
	// from the new accept, not from t0.
	t1 := t0.Add(time.Hour)
	if !l.TryAccept("alice", t1, time.Hour) {
		t.Fatal("accept after window expiry should be allowed")
	}
	if l.TryAccept("alice", t1.Add(30*time.Minute), time.Hour) {
		t.Error("window should be measured from the most recent accept")
	}

	last, ok := l.LastAccepted("alice")
	if !ok || !last.Equal(t1) {
		t.Errorf("LastAccepted = %v, %v; want %v, true", last, ok, t1)
	}
}

func TestLedgerKeysAreIndependent(t *testing.T) {
	l := NewLedger()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	l.TryAccept("alice", now, time.Hour)

	if !l.TryAccept("bob", now, time.Hour) {
		t.Error("suppressing alice must not suppress bob")
	}
}

func TestLedgerZeroWindowDisablesSuppression(t *testing.T) {
	l := NewLedger()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	for range 3 {
		if !l.TryAccept("alice", now, 0) {
			t.Fatal("zero window should accept every sighting")
		}
	}
}

func TestLedgerConcurrentTryAccept(t *testing.T) {
	l := NewLedger()
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	accepted := make(chan struct{}, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.TryAccept("alice", now, time.Hour) {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	count := 0
	for range accepted {
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one accept across concurrent callers, got %d", count)
	}
}
