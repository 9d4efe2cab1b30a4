package engine

import (
	"sync"
	"time"
)

// Ledger tracks the last accepted attendance time per identity. It is
// the single owner of dedup: an O(1) in-memory lookup replacing the
// old full-log rescan. Entries are never deleted; the process-lifetime
// growth is bounded by the enrollment cardinality.
type Ledger struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{last: make(map[string]time.Time)}
}

// TryAccept atomically checks whether an acceptance for key at now is
// outside the cooldown window and, if so, records it. An absent entry
// means never accepted, always allowed. Expiry is inclusive:
// now - last >= window allows.
func (l *Ledger) TryAccept(key string, now time.Time, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.last[key]; ok && now.Sub(last) < window {
		return false
	}
	l.last[key] = now
	return true
}

// LastAccepted returns the last accepted time for an identity, if any.
func (l *Ledger) LastAccepted(key string) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.last[key]
	return t, ok
}

// Size returns the number of identities that have ever been accepted.
func (l *Ledger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
