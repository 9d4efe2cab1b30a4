package web

import (
	"sync"

	"github.com/facemark/facemark/internal/engine"
)

// DecisionLog keeps a bounded ring of recent decisions for the status
// API. Add is cheap enough to run as the engine's observer on the
// frame-processing goroutine.
type DecisionLog struct {
	mu   sync.Mutex
	ring []engine.Decision
	next int
	full bool
}

// NewDecisionLog creates a ring holding up to size decisions.
func NewDecisionLog(size int) *DecisionLog {
	if size <= 0 {
		size = 50
	}
	return &DecisionLog{ring: make([]engine.Decision, size)}
}

// Add records one decision, overwriting the oldest when full.
func (l *DecisionLog) Add(d engine.Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ring[l.next] = d
	l.next = (l.next + 1) % len(l.ring)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns decisions newest first.
func (l *DecisionLog) Recent() []engine.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.next
	if l.full {
		count = len(l.ring)
	}

	out := make([]engine.Decision, 0, count)
	for i := 1; i <= count; i++ {
		idx := (l.next - i + len(l.ring)) % len(l.ring)
		out = append(out, l.ring[idx])
	}
	return out
}
