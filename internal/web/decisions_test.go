package web

import (
	"fmt"
	"testing"

	"github.com/facemark/facemark/internal/engine"
)

func TestDecisionLogEmpty(t *testing.T) {
	l := NewDecisionLog(4)
	if got := l.Recent(); len(got) != 0 {
		t.Errorf("expected no decisions, got %d", len(got))
	}
}

func TestDecisionLogNewestFirst(t *testing.T) {
	l := NewDecisionLog(4)
	for i := range 3 {
		l.Add(engine.Decision{Key: fmt.Sprintf("k%d", i)})
	}

	got := l.Recent()
	if len(got) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(got))
	}
	for i, want := range []string{"k2", "k1", "k0"} {
		if got[i].Key != want {
			t.Errorf("Recent()[%d] = %s; want %s", i, got[i].Key, want)
		}
	}
}

func TestDecisionLogOverwritesOldest(t *testing.T) {
	l := NewDecisionLog(3)
	for i := range 5 {
		l.Add(engine.Decision{Key: fmt.Sprintf("k%d", i)})
	}

	got := l.Recent()
	if len(got) != 3 {
		t.Fatalf("expected ring capacity 3, got %d", len(got))
	}
	for i, want := range []string{"k4", "k3", "k2"} {
		if got[i].Key != want {
			t.Errorf("Recent()[%d] = %s; want %s", i, got[i].Key, want)
		}
	}
}
