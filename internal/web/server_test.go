package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/facemark/facemark/internal/engine"
	"github.com/facemark/facemark/internal/gallery"
	"github.com/facemark/facemark/internal/match"
	"github.com/facemark/facemark/internal/sink"
)

// nullSink accepts and discards every event.
type nullSink struct{}

func (nullSink) Deliver(_ context.Context, _ sink.Event) error { return nil }

func newTestServer(t *testing.T) (*Server, *engine.Engine, *sink.Dispatcher) {
	t.Helper()

	g, err := gallery.New([]gallery.Identity{
		{Key: "alice", Name: "Alice", Embedding: []float32{0, 0, 0}},
	}, 3)
	if err != nil {
		t.Fatalf("building gallery: %v", err)
	}

	d := sink.NewDispatcher(nullSink{}, 8, time.Second)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = d.Close(ctx)
	})

	decisions := NewDecisionLog(10)
	eng := engine.New(g, match.NewBruteForce(g), d, 0.52, time.Hour,
		engine.WithObserver(decisions.Add))

	return NewServer(":0", eng, d, decisions), eng, d
}

func TestStatusEndpoint(t *testing.T) {
	server, eng, _ := newTestServer(t)
	eng.Decide([]float32{0.1, 0, 0}) // accepted, lands in the ledger

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}

	var status Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.GallerySize != 1 {
		t.Errorf("gallery_size = %d; want 1", status.GallerySize)
	}
	if status.LedgerSize != 1 {
		t.Errorf("ledger_size = %d; want 1", status.LedgerSize)
	}
	if status.Threshold != 0.52 {
		t.Errorf("threshold = %f; want 0.52", status.Threshold)
	}
	if status.CooldownSeconds != 3600 {
		t.Errorf("cooldown_seconds = %f; want 3600", status.CooldownSeconds)
	}
}

func TestDecisionsEndpoint(t *testing.T) {
	server, eng, _ := newTestServer(t)
	eng.Decide([]float32{0.1, 0, 0}) // accepted
	eng.Decide([]float32{0.1, 0, 0}) // suppressed
	eng.Decide([]float32{5, 0, 0})   // unknown

	req := httptest.NewRequest(http.MethodGet, "/api/decisions", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}

	var decisions []engine.Decision
	if err := json.Unmarshal(rec.Body.Bytes(), &decisions); err != nil {
		t.Fatalf("decoding decisions: %v", err)
	}
	if len(decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(decisions))
	}

	want := []engine.Outcome{engine.OutcomeUnknown, engine.OutcomeSuppressed, engine.OutcomeAccepted}
	for i, o := range want {
		if decisions[i].Outcome != o {
			t.Errorf("decisions[%d] = %s; want %s", i, decisions[i].Outcome, o)
		}
	}
}

func TestUnknownRoute(t *testing.T) {
	server, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
}
