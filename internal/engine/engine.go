// Package engine makes the attendance decision for each query face
// embedding: find the nearest enrolled identity, accept or reject it
// against the distance threshold, and suppress repeats inside the
// cooldown window. The engine performs no I/O; accepted events are
// handed to the sink dispatcher and forgotten.
package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/facemark/facemark/internal/gallery"
	"github.com/facemark/facemark/internal/match"
	"github.com/facemark/facemark/internal/sink"
)

// Outcome is the terminal result of one decision.
type Outcome string

const (
	// OutcomeUnknown means the face was not recognized: empty gallery,
	// distance at or above the threshold, or a malformed query.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeSuppressed means the identity matched but was already
	// accepted inside the cooldown window.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeAccepted means a new attendance event was emitted.
	OutcomeAccepted Outcome = "accepted"
)

// Decision is what the engine returns per query. It never carries an
// error: failures degrade to OutcomeUnknown.
type Decision struct {
	Outcome  Outcome   `json:"outcome"`
	Key      string    `json:"face_id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Distance float64   `json:"distance,omitempty"`
	At       time.Time `json:"at"`
}

// Recorder receives accepted events. Satisfied by *sink.Dispatcher.
type Recorder interface {
	Enqueue(ev sink.Event) bool
}

// Engine composes the matcher and the ledger. It owns its state
// explicitly so independent engines (one per camera) can coexist.
type Engine struct {
	gallery   *gallery.Gallery
	matcher   match.Matcher
	ledger    *Ledger
	recorder  Recorder
	threshold float64
	cooldown  time.Duration
	now       func() time.Time
	observer  func(Decision)
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the engine's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithObserver registers a callback invoked with every decision.
// Called on the producer's goroutine; keep it cheap.
func WithObserver(fn func(Decision)) Option {
	return func(e *Engine) { e.observer = fn }
}

// New creates a decision engine. threshold is the maximum accepted
// distance (strictly less-than, smaller is a better match); cooldown
// is the dedup window, 0 disables time-based dedup.
func New(g *gallery.Gallery, m match.Matcher, r Recorder, threshold float64, cooldown time.Duration, opts ...Option) *Engine {
	e := &Engine{
		gallery:   g,
		matcher:   m,
		ledger:    NewLedger(),
		recorder:  r,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide runs the state machine for one query embedding. It is fast
// and in-memory only, safe to call on the frame producer's goroutine,
// and never returns an error: callers always get a terminal outcome.
func (e *Engine) Decide(query []float32) Decision {
	d := e.decide(query)
	if e.observer != nil {
		e.observer(d)
	}
	return d
}

func (e *Engine) decide(query []float32) Decision {
	now := e.now()

	if e.gallery.Size() == 0 {
		return Decision{Outcome: OutcomeUnknown, At: now}
	}

	result, err := e.matcher.Match(query)
	if err != nil {
		// A single bad embedding degrades to "not recognized"; the
		// decision loop must never crash.
		if !errors.Is(err, match.ErrEmptyGallery) {
			zap.L().Debug("match failed", zap.Error(err))
		}
		return Decision{Outcome: OutcomeUnknown, At: now}
	}

	if result.Distance >= e.threshold {
		return Decision{
			Outcome:  OutcomeUnknown,
			Distance: result.Distance,
			At:       now,
		}
	}

	if !e.ledger.TryAccept(result.Key, now, e.cooldown) {
		return Decision{
			Outcome:  OutcomeSuppressed,
			Key:      result.Key,
			Name:     result.Name,
			Distance: result.Distance,
			At:       now,
		}
	}

	e.recorder.Enqueue(sink.Event{
		ID:         uuid.NewString(),
		Key:        result.Key,
		Name:       result.Name,
		Status:     sink.StatusPresent,
		OccurredAt: now,
	})

	return Decision{
		Outcome:  OutcomeAccepted,
		Key:      result.Key,
		Name:     result.Name,
		Distance: result.Distance,
		At:       now,
	}
}

// Ledger exposes the engine's dedup ledger for inspection.
func (e *Engine) Ledger() *Ledger {
	return e.ledger
}

// GallerySize returns the number of enrolled identities.
func (e *Engine) GallerySize() int {
	return e.gallery.Size()
}

// Threshold returns the configured acceptance threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Cooldown returns the configured dedup window.
func (e *Engine) Cooldown() time.Duration {
	return e.cooldown
}
