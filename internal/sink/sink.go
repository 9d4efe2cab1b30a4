// Package sink delivers accepted attendance events to an external
// store. Sinks are dumb, side-effect-only delivery channels: dedup is
// the decision engine's responsibility, not theirs.
package sink

import (
	"context"
	"errors"
	"time"
)

// StatusPresent is the only status the recognizer ever records.
const StatusPresent = "Present"

// Event is one accepted attendance record. Ownership transfers to the
// dispatcher as soon as the engine accepts; the engine keeps nothing.
type Event struct {
	ID         string    `json:"id"`
	Key        string    `json:"face_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Sink durably records one attendance event.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// ErrUnreachable marks delivery failures caused by the store being
// unavailable (connection refused, timeout).
var ErrUnreachable = errors.New("attendance store unreachable")

// ErrRejected marks deliveries the store refused (non-created,
// non-conflict responses).
var ErrRejected = errors.New("attendance store rejected event")
