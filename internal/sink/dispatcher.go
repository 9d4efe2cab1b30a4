package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Dispatcher moves accepted events from the recognition loop to a
// sink without ever blocking that loop. Events go onto a bounded
// queue; a single background worker drains it, which also keeps
// per-identity delivery order. When the queue is full the newest
// event is dropped with a warning rather than stalling the producer.
type Dispatcher struct {
	sink    Sink
	queue   chan Event
	timeout time.Duration

	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewDispatcher creates a dispatcher with the given queue capacity
// and per-delivery timeout, and starts its worker.
func NewDispatcher(s Sink, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	d := &Dispatcher{
		sink:    s,
		queue:   make(chan Event, queueSize),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue hands an event to the dispatcher. It never blocks: when the
// queue is full the event is dropped and false is returned.
func (d *Dispatcher) Enqueue(ev Event) bool {
	if d.closed.Load() {
		d.dropped.Add(1)
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		d.dropped.Add(1)
		zap.L().Warn("sink queue full, dropping attendance event",
			zap.String("face_id", ev.Key),
			zap.Time("occurred_at", ev.OccurredAt))
		return false
	}
}

// run drains the queue until Close stops intake and the queue empties.
func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.deliver(ev)
	}
}

// deliver performs one best-effort sink call. Failures are logged and
// dropped: no retry, no requeue. Silent attendance loss beats
// stalling recognition.
func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.sink.Deliver(ctx, ev)
	if err == nil {
		d.delivered.Add(1)
		zap.L().Info("attendance recorded",
			zap.String("face_id", ev.Key),
			zap.Time("occurred_at", ev.OccurredAt))
		return
	}

	d.failed.Add(1)
	switch {
	case errors.Is(err, ErrUnreachable):
		zap.L().Warn("attendance store unreachable, event lost",
			zap.String("face_id", ev.Key), zap.Error(err))
	case errors.Is(err, ErrRejected):
		zap.L().Warn("attendance store rejected event",
			zap.String("face_id", ev.Key), zap.Error(err))
	default:
		zap.L().Warn("attendance delivery failed",
			zap.String("face_id", ev.Key), zap.Error(err))
	}
}

// Close stops intake and drains remaining events best-effort until
// the context expires. In-flight deliveries are not guaranteed to
// complete.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.queue)
	})

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		zap.L().Warn("sink dispatcher shut down with undelivered events",
			zap.Int("remaining", len(d.queue)))
		return ctx.Err()
	}
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	QueueDepth int   `json:"queue_depth"`
	Delivered  int64 `json:"delivered"`
	Dropped    int64 `json:"dropped"`
	Failed     int64 `json:"failed"`
}

// Stats returns current dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		QueueDepth: len(d.queue),
		Delivered:  d.delivered.Load(),
		Dropped:    d.dropped.Load(),
		Failed:     d.failed.Load(),
	}
}
