package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/baharkarakas/household-ledger/internal/metrics"
	"github.com/baharkarakas/household-ledger/internal/worker"
)

// ErrDropped is returned when an event could not be queued.
var ErrDropped = errors.New("events: event dropped, worker queue full or stopped")

// Async hands events to a worker pool so request handlers never wait on the
// broker. Events are dropped, and counted, when the queue is full.
type Async struct {
	pub     Publisher
	pool    *worker.Pool
	log     *slog.Logger
	timeout time.Duration
}

func NewAsync(pub Publisher, pool *worker.Pool, log *slog.Logger) *Async {
	return &Async{pub: pub, pool: pool, log: log, timeout: 10 * time.Second}
}

func (a *Async) Publish(ctx context.Context, e Event) error {
	ctx = context.WithoutCancel(ctx)
	ok := a.pool.TrySubmit(func() {
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		if err := a.pub.Publish(ctx, e); err != nil {
			metrics.EventsPublished.WithLabelValues(string(e.Type), "error").Inc()
			a.log.ErrorContext(ctx, "event publish failed", "type", e.Type, "entity_id", e.EntityID, "error", err)
			return
		}
		metrics.EventsPublished.WithLabelValues(string(e.Type), "ok").Inc()
	})
	if !ok {
		metrics.EventsPublished.WithLabelValues(string(e.Type), "dropped").Inc()
		return ErrDropped
	}
	return nil
}

// Close does not stop the shared pool; the owner stops it before closing.
func (a *Async) Close() error { return a.pub.Close() }
