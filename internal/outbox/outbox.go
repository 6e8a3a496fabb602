package outbox

import (
	"context"
	"log"
	"sync"
	"time"

	"numa-sim/internal/metrics"
	"numa-sim/internal/model"
)

type EventKind string

const (
	EventAccount        EventKind = "account"
	EventPosition       EventKind = "position"
	EventPioneer        EventKind = "pioneer"
	EventPioneerRemoved EventKind = "pioneer_removed"
	EventTransaction    EventKind = "transaction"
)

// Event is a change notification emitted by the core after a state mutation
// has been applied. Exactly one payload field is set, matching Kind.
type Event struct {
	Kind        EventKind          `json:"kind"`
	AccountID   string             `json:"account_id"`
	Account     *model.Account     `json:"account,omitempty"`
	Position    *model.Position    `json:"position,omitempty"`
	Pioneer     *model.Pioneer     `json:"pioneer,omitempty"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
	EmittedAt   time.Time          `json:"emitted_at"`
}

// Sink receives drained events. Implementations: Postgres store, NATS export.
type Sink interface {
	Write(ctx context.Context, evt Event) error
}

// Outbox buffers change events so the core never blocks on persistence.
// Emit is cheap and infallible; a background worker drains the queue into
// the configured sinks with retry. An applied ledger mutation is never
// rolled back because a sink write failed.
type Outbox struct {
	mu     sync.Mutex
	queue  []Event
	notify chan struct{}

	sinks   []Sink
	backoff time.Duration
}

func New(sinks ...Sink) *Outbox {
	return &Outbox{
		notify:  make(chan struct{}, 1),
		sinks:   sinks,
		backoff: 500 * time.Millisecond,
	}
}

// Emit enqueues an event. Safe to call from any goroutine, never blocks.
func (o *Outbox) Emit(evt Event) {
	if o == nil {
		return
	}
	if evt.EmittedAt.IsZero() {
		evt.EmittedAt = time.Now().UTC()
	}
	o.mu.Lock()
	o.queue = append(o.queue, evt)
	metrics.OutboxPending.Set(float64(len(o.queue)))
	o.mu.Unlock()
	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// Pending reports the number of undrained events.
func (o *Outbox) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Run drains the queue until ctx is canceled. Events that fail to sync stay
// at the head of the queue and are retried with backoff; later events wait
// behind them so per-account ordering is preserved.
func (o *Outbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-o.notify:
		}
		for o.drainOne(ctx) {
		}
	}
}

// Drain synchronously flushes everything currently queued. Used in tests and
// on shutdown.
func (o *Outbox) Drain(ctx context.Context) {
	for o.drainOne(ctx) {
	}
}

func (o *Outbox) drainOne(ctx context.Context) bool {
	o.mu.Lock()
	if len(o.queue) == 0 {
		o.mu.Unlock()
		return false
	}
	evt := o.queue[0]
	o.mu.Unlock()

	if err := o.writeAll(ctx, evt); err != nil {
		log.Printf("outbox: sync %s for %s failed, will retry: %v", evt.Kind, evt.AccountID, err)
		select {
		case <-ctx.Done():
		case <-time.After(o.backoff):
			select {
			case o.notify <- struct{}{}:
			default:
			}
		}
		return false
	}

	o.mu.Lock()
	o.queue = o.queue[1:]
	metrics.OutboxPending.Set(float64(len(o.queue)))
	o.mu.Unlock()
	return true
}

func (o *Outbox) writeAll(ctx context.Context, evt Event) error {
	for _, sink := range o.sinks {
		if err := sink.Write(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
