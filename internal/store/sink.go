package store

import (
	"context"
	"fmt"

	"numa-sim/internal/outbox"
)

// OutboxSink adapts a Store to the outbox drain loop.
type OutboxSink struct {
	store Store
}

func NewOutboxSink(s Store) *OutboxSink {
	return &OutboxSink{store: s}
}

func (s *OutboxSink) Write(ctx context.Context, evt outbox.Event) error {
	switch evt.Kind {
	case outbox.EventAccount:
		return s.store.SaveAccount(ctx, *evt.Account)
	case outbox.EventPosition:
		return s.store.SavePosition(ctx, *evt.Position)
	case outbox.EventPioneer:
		return s.store.SavePioneer(ctx, *evt.Pioneer)
	case outbox.EventPioneerRemoved:
		return s.store.DeletePioneer(ctx, evt.AccountID)
	case outbox.EventTransaction:
		return s.store.AppendTransaction(ctx, *evt.Transaction)
	default:
		return fmt.Errorf("unknown event kind %q", evt.Kind)
	}
}
