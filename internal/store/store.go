// Package store is the durable persistence collaborator. The in-memory
// engines are the source of truth while the process runs; the store receives
// change events through the outbox and is eventually consistent with them.
package store

import (
	"context"

	"numa-sim/internal/model"
)

type Store interface {
	SaveAccount(ctx context.Context, acc model.Account) error
	SavePosition(ctx context.Context, pos model.Position) error
	SavePioneer(ctx context.Context, p model.Pioneer) error
	DeletePioneer(ctx context.Context, accountID string) error
	AppendTransaction(ctx context.Context, tx model.Transaction) error
}
