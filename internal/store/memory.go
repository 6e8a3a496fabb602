package store

import (
	"context"
	"sync"

	"numa-sim/internal/model"
)

// MemoryStore keeps rows in maps. Used in tests and when no DB_DSN is set.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]model.Account
	positions    map[string]model.Position
	pioneers     map[string]model.Pioneer
	transactions []model.Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:  make(map[string]model.Account),
		positions: make(map[string]model.Position),
		pioneers:  make(map[string]model.Pioneer),
	}
}

func (m *MemoryStore) SaveAccount(ctx context.Context, acc model.Account) error {
	m.mu.Lock()
	m.accounts[acc.ID] = acc
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SavePosition(ctx context.Context, pos model.Position) error {
	m.mu.Lock()
	m.positions[pos.ID] = pos
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SavePioneer(ctx context.Context, p model.Pioneer) error {
	m.mu.Lock()
	m.pioneers[p.AccountID] = p
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeletePioneer(ctx context.Context, accountID string) error {
	m.mu.Lock()
	delete(m.pioneers, accountID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) AppendTransaction(ctx context.Context, tx model.Transaction) error {
	m.mu.Lock()
	m.transactions = append(m.transactions, tx)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Account(id string) (model.Account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[id]
	return acc, ok
}

func (m *MemoryStore) Position(id string) (model.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[id]
	return pos, ok
}

func (m *MemoryStore) Pioneer(accountID string) (model.Pioneer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pioneers[accountID]
	return p, ok
}

func (m *MemoryStore) Transactions() []model.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Transaction, len(m.transactions))
	copy(out, m.transactions)
	return out
}
