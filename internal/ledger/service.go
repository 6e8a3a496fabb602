// Package ledger owns every account's two token balances and its append-only
// transaction history. All other engines mutate balances only through the
// primitives here; a multi-leg update is all-or-nothing.
package ledger

import (
	"fmt"
	"sync"

	"numa-sim/internal/clock"
	"numa-sim/internal/model"
	"numa-sim/internal/outbox"
	"numa-sim/internal/types"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Entry is one leg of a ledger update.
type Entry struct {
	Kind        types.TransferKind
	Token       types.Token
	Amount      decimal.Decimal
	Type        types.TxType
	Description string
}

func CreditEntry(token types.Token, amount decimal.Decimal, txType types.TxType, desc string) Entry {
	return Entry{Kind: types.TransferKindCredit, Token: token, Amount: amount, Type: txType, Description: desc}
}

func DebitEntry(token types.Token, amount decimal.Decimal, txType types.TxType, desc string) Entry {
	return Entry{Kind: types.TransferKindDebit, Token: token, Amount: amount, Type: txType, Description: desc}
}

type accountState struct {
	mu  sync.Mutex
	acc model.Account
	txs []model.Transaction
}

type Service struct {
	mu       sync.RWMutex
	accounts map[string]*accountState

	node   *snowflake.Node
	events *outbox.Outbox
	clock  clock.Clock
}

func NewService(events *outbox.Outbox, clk clock.Clock) *Service {
	node, err := snowflake.NewNode(1)
	if err != nil {
		// node id 1 is always in range; NewNode only fails on bad ids
		panic(err)
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		accounts: make(map[string]*accountState),
		node:     node,
		events:   events,
		clock:    clk,
	}
}

// Create registers a new account with zero balances and a free membership.
func (s *Service) Create(id string) (model.Account, error) {
	now := s.clock.Now()
	acc := model.Account{
		ID:          id,
		BalanceNuma: decimal.Zero,
		BalanceWld:  decimal.Zero,
		Membership: model.Membership{
			Tier:      types.TierFree,
			StartedAt: now,
		},
		CreatedAt: now,
	}
	s.mu.Lock()
	if _, ok := s.accounts[id]; ok {
		s.mu.Unlock()
		return model.Account{}, ErrAccountExists
	}
	s.accounts[id] = &accountState{acc: acc}
	s.mu.Unlock()

	s.events.Emit(outbox.Event{Kind: outbox.EventAccount, AccountID: id, Account: &acc})
	return acc, nil
}

func (s *Service) state(id string) (*accountState, error) {
	s.mu.RLock()
	st, ok := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrAccountNotFound
	}
	return st, nil
}

// Get returns a snapshot of the account.
func (s *Service) Get(id string) (model.Account, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Account{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.acc, nil
}

// Mutate runs fn under the account's lock against a working copy of the
// account. fn may update membership or reward fields on the copy and return
// ledger entries to apply. If fn errors, or any debit would drive a balance
// negative, nothing is committed. On success the copy replaces the account,
// one transaction per entry is appended, and change events are emitted.
func (s *Service) Mutate(id string, fn func(acc *model.Account) ([]Entry, error)) (model.Account, error) {
	st, err := s.state(id)
	if err != nil {
		return model.Account{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	work := st.acc
	entries, err := fn(&work)
	if err != nil {
		return model.Account{}, err
	}

	now := s.clock.Now()
	txs := make([]model.Transaction, 0, len(entries))
	for _, e := range entries {
		if e.Amount.IsNegative() {
			return model.Account{}, ErrInvalidAmount
		}
		delta := e.Amount
		if e.Kind == types.TransferKindDebit {
			delta = delta.Neg()
		}
		switch e.Token {
		case types.TokenNuma:
			work.BalanceNuma = work.BalanceNuma.Add(delta)
			if work.BalanceNuma.IsNegative() {
				return model.Account{}, ErrInsufficientBalance
			}
		case types.TokenWld:
			work.BalanceWld = work.BalanceWld.Add(delta)
			if work.BalanceWld.IsNegative() {
				return model.Account{}, ErrInsufficientBalance
			}
		default:
			return model.Account{}, fmt.Errorf("unknown token %q", e.Token)
		}
		txs = append(txs, model.Transaction{
			ID:               s.node.Generate().String(),
			AccountID:        id,
			Type:             e.Type,
			Description:      e.Description,
			Amount:           e.Amount,
			Token:            e.Token,
			BalanceNumaAfter: work.BalanceNuma,
			BalanceWldAfter:  work.BalanceWld,
			Timestamp:        now,
		})
	}

	st.acc = work
	st.txs = append(st.txs, txs...)

	snapshot := work
	s.events.Emit(outbox.Event{Kind: outbox.EventAccount, AccountID: id, Account: &snapshot})
	for i := range txs {
		tx := txs[i]
		s.events.Emit(outbox.Event{Kind: outbox.EventTransaction, AccountID: id, Transaction: &tx})
	}
	return work, nil
}

// Apply performs a multi-leg update atomically: if any leg would fail,
// no leg applies.
func (s *Service) Apply(id string, entries []Entry) (model.Account, error) {
	return s.Mutate(id, func(*model.Account) ([]Entry, error) {
		return entries, nil
	})
}

func (s *Service) Credit(id string, token types.Token, amount decimal.Decimal, txType types.TxType, desc string) (model.Account, error) {
	return s.Apply(id, []Entry{CreditEntry(token, amount, txType, desc)})
}

func (s *Service) Debit(id string, token types.Token, amount decimal.Decimal, txType types.TxType, desc string) (model.Account, error) {
	return s.Apply(id, []Entry{DebitEntry(token, amount, txType, desc)})
}

// Transactions returns the newest-first history for an account, at most limit
// records (0 means all).
func (s *Service) Transactions(id string, limit int) ([]model.Transaction, error) {
	st, err := s.state(id)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	n := len(st.txs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.Transaction, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, st.txs[i])
	}
	return out, nil
}
