// Package pioneer owns the capital-ranked staking pool: dense ranks over
// locked WLD, ties broken by earliest join, penalty-bearing early exit.
package pioneer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/metrics"
	"numa-sim/internal/model"
	"numa-sim/internal/outbox"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrBelowMinStake = errors.New("capital below minimum stake")
	ErrBelowMinAdd   = errors.New("amount below minimum top-up")
	ErrAlreadyMember = errors.New("account is already a pioneer")
	ErrNotMember     = errors.New("account is not a pioneer")
)

const (
	LockDays = 365
	TopN     = 100
)

var (
	MinStake    = decimal.NewFromInt(50)
	MinAdd      = decimal.NewFromInt(10)
	PenaltyRate = decimal.NewFromFloat(0.20)
)

type Service struct {
	mu      sync.RWMutex
	members map[string]*model.Pioneer
	order   []*model.Pioneer

	ledger *ledger.Service
	events *outbox.Outbox
	clock  clock.Clock
}

func NewService(ledgerSvc *ledger.Service, events *outbox.Outbox, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		members: make(map[string]*model.Pioneer),
		ledger:  ledgerSvc,
		events:  events,
		clock:   clk,
	}
}

// Join locks capital WLD into the pool and ranks the whole pool again.
func (s *Service) Join(accountID string, capital decimal.Decimal) (model.Pioneer, error) {
	if capital.LessThan(MinStake) {
		return model.Pioneer{}, ErrBelowMinStake
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[accountID]; ok {
		return model.Pioneer{}, ErrAlreadyMember
	}

	desc := fmt.Sprintf("pioneer stake %s WLD", capital)
	if _, err := s.ledger.Debit(accountID, types.TokenWld, capital, types.TxTypePioneerStake, desc); err != nil {
		return model.Pioneer{}, err
	}

	now := s.clock.Now()
	p := &model.Pioneer{
		AccountID:           accountID,
		CapitalLocked:       capital,
		JoinedAt:            now,
		LockedUntil:         now.AddDate(0, 0, LockDays),
		EarningsAccumulated: decimal.Zero,
	}
	s.members[accountID] = p
	s.order = append(s.order, p)
	s.rerank()
	metrics.PioneerJoins.Inc()
	return *p, nil
}

// AddCapital tops up an existing stake and ranks the pool again. The lock
// period is not extended by a top-up.
func (s *Service) AddCapital(accountID string, extra decimal.Decimal) (model.Pioneer, error) {
	if extra.LessThan(MinAdd) {
		return model.Pioneer{}, ErrBelowMinAdd
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.members[accountID]
	if !ok {
		return model.Pioneer{}, ErrNotMember
	}

	desc := fmt.Sprintf("pioneer stake top-up %s WLD", extra)
	if _, err := s.ledger.Debit(accountID, types.TokenWld, extra, types.TxTypePioneerStake, desc); err != nil {
		return model.Pioneer{}, err
	}

	p.CapitalLocked = p.CapitalLocked.Add(extra)
	s.rerank()
	return *p, nil
}

// Withdraw is always permitted; the lock only determines the penalty. An
// early exit pays capital minus the penalty, an exit after LockedUntil pays
// the full capital. The entry is removed entirely: re-entry takes a fresh
// Join.
func (s *Service) Withdraw(accountID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.members[accountID]
	if !ok {
		return decimal.Zero, ErrNotMember
	}

	now := s.clock.Now()
	penalty := decimal.Zero
	if now.Before(p.LockedUntil) {
		penalty = p.CapitalLocked.Mul(PenaltyRate)
	}
	payout := p.CapitalLocked.Sub(penalty)

	desc := fmt.Sprintf("pioneer withdrawal %s WLD (penalty %s)", payout, penalty)
	if _, err := s.ledger.Credit(accountID, types.TokenWld, payout, types.TxTypePioneerWithdraw, desc); err != nil {
		return decimal.Zero, err
	}

	delete(s.members, accountID)
	for i, q := range s.order {
		if q.AccountID == accountID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.rerank()
	s.events.Emit(outbox.Event{Kind: outbox.EventPioneerRemoved, AccountID: accountID})
	metrics.PioneerWithdrawals.Inc()
	return payout, nil
}

// rerank sorts the whole pool by capital descending, ties by earliest join,
// and assigns dense ranks 1..N. Callers hold s.mu.
func (s *Service) rerank() {
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := s.order[i], s.order[j]
		if !a.CapitalLocked.Equal(b.CapitalLocked) {
			return a.CapitalLocked.GreaterThan(b.CapitalLocked)
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})
	for i, p := range s.order {
		p.Rank = i + 1
		snapshot := *p
		s.events.Emit(outbox.Event{Kind: outbox.EventPioneer, AccountID: p.AccountID, Pioneer: &snapshot})
	}
}

// Validate checks the ranking invariant: ranks are exactly 1..N in capital
// order. A violation is a programming defect, not a user condition.
func (s *Service) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, p := range s.order {
		if p.Rank != i+1 {
			return fmt.Errorf("ranking invariant violated: index %d has rank %d", i, p.Rank)
		}
		if i > 0 && s.order[i-1].CapitalLocked.LessThan(p.CapitalLocked) {
			return fmt.Errorf("ranking invariant violated: rank %d has more capital than rank %d", p.Rank, i)
		}
	}
	return nil
}

// Member returns the account's pool entry, if any.
func (s *Service) Member(accountID string) (model.Pioneer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.members[accountID]
	if !ok {
		return model.Pioneer{}, false
	}
	return *p, true
}

// IsTopRanked is the pure privilege predicate: rank within the top N. The
// pool itself has no notion of privilege, only of order.
func (s *Service) IsTopRanked(accountID string) bool {
	p, ok := s.Member(accountID)
	return ok && p.Rank <= TopN
}

// Leaderboard returns the pool in rank order, at most limit entries
// (0 means all).
func (s *Service) Leaderboard(limit int) []model.Pioneer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]model.Pioneer, 0, n)
	for _, p := range s.order[:n] {
		out = append(out, *p)
	}
	return out
}

// Size reports the number of pool members.
func (s *Service) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// LockRemaining reports how long the account's capital stays penalty-bound.
func (s *Service) LockRemaining(accountID string) (time.Duration, bool) {
	p, ok := s.Member(accountID)
	if !ok {
		return 0, false
	}
	remaining := p.LockedUntil.Sub(s.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
