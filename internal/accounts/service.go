// Package accounts creates accounts at first verified login and handles the
// fixed starting grant and referral credits. Uniqueness is keyed by the
// verification proof's nullifier hash: one human, one account.
package accounts

import (
	"errors"
	"fmt"
	"sync"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/model"
	"numa-sim/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidReward = errors.New("reward amount must be positive")

type Grant struct {
	Numa decimal.Decimal
	Wld  decimal.Decimal
}

func DefaultGrant() Grant {
	return Grant{
		Numa: decimal.NewFromInt(100),
		Wld:  decimal.NewFromInt(100),
	}
}

type Service struct {
	mu         sync.Mutex
	nullifiers map[string]string // nullifier hash -> account id

	ledger *ledger.Service
	grant  Grant
	clock  clock.Clock
}

func NewService(ledgerSvc *ledger.Service, grant Grant, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		nullifiers: make(map[string]string),
		ledger:     ledgerSvc,
		grant:      grant,
		clock:      clk,
	}
}

// EnsureVerified returns the account bound to the nullifier hash, creating
// it with the starting grant on first sight. Accounts are never deleted, so
// a repeat verification is a plain login.
func (s *Service) EnsureVerified(nullifierHash string) (model.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.nullifiers[nullifierHash]; ok {
		acc, err := s.ledger.Get(id)
		return acc, false, err
	}

	id := uuid.NewString()
	if _, err := s.ledger.Create(id); err != nil {
		return model.Account{}, false, err
	}
	acc, err := s.ledger.Apply(id, []ledger.Entry{
		ledger.CreditEntry(types.TokenNuma, s.grant.Numa, types.TxTypeGrant, "welcome grant"),
		ledger.CreditEntry(types.TokenWld, s.grant.Wld, types.TxTypeGrant, "welcome grant"),
	})
	if err != nil {
		return model.Account{}, false, err
	}
	s.nullifiers[nullifierHash] = id
	return acc, true, nil
}

// ReferralReward credits both sides of a referral. Two ordinary ledger
// credits and two transaction records, nothing referral-specific below this.
func (s *Service) ReferralReward(referrerID, referredID string, reward decimal.Decimal) error {
	if !reward.GreaterThan(decimal.Zero) {
		return ErrInvalidReward
	}
	// Resolve both accounts up front so a bad id cannot leave the action
	// half-applied; a retry after that would pay the referrer twice.
	if _, err := s.ledger.Get(referrerID); err != nil {
		return err
	}
	if _, err := s.ledger.Get(referredID); err != nil {
		return err
	}
	desc := fmt.Sprintf("referral reward (referred %s)", referredID)
	if _, err := s.ledger.Credit(referrerID, types.TokenWld, reward, types.TxTypeReferral, desc); err != nil {
		return err
	}
	desc = fmt.Sprintf("referral reward (referrer %s)", referrerID)
	if _, err := s.ledger.Credit(referredID, types.TokenWld, reward, types.TxTypeReferral, desc); err != nil {
		return err
	}
	return nil
}
