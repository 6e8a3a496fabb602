package membership

import (
	"errors"
	"fmt"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/model"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTier     = errors.New("tier not purchasable")
	ErrInvalidDuration = errors.New("duration not in price table")
)

type Service struct {
	ledger *ledger.Service
	clock  clock.Clock
}

func NewService(ledgerSvc *ledger.Service, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{ledger: ledgerSvc, clock: clk}
}

// Purchase debits the WLD price and applies the upgrade in one atomic ledger
// update: if the balance is short, the membership is untouched.
func (s *Service) Purchase(accountID string, tier types.Tier, months int) (model.Account, error) {
	if tier != types.TierPlus && tier != types.TierVip {
		return model.Account{}, ErrInvalidTier
	}
	price, ok := Price(tier, months)
	if !ok {
		return model.Account{}, ErrInvalidDuration
	}
	now := s.clock.Now()
	return s.ledger.Mutate(accountID, func(acc *model.Account) ([]ledger.Entry, error) {
		if acc.BalanceWld.LessThan(price) {
			return nil, ledger.ErrInsufficientBalance
		}
		acc.Membership = Upgrade(acc.Membership, tier, months, now)
		desc := fmt.Sprintf("membership %s x%d months", tier, months)
		return []ledger.Entry{
			ledger.DebitEntry(types.TokenWld, price, types.TxTypeMembership, desc),
		}, nil
	})
}

// ApplyExternal records a membership purchase settled off-core (real-money
// payment rail). No WLD is debited; the upgrade is applied after the payment
// collaborator confirms settlement.
func (s *Service) ApplyExternal(accountID string, tier types.Tier, months int, reference string) (model.Account, error) {
	if tier != types.TierPlus && tier != types.TierVip {
		return model.Account{}, ErrInvalidTier
	}
	if _, ok := discountByMonths[months]; !ok {
		return model.Account{}, ErrInvalidDuration
	}
	now := s.clock.Now()
	return s.ledger.Mutate(accountID, func(acc *model.Account) ([]ledger.Entry, error) {
		acc.Membership = Upgrade(acc.Membership, tier, months, now)
		desc := fmt.Sprintf("membership %s x%d months (external %s)", tier, months, reference)
		return []ledger.Entry{
			ledger.CreditEntry(types.TokenWld, decimal.Zero, types.TxTypeMembership, desc),
		}, nil
	})
}
