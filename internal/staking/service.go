// Package staking owns the daily reward claim: a 24-hour cooldown window
// plus a continuously growing sub-day accrual once the window has elapsed.
package staking

import (
	"errors"
	"fmt"
	"time"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/membership"
	"numa-sim/internal/metrics"
	"numa-sim/internal/model"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
)

var ErrClaimNotReady = errors.New("claim window not elapsed")

const claimWindow = 24 * time.Hour

var secondsPerDay = decimal.NewFromInt(86400)

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

// CanClaim is true when no claim was ever made or 24 hours have passed since
// the last one.
func CanClaim(acc model.Account, now time.Time) bool {
	if acc.LastRewardClaim == nil {
		return true
	}
	return now.Sub(*acc.LastRewardClaim) >= claimWindow
}

// CurrentReward is the amount a claim at now would credit: the tier's daily
// rate plus the sub-day accrual earned since the window became claimable,
// capped at one extra day's worth. While the window has not elapsed the
// accrual does not exist and only the base rate is reported.
func CurrentReward(acc model.Account, now time.Time) decimal.Decimal {
	tier := acc.Membership.EffectiveTier(now)
	rate := membership.DailyRewardRate(tier, now.Sub(acc.Membership.StartedAt))
	if !CanClaim(acc, now) {
		return rate
	}

	windowStart := acc.CreatedAt
	if acc.LastRewardClaim != nil {
		windowStart = acc.LastRewardClaim.Add(claimWindow)
	}
	seconds := decimal.NewFromFloat(now.Sub(windowStart).Seconds())
	if seconds.IsNegative() {
		seconds = decimal.Zero
	}
	if seconds.GreaterThan(secondsPerDay) {
		seconds = secondsPerDay
	}
	accrued := rate.Mul(seconds).Div(secondsPerDay)
	return rate.Add(accrued)
}

// Status is what the UI polls between claims.
type Status struct {
	CanClaim      bool            `json:"can_claim"`
	NextClaimAt   *time.Time      `json:"next_claim_at,omitempty"`
	CurrentReward decimal.Decimal `json:"current_reward"`
	DailyRate     decimal.Decimal `json:"daily_rate"`
}

func (s *Service) Status(accountID string) (Status, error) {
	acc, err := s.ledger.Get(accountID)
	if err != nil {
		return Status{}, err
	}
	now := s.clock.Now()
	st := Status{
		CanClaim:      CanClaim(acc, now),
		CurrentReward: CurrentReward(acc, now),
		DailyRate:     membership.DailyRewardRate(acc.Membership.EffectiveTier(now), now.Sub(acc.Membership.StartedAt)),
	}
	if acc.LastRewardClaim != nil && !st.CanClaim {
		next := acc.LastRewardClaim.Add(claimWindow)
		st.NextClaimAt = &next
	}
	return st, nil
}

// Claim credits the reward to NUMA and resets the window. The cooldown check
// and the credit happen under the same account lock, so a second claim
// inside the window always fails with ErrClaimNotReady and changes nothing.
func (s *Service) Claim(accountID string) (model.Account, decimal.Decimal, error) {
	now := s.clock.Now()
	var reward decimal.Decimal
	acc, err := s.ledger.Mutate(accountID, func(acc *model.Account) ([]ledger.Entry, error) {
		if !CanClaim(*acc, now) {
			return nil, ErrClaimNotReady
		}
		reward = CurrentReward(*acc, now)
		claimed := now
		acc.LastRewardClaim = &claimed
		desc := fmt.Sprintf("daily staking reward (%s tier)", acc.Membership.EffectiveTier(now))
		return []ledger.Entry{
			ledger.CreditEntry(types.TokenNuma, reward, types.TxTypeReward, desc),
		}, nil
	})
	if err != nil {
		return model.Account{}, decimal.Zero, err
	}
	metrics.RewardClaims.Inc()
	return acc, reward, nil
}
