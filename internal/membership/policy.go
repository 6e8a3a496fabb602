// Package membership holds the tier policy: leverage caps, daily reward
// rates and the fixed pricing/discount table. The policy is pure; payment
// execution goes through the ledger.
package membership

import (
	"time"

	"numa-sim/internal/model"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
)

// Membership age after which the daily reward drops to its steady-state rate.
const steadyStateAfter = 90 * 24 * time.Hour

var maxLeverageByTier = map[types.Tier]int{
	types.TierFree: 5,
	types.TierPlus: 10,
	types.TierVip:  20,
}

// Base daily reward in NUMA per tier.
var dailyRewardByTier = map[types.Tier]decimal.Decimal{
	types.TierFree: decimal.NewFromInt(10),
	types.TierPlus: decimal.NewFromInt(25),
	types.TierVip:  decimal.NewFromInt(60),
}

// Monthly price in WLD per paid tier.
var monthlyPriceByTier = map[types.Tier]decimal.Decimal{
	types.TierPlus: decimal.NewFromInt(5),
	types.TierVip:  decimal.NewFromInt(15),
}

// Fixed discount table by duration. Not computed: product sets these.
var discountByMonths = map[int]decimal.Decimal{
	1:  decimal.Zero,
	3:  decimal.NewFromFloat(0.20),
	6:  decimal.NewFromFloat(0.33),
	12: decimal.NewFromFloat(0.50),
}

func MaxLeverage(tier types.Tier) int {
	if lev, ok := maxLeverageByTier[tier]; ok {
		return lev
	}
	return maxLeverageByTier[types.TierFree]
}

// DailyRewardRate returns the daily NUMA reward for a tier given the
// membership age. Past the steady-state threshold the rate halves.
func DailyRewardRate(tier types.Tier, age time.Duration) decimal.Decimal {
	base, ok := dailyRewardByTier[tier]
	if !ok {
		base = dailyRewardByTier[types.TierFree]
	}
	if age >= steadyStateAfter {
		return base.Div(decimal.NewFromInt(2))
	}
	return base
}

// Price returns the WLD price for duration months of tier, discount applied.
// Returns false for a tier or duration outside the table.
func Price(tier types.Tier, months int) (decimal.Decimal, bool) {
	monthly, ok := monthlyPriceByTier[tier]
	if !ok {
		return decimal.Zero, false
	}
	discount, ok := discountByMonths[months]
	if !ok {
		return decimal.Zero, false
	}
	gross := monthly.Mul(decimal.NewFromInt(int64(months)))
	return gross.Mul(decimal.NewFromInt(1).Sub(discount)), true
}

// Durations lists the purchasable durations in months.
func Durations() []int { return []int{1, 3, 6, 12} }

// Upgrade applies a paid purchase to m and returns the new membership.
// The new expiry extends from whichever is later, now or the current expiry.
// ConsecutiveMonths accumulates only on a same-tier renewal while the
// membership is still active; otherwise it resets to the purchased duration.
func Upgrade(m model.Membership, tier types.Tier, months int, now time.Time) model.Membership {
	sameTierRenewal := m.Tier == tier && m.Active(now) && tier != types.TierFree

	base := now
	if m.ExpiresAt != nil && m.ExpiresAt.After(now) {
		base = *m.ExpiresAt
	}
	expires := base.AddDate(0, months, 0)

	out := m
	out.Tier = tier
	out.ExpiresAt = &expires
	out.MonthsPaid = m.MonthsPaid + months
	if sameTierRenewal {
		out.ConsecutiveMonths = m.ConsecutiveMonths + months
	} else {
		out.ConsecutiveMonths = months
		out.StartedAt = now
	}
	return out
}
