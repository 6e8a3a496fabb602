package model

import (
	"time"

	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
)

type Membership struct {
	Tier              types.Tier `json:"tier"`
	StartedAt         time.Time  `json:"started_at"`
	ExpiresAt         *time.Time `json:"expires_at"`
	MonthsPaid        int        `json:"months_paid"`
	ConsecutiveMonths int        `json:"consecutive_months"`
}

// Active reports whether a paid tier is still in force at now. A free
// membership never expires; a paid one falls back to free once ExpiresAt
// passes.
func (m Membership) Active(now time.Time) bool {
	if m.Tier == types.TierFree {
		return true
	}
	return m.ExpiresAt != nil && m.ExpiresAt.After(now)
}

// EffectiveTier is the tier that gates leverage and rewards right now.
func (m Membership) EffectiveTier(now time.Time) types.Tier {
	if m.Active(now) {
		return m.Tier
	}
	return types.TierFree
}

type Account struct {
	ID              string          `json:"id"`
	BalanceNuma     decimal.Decimal `json:"balance_numa"`
	BalanceWld      decimal.Decimal `json:"balance_wld"`
	Membership      Membership      `json:"membership"`
	LastRewardClaim *time.Time      `json:"last_reward_claim"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (a Account) Balance(token types.Token) decimal.Decimal {
	if token == types.TokenNuma {
		return a.BalanceNuma
	}
	return a.BalanceWld
}

type Position struct {
	ID         string               `json:"id"`
	AccountID  string               `json:"account_id"`
	Pair       string               `json:"pair"`
	Side       types.Side           `json:"side"`
	EntryPrice decimal.Decimal      `json:"entry_price"`
	Amount     decimal.Decimal      `json:"amount"`
	Collateral decimal.Decimal      `json:"collateral"`
	Leverage   int                  `json:"leverage"`
	Status     types.PositionStatus `json:"status"`
	OpenedAt   time.Time            `json:"opened_at"`
	ClosedAt   *time.Time           `json:"closed_at"`

	// Mark-to-market fields, refreshed on every price tick.
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnL          decimal.Decimal `json:"pnl"`
}

type Pioneer struct {
	AccountID           string          `json:"account_id"`
	CapitalLocked       decimal.Decimal `json:"capital_locked"`
	Rank                int             `json:"rank"`
	JoinedAt            time.Time       `json:"joined_at"`
	LockedUntil         time.Time       `json:"locked_until"`
	EarningsAccumulated decimal.Decimal `json:"earnings_accumulated"`
}

type Transaction struct {
	ID               string          `json:"id"`
	AccountID        string          `json:"account_id"`
	Type             types.TxType    `json:"type"`
	Description      string          `json:"description"`
	Amount           decimal.Decimal `json:"amount"`
	Token            types.Token     `json:"token"`
	BalanceNumaAfter decimal.Decimal `json:"balance_numa_after"`
	BalanceWldAfter  decimal.Decimal `json:"balance_wld_after"`
	Timestamp        time.Time       `json:"timestamp"`
}
