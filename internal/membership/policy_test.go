package membership

import (
	"testing"
	"time"

	"numa-sim/internal/model"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	expected, err := decimal.NewFromString(want)
	require.NoError(t, err)
	assert.True(t, got.Equal(expected), "got %s, want %s", got, want)
}

func TestMaxLeverage(t *testing.T) {
	assert.Equal(t, 5, MaxLeverage(types.TierFree))
	assert.Equal(t, 10, MaxLeverage(types.TierPlus))
	assert.Equal(t, 20, MaxLeverage(types.TierVip))
	assert.Equal(t, 5, MaxLeverage(types.Tier("unknown")))
}

func TestDailyRewardRate(t *testing.T) {
	assertDecimal(t, "10", DailyRewardRate(types.TierFree, 0))
	assertDecimal(t, "25", DailyRewardRate(types.TierPlus, time.Hour))
	assertDecimal(t, "60", DailyRewardRate(types.TierVip, 89*24*time.Hour))
}

func TestDailyRewardRate_SteadyStateHalves(t *testing.T) {
	age := 90 * 24 * time.Hour
	assertDecimal(t, "5", DailyRewardRate(types.TierFree, age))
	assertDecimal(t, "12.5", DailyRewardRate(types.TierPlus, age))
	assertDecimal(t, "30", DailyRewardRate(types.TierVip, age+time.Hour))
}

func TestPrice(t *testing.T) {
	cases := []struct {
		tier   types.Tier
		months int
		want   string
	}{
		{types.TierPlus, 1, "5"},
		{types.TierPlus, 3, "12"},   // 15 - 20%
		{types.TierPlus, 6, "20.1"}, // 30 - 33%
		{types.TierPlus, 12, "30"},  // 60 - 50%
		{types.TierVip, 1, "15"},
		{types.TierVip, 3, "36"},   // 45 - 20%
		{types.TierVip, 6, "60.3"}, // 90 - 33%
		{types.TierVip, 12, "90"},  // 180 - 50%
	}
	for _, tc := range cases {
		price, ok := Price(tc.tier, tc.months)
		require.True(t, ok, "%s x%d", tc.tier, tc.months)
		assertDecimal(t, tc.want, price)
	}
}

func TestPrice_OutsideTable(t *testing.T) {
	_, ok := Price(types.TierFree, 1)
	assert.False(t, ok)
	_, ok = Price(types.TierPlus, 2)
	assert.False(t, ok)
}

func TestUpgrade_FreshPurchase(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	m := model.Membership{Tier: types.TierFree, StartedAt: now.AddDate(0, -6, 0)}

	out := Upgrade(m, types.TierPlus, 3, now)
	assert.Equal(t, types.TierPlus, out.Tier)
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 3, 0), *out.ExpiresAt)
	assert.Equal(t, 3, out.MonthsPaid)
	assert.Equal(t, 3, out.ConsecutiveMonths)
	assert.Equal(t, now, out.StartedAt)
}

func TestUpgrade_SameTierRenewalExtendsFromExpiry(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, 1, 0)
	started := now.AddDate(0, -2, 0)
	m := model.Membership{
		Tier:              types.TierPlus,
		StartedAt:         started,
		ExpiresAt:         &expires,
		MonthsPaid:        3,
		ConsecutiveMonths: 3,
	}

	out := Upgrade(m, types.TierPlus, 6, now)
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, expires.AddDate(0, 6, 0), *out.ExpiresAt)
	assert.Equal(t, 9, out.MonthsPaid)
	assert.Equal(t, 9, out.ConsecutiveMonths)
	// a renewal keeps the original start, so reward age keeps counting
	assert.Equal(t, started, out.StartedAt)
}

func TestUpgrade_TierChangeResetsStreak(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, 1, 0)
	m := model.Membership{
		Tier:              types.TierPlus,
		StartedAt:         now.AddDate(0, -2, 0),
		ExpiresAt:         &expires,
		MonthsPaid:        3,
		ConsecutiveMonths: 3,
	}

	out := Upgrade(m, types.TierVip, 1, now)
	assert.Equal(t, types.TierVip, out.Tier)
	// unused paid time still extends from the old expiry
	assert.Equal(t, expires.AddDate(0, 1, 0), *out.ExpiresAt)
	assert.Equal(t, 4, out.MonthsPaid)
	assert.Equal(t, 1, out.ConsecutiveMonths)
	assert.Equal(t, now, out.StartedAt)
}

func TestUpgrade_LapsedRenewalStartsFromNow(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	expires := now.AddDate(0, -1, 0)
	m := model.Membership{
		Tier:              types.TierPlus,
		StartedAt:         now.AddDate(0, -4, 0),
		ExpiresAt:         &expires,
		MonthsPaid:        3,
		ConsecutiveMonths: 3,
	}

	out := Upgrade(m, types.TierPlus, 1, now)
	assert.Equal(t, now.AddDate(0, 1, 0), *out.ExpiresAt)
	assert.Equal(t, 1, out.ConsecutiveMonths)
	assert.Equal(t, now, out.StartedAt)
}

func TestMembership_EffectiveTierFallsBackToFree(t *testing.T) {
	now := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	expires := now.Add(-time.Minute)
	m := model.Membership{Tier: types.TierVip, ExpiresAt: &expires}

	assert.False(t, m.Active(now))
	assert.Equal(t, types.TierFree, m.EffectiveTier(now))
	assert.Equal(t, types.TierVip, m.EffectiveTier(now.Add(-time.Hour)))
}
