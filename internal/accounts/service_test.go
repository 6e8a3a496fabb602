package accounts

import (
	"testing"
	"time"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *ledger.Service) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ledgerSvc := ledger.NewService(nil, clk)
	return NewService(ledgerSvc, DefaultGrant(), clk), ledgerSvc
}

func TestEnsureVerified_CreatesWithGrant(t *testing.T) {
	svc, ledgerSvc := newTestService(t)

	acc, created, err := svc.EnsureVerified("hash-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, acc.BalanceNuma.Equal(decimal.NewFromInt(100)))
	assert.True(t, acc.BalanceWld.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, types.TierFree, acc.Membership.Tier)

	txs, _ := ledgerSvc.Transactions(acc.ID, 0)
	require.Len(t, txs, 2)
	assert.Equal(t, types.TxTypeGrant, txs[0].Type)
	assert.Equal(t, types.TxTypeGrant, txs[1].Type)
}

func TestEnsureVerified_SameNullifierSameAccount(t *testing.T) {
	svc, _ := newTestService(t)

	first, created, err := svc.EnsureVerified("hash-1")
	require.NoError(t, err)
	assert.True(t, created)

	// a repeat verification is a login, never a second grant
	second, created, err := svc.EnsureVerified("hash-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.BalanceNuma.Equal(decimal.NewFromInt(100)))
}

func TestEnsureVerified_DistinctNullifiersDistinctAccounts(t *testing.T) {
	svc, _ := newTestService(t)

	a, _, err := svc.EnsureVerified("hash-a")
	require.NoError(t, err)
	b, _, err := svc.EnsureVerified("hash-b")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestReferralReward(t *testing.T) {
	svc, ledgerSvc := newTestService(t)

	referrer, _, _ := svc.EnsureVerified("hash-a")
	referred, _, _ := svc.EnsureVerified("hash-b")

	err := svc.ReferralReward(referrer.ID, referred.ID, decimal.NewFromInt(5))
	require.NoError(t, err)

	a, _ := ledgerSvc.Get(referrer.ID)
	b, _ := ledgerSvc.Get(referred.ID)
	assert.True(t, a.BalanceWld.Equal(decimal.NewFromInt(105)))
	assert.True(t, b.BalanceWld.Equal(decimal.NewFromInt(105)))
}

func TestReferralReward_Invalid(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.ReferralReward("a", "b", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidReward)

	_, _, err2 := svc.EnsureVerified("hash-a")
	require.NoError(t, err2)
	err = svc.ReferralReward("missing", "also-missing", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestReferralReward_UnknownReferredCreditsNobody(t *testing.T) {
	svc, ledgerSvc := newTestService(t)

	referrer, _, err := svc.EnsureVerified("hash-a")
	require.NoError(t, err)

	err = svc.ReferralReward(referrer.ID, "missing-account", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// The rejected referral must not pay the referrer; the collaborator
	// retries on error and a partial credit would double-pay.
	a, _ := ledgerSvc.Get(referrer.ID)
	assert.True(t, a.BalanceWld.Equal(decimal.NewFromInt(100)))

	txs, _ := ledgerSvc.Transactions(referrer.ID, 0)
	for _, tx := range txs {
		assert.NotEqual(t, types.TxTypeReferral, tx.Type)
	}
}

func TestReferralReward_UnknownReferrerCreditsNobody(t *testing.T) {
	svc, ledgerSvc := newTestService(t)

	referred, _, err := svc.EnsureVerified("hash-b")
	require.NoError(t, err)

	err = svc.ReferralReward("missing-account", referred.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	b, _ := ledgerSvc.Get(referred.ID)
	assert.True(t, b.BalanceWld.Equal(decimal.NewFromInt(100)))
}
