package pioneer

import (
	"fmt"
	"testing"
	"time"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, accounts int) (*Service, *ledger.Service, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	ledgerSvc := ledger.NewService(nil, clk)
	for i := 1; i <= accounts; i++ {
		id := fmt.Sprintf("acc-%d", i)
		_, err := ledgerSvc.Create(id)
		require.NoError(t, err)
		ledgerSvc.Credit(id, types.TokenWld, decimal.NewFromInt(1000), types.TxTypeGrant, "grant")
	}
	return NewService(ledgerSvc, nil, clk), ledgerSvc, clk
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "got %s, want %s", got, want)
}

func TestJoin(t *testing.T) {
	svc, ledgerSvc, clk := newTestService(t, 1)

	p, err := svc.Join("acc-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Rank)
	assertDecimal(t, "100", p.CapitalLocked)
	assert.Equal(t, clk.Now().AddDate(0, 0, LockDays), p.LockedUntil)

	acc, _ := ledgerSvc.Get("acc-1")
	assertDecimal(t, "900", acc.BalanceWld)
}

func TestJoin_BelowMinimumChangesNothing(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t, 1)

	_, err := svc.Join("acc-1", decimal.NewFromInt(49))
	assert.ErrorIs(t, err, ErrBelowMinStake)

	acc, _ := ledgerSvc.Get("acc-1")
	assertDecimal(t, "1000", acc.BalanceWld)
	assert.Equal(t, 0, svc.Size())
}

func TestJoin_Duplicate(t *testing.T) {
	svc, _, _ := newTestService(t, 1)

	_, err := svc.Join("acc-1", decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = svc.Join("acc-1", decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestJoin_InsufficientBalance(t *testing.T) {
	svc, _, _ := newTestService(t, 1)

	_, err := svc.Join("acc-1", decimal.NewFromInt(2000))
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)
	assert.Equal(t, 0, svc.Size())
}

func TestRanking_CapitalDescending(t *testing.T) {
	svc, _, _ := newTestService(t, 3)

	svc.Join("acc-1", decimal.NewFromInt(100))
	svc.Join("acc-2", decimal.NewFromInt(300))
	svc.Join("acc-3", decimal.NewFromInt(200))

	board := svc.Leaderboard(0)
	require.Len(t, board, 3)
	assert.Equal(t, "acc-2", board[0].AccountID)
	assert.Equal(t, "acc-3", board[1].AccountID)
	assert.Equal(t, "acc-1", board[2].AccountID)
	for i, p := range board {
		assert.Equal(t, i+1, p.Rank)
	}
	assert.NoError(t, svc.Validate())
}

func TestRanking_TieBreaksByEarliestJoin(t *testing.T) {
	svc, _, clk := newTestService(t, 2)

	svc.Join("acc-1", decimal.NewFromInt(100))
	clk.Advance(time.Hour)
	svc.Join("acc-2", decimal.NewFromInt(100))

	board := svc.Leaderboard(0)
	require.Len(t, board, 2)
	assert.Equal(t, "acc-1", board[0].AccountID)
	assert.Equal(t, "acc-2", board[1].AccountID)
}

func TestAddCapital_Reranks(t *testing.T) {
	svc, _, clk := newTestService(t, 2)

	first, _ := svc.Join("acc-1", decimal.NewFromInt(100))
	svc.Join("acc-2", decimal.NewFromInt(200))
	clk.Advance(time.Hour)

	p, err := svc.AddCapital("acc-1", decimal.NewFromInt(150))
	require.NoError(t, err)
	assertDecimal(t, "250", p.CapitalLocked)
	assert.Equal(t, 1, p.Rank)
	// the lock window is unchanged by a top-up
	assert.Equal(t, first.LockedUntil, p.LockedUntil)
	assert.NoError(t, svc.Validate())
}

func TestAddCapital_BelowMinimum(t *testing.T) {
	svc, _, _ := newTestService(t, 1)
	svc.Join("acc-1", decimal.NewFromInt(100))

	_, err := svc.AddCapital("acc-1", decimal.NewFromInt(9))
	assert.ErrorIs(t, err, ErrBelowMinAdd)
}

func TestAddCapital_NotMember(t *testing.T) {
	svc, _, _ := newTestService(t, 1)

	_, err := svc.AddCapital("acc-1", decimal.NewFromInt(10))
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestWithdraw_EarlyPaysPenalty(t *testing.T) {
	svc, ledgerSvc, clk := newTestService(t, 1)

	svc.Join("acc-1", decimal.NewFromInt(100))
	clk.Advance(30 * 24 * time.Hour)

	payout, err := svc.Withdraw("acc-1")
	require.NoError(t, err)
	assertDecimal(t, "80", payout) // 20% of 100 forfeited

	acc, _ := ledgerSvc.Get("acc-1")
	assertDecimal(t, "980", acc.BalanceWld)
	assert.Equal(t, 0, svc.Size())
}

func TestWithdraw_AfterLockPaysFull(t *testing.T) {
	svc, ledgerSvc, clk := newTestService(t, 1)

	svc.Join("acc-1", decimal.NewFromInt(100))
	clk.Advance(365 * 24 * time.Hour)

	payout, err := svc.Withdraw("acc-1")
	require.NoError(t, err)
	assertDecimal(t, "100", payout)

	acc, _ := ledgerSvc.Get("acc-1")
	assertDecimal(t, "1000", acc.BalanceWld)
}

func TestWithdraw_ThenRejoinStartsFresh(t *testing.T) {
	svc, _, clk := newTestService(t, 1)

	svc.Join("acc-1", decimal.NewFromInt(100))
	clk.Advance(100 * 24 * time.Hour)
	_, err := svc.Withdraw("acc-1")
	require.NoError(t, err)

	p, err := svc.Join("acc-1", decimal.NewFromInt(50))
	require.NoError(t, err)
	assert.Equal(t, clk.Now().AddDate(0, 0, LockDays), p.LockedUntil)
}

func TestWithdraw_NotMember(t *testing.T) {
	svc, _, _ := newTestService(t, 1)

	_, err := svc.Withdraw("acc-1")
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestWithdraw_RemaindersRerank(t *testing.T) {
	svc, _, _ := newTestService(t, 3)

	svc.Join("acc-1", decimal.NewFromInt(300))
	svc.Join("acc-2", decimal.NewFromInt(200))
	svc.Join("acc-3", decimal.NewFromInt(100))

	_, err := svc.Withdraw("acc-1")
	require.NoError(t, err)

	board := svc.Leaderboard(0)
	require.Len(t, board, 2)
	assert.Equal(t, "acc-2", board[0].AccountID)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "acc-3", board[1].AccountID)
	assert.Equal(t, 2, board[1].Rank)
	assert.NoError(t, svc.Validate())
}

func TestIsTopRanked(t *testing.T) {
	svc, _, _ := newTestService(t, 2)

	svc.Join("acc-1", decimal.NewFromInt(100))
	assert.True(t, svc.IsTopRanked("acc-1"))
	assert.False(t, svc.IsTopRanked("acc-2"))
}

func TestLockRemaining(t *testing.T) {
	svc, _, clk := newTestService(t, 1)

	svc.Join("acc-1", decimal.NewFromInt(100))
	clk.Advance(24 * time.Hour)

	remaining, ok := svc.LockRemaining("acc-1")
	require.True(t, ok)
	assert.Equal(t, time.Duration(LockDays-1)*24*time.Hour, remaining)

	_, ok = svc.LockRemaining("missing")
	assert.False(t, ok)
}

func TestLeaderboard_Limit(t *testing.T) {
	svc, _, _ := newTestService(t, 3)

	svc.Join("acc-1", decimal.NewFromInt(100))
	svc.Join("acc-2", decimal.NewFromInt(200))
	svc.Join("acc-3", decimal.NewFromInt(300))

	board := svc.Leaderboard(2)
	require.Len(t, board, 2)
	assert.Equal(t, "acc-3", board[0].AccountID)
}
