package store

import (
	"context"

	"numa-sim/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists rows via pgx. One row per account, position and
// pioneer, append-only rows for transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) SaveAccount(ctx context.Context, acc model.Account) error {
	_, err := s.pool.Exec(ctx, `
		insert into accounts (id, balance_numa, balance_wld, tier, started_at, expires_at, months_paid, consecutive_months, last_reward_claim, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		on conflict (id) do update set
			balance_numa = excluded.balance_numa,
			balance_wld = excluded.balance_wld,
			tier = excluded.tier,
			started_at = excluded.started_at,
			expires_at = excluded.expires_at,
			months_paid = excluded.months_paid,
			consecutive_months = excluded.consecutive_months,
			last_reward_claim = excluded.last_reward_claim
	`, acc.ID, acc.BalanceNuma, acc.BalanceWld, string(acc.Membership.Tier), acc.Membership.StartedAt,
		acc.Membership.ExpiresAt, acc.Membership.MonthsPaid, acc.Membership.ConsecutiveMonths,
		acc.LastRewardClaim, acc.CreatedAt)
	return err
}

func (s *PostgresStore) SavePosition(ctx context.Context, pos model.Position) error {
	_, err := s.pool.Exec(ctx, `
		insert into positions (id, account_id, pair, side, entry_price, amount, collateral, leverage, status, opened_at, closed_at, current_price, pnl)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		on conflict (id) do update set
			status = excluded.status,
			closed_at = excluded.closed_at,
			current_price = excluded.current_price,
			pnl = excluded.pnl
	`, pos.ID, pos.AccountID, pos.Pair, string(pos.Side), pos.EntryPrice, pos.Amount, pos.Collateral,
		pos.Leverage, string(pos.Status), pos.OpenedAt, pos.ClosedAt, pos.CurrentPrice, pos.PnL)
	return err
}

func (s *PostgresStore) SavePioneer(ctx context.Context, p model.Pioneer) error {
	_, err := s.pool.Exec(ctx, `
		insert into pioneers (account_id, capital_locked, rank, joined_at, locked_until, earnings_accumulated)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (account_id) do update set
			capital_locked = excluded.capital_locked,
			rank = excluded.rank,
			locked_until = excluded.locked_until,
			earnings_accumulated = excluded.earnings_accumulated
	`, p.AccountID, p.CapitalLocked, p.Rank, p.JoinedAt, p.LockedUntil, p.EarningsAccumulated)
	return err
}

func (s *PostgresStore) DeletePioneer(ctx context.Context, accountID string) error {
	_, err := s.pool.Exec(ctx, "delete from pioneers where account_id = $1", accountID)
	return err
}

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx model.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		insert into transactions (id, account_id, type, description, amount, token, balance_numa_after, balance_wld_after, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		on conflict (id) do nothing
	`, tx.ID, tx.AccountID, string(tx.Type), tx.Description, tx.Amount, string(tx.Token),
		tx.BalanceNumaAfter, tx.BalanceWldAfter, tx.Timestamp)
	return err
}
