// Package positions owns the leveraged position lifecycle: open, mark to
// market, auto-liquidation and close. One-way state machine, open to closed.
package positions

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"numa-sim/internal/clock"
	"numa-sim/internal/ledger"
	"numa-sim/internal/marketdata"
	"numa-sim/internal/membership"
	"numa-sim/internal/metrics"
	"numa-sim/internal/model"
	"numa-sim/internal/outbox"
	"numa-sim/internal/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrPositionNotFound = errors.New("position not found")
	ErrAlreadyClosed    = errors.New("position already closed")
	ErrLeverageExceeded = errors.New("leverage above tier cap")
	ErrInvalidLeverage  = errors.New("leverage must be at least 1")
	ErrInvalidAmount    = errors.New("amount below pair minimum")
	ErrInvalidSide      = errors.New("invalid side")
)

// Absolute floor for the projected settlement-token balance. Below it the
// position is force-closed on the next tick.
var liquidationFloor = decimal.NewFromFloat(0.5)

type Service struct {
	mu        sync.RWMutex
	positions map[string]*model.Position
	byPair    map[string]map[string]*model.Position

	ledger *ledger.Service
	feed   marketdata.PriceSource
	events *outbox.Outbox
	clock  clock.Clock
}

func NewService(ledgerSvc *ledger.Service, feed marketdata.PriceSource, events *outbox.Outbox, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System()
	}
	return &Service{
		positions: make(map[string]*model.Position),
		byPair:    make(map[string]map[string]*model.Position),
		ledger:    ledgerSvc,
		feed:      feed,
		events:    events,
		clock:     clk,
	}
}

// PnL is the linear, non-compounding model: leverage scales the raw price
// movement of the notional. Long and short are sign-symmetric.
func PnL(entry, current, amount decimal.Decimal, leverage int, side types.Side) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	ratio := current.Sub(entry).Div(entry)
	if side == types.SideShort {
		ratio = ratio.Neg()
	}
	return amount.Mul(decimal.NewFromInt(int64(leverage))).Mul(ratio)
}

// Open reserves collateral and creates the position at the current feed
// price. The reserve differs by pair: the NUMA pair locks the full notional
// plus fee from NUMA, the cross pair locks amount/leverage plus fee from WLD.
func (s *Service) Open(accountID, pair string, side types.Side, amount decimal.Decimal, leverage int) (model.Position, error) {
	spec, ok := marketdata.Spec(pair)
	if !ok {
		return model.Position{}, marketdata.ErrPairNotFound
	}
	if side != types.SideLong && side != types.SideShort {
		return model.Position{}, ErrInvalidSide
	}
	if amount.LessThan(spec.MinNotional) {
		return model.Position{}, ErrInvalidAmount
	}
	if leverage < 1 {
		return model.Position{}, ErrInvalidLeverage
	}

	now := s.clock.Now()
	acc, err := s.ledger.Get(accountID)
	if err != nil {
		return model.Position{}, err
	}
	tier := acc.Membership.EffectiveTier(now)
	if leverage > membership.MaxLeverage(tier) {
		return model.Position{}, ErrLeverageExceeded
	}

	fee := amount.Mul(spec.FeeRate)
	collateral := amount
	if spec.CrossMargin {
		collateral = amount.Div(decimal.NewFromInt(int64(leverage)))
	}
	reserve := collateral.Add(fee)

	price, err := s.feed.Current(pair)
	if err != nil {
		return model.Position{}, err
	}

	desc := fmt.Sprintf("open %s %s %s x%d @ %s", side, pair, amount, leverage, price)
	if _, err := s.ledger.Debit(accountID, spec.Settle, reserve, types.TxTypeOpenPosition, desc); err != nil {
		return model.Position{}, err
	}

	pos := model.Position{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Pair:         pair,
		Side:         side,
		EntryPrice:   price,
		Amount:       amount,
		Collateral:   collateral,
		Leverage:     leverage,
		Status:       types.PositionStatusOpen,
		OpenedAt:     now,
		CurrentPrice: price,
		PnL:          decimal.Zero,
	}

	s.mu.Lock()
	s.positions[pos.ID] = &pos
	if s.byPair[pair] == nil {
		s.byPair[pair] = make(map[string]*model.Position)
	}
	s.byPair[pair][pos.ID] = &pos
	s.mu.Unlock()

	s.emit(pos)
	metrics.PositionsOpened.WithLabelValues(pair).Inc()
	return pos, nil
}

// MarkPair re-marks every open position on the pair at price and runs the
// liquidation check for each. Called synchronously from the price tick so a
// position is never priced without being checked.
func (s *Service) MarkPair(pair string, price decimal.Decimal) {
	spec, ok := marketdata.Spec(pair)
	if !ok {
		return
	}

	s.mu.Lock()
	open := make([]*model.Position, 0, len(s.byPair[pair]))
	for _, pos := range s.byPair[pair] {
		open = append(open, pos)
	}
	s.mu.Unlock()

	for _, pos := range open {
		s.markOne(spec, pos, price)
	}
}

func (s *Service) markOne(spec marketdata.PairSpec, pos *model.Position, price decimal.Decimal) {
	s.mu.Lock()
	if pos.Status != types.PositionStatusOpen {
		s.mu.Unlock()
		return
	}
	pos.CurrentPrice = price
	pos.PnL = PnL(pos.EntryPrice, price, pos.Amount, pos.Leverage, pos.Side)
	pnl := pos.PnL
	s.mu.Unlock()

	acc, err := s.ledger.Get(pos.AccountID)
	if err != nil {
		return
	}
	projected := acc.Balance(spec.Settle).Add(pos.Collateral).Add(pnl)
	if projected.GreaterThanOrEqual(liquidationFloor) {
		return
	}
	s.liquidate(spec, pos, price, pnl)
}

// claim atomically takes an open position out of circulation so that exactly
// one settlement path (voluntary close or liquidation) can credit it. Returns
// false if another path got there first.
func (s *Service) claim(pos *model.Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos.Status != types.PositionStatusOpen {
		return false
	}
	pos.Status = types.PositionStatusClosed
	delete(s.byPair[pos.Pair], pos.ID)
	return true
}

// reopen rolls back a claim whose settlement failed.
func (s *Service) reopen(pos *model.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos.Status = types.PositionStatusOpen
	if s.byPair[pos.Pair] == nil {
		s.byPair[pos.Pair] = make(map[string]*model.Position)
	}
	s.byPair[pos.Pair][pos.ID] = pos
}

// liquidate force-closes an undercollateralized position and returns the
// remaining (possibly zero) collateral. Logged with a distinct transaction
// type so history can tell it apart from a voluntary close.
func (s *Service) liquidate(spec marketdata.PairSpec, pos *model.Position, price, pnl decimal.Decimal) {
	if !s.claim(pos) {
		return
	}

	remaining := pos.Collateral.Add(pnl)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	desc := fmt.Sprintf("liquidated %s %s @ %s, pnl %s", pos.Side, pos.Pair, price, pnl)
	if _, err := s.ledger.Credit(pos.AccountID, spec.Settle, remaining, types.TxTypeLiquidation, desc); err != nil {
		s.reopen(pos)
		return
	}

	now := s.clock.Now()
	s.mu.Lock()
	pos.ClosedAt = &now
	pos.CurrentPrice = price
	pos.PnL = pnl
	snapshot := *pos
	s.mu.Unlock()

	s.emit(snapshot)
	metrics.PositionsLiquidated.WithLabelValues(pos.Pair).Inc()
}

// Close settles a position at the current feed price: collateral plus P&L
// minus the closing fee goes back to the settlement token. Closing a closed
// position is an error, not a silent success.
func (s *Service) Close(accountID, positionID string) (model.Position, error) {
	s.mu.Lock()
	pos, ok := s.positions[positionID]
	if !ok || pos.AccountID != accountID {
		s.mu.Unlock()
		return model.Position{}, ErrPositionNotFound
	}
	if pos.Status == types.PositionStatusClosed {
		s.mu.Unlock()
		return model.Position{}, ErrAlreadyClosed
	}
	// Claim while still holding the lock: a concurrent close or a
	// liquidation tick must not settle this position a second time.
	pos.Status = types.PositionStatusClosed
	delete(s.byPair[pos.Pair], pos.ID)
	s.mu.Unlock()

	spec, _ := marketdata.Spec(pos.Pair)
	price, err := s.feed.Current(pos.Pair)
	if err != nil {
		s.reopen(pos)
		return model.Position{}, err
	}
	pnl := PnL(pos.EntryPrice, price, pos.Amount, pos.Leverage, pos.Side)
	closingFee := pos.Amount.Mul(spec.FeeRate)
	net := pos.Collateral.Add(pnl).Sub(closingFee)

	desc := fmt.Sprintf("close %s %s @ %s, pnl %s", pos.Side, pos.Pair, price, pnl)
	if net.IsNegative() {
		// Only reachable when the liquidation tick was skipped: absorb the
		// loss from the available balance, never below zero.
		_, err = s.ledger.Mutate(accountID, func(acc *model.Account) ([]ledger.Entry, error) {
			loss := net.Neg()
			if loss.GreaterThan(acc.Balance(spec.Settle)) {
				loss = acc.Balance(spec.Settle)
			}
			return []ledger.Entry{
				ledger.DebitEntry(spec.Settle, loss, types.TxTypeClosePosition, desc),
			}, nil
		})
	} else {
		_, err = s.ledger.Credit(accountID, spec.Settle, net, types.TxTypeClosePosition, desc)
	}
	if err != nil {
		s.reopen(pos)
		return model.Position{}, err
	}

	now := s.clock.Now()
	s.mu.Lock()
	pos.ClosedAt = &now
	pos.CurrentPrice = price
	pos.PnL = pnl
	snapshot := *pos
	s.mu.Unlock()

	s.emit(snapshot)
	metrics.PositionsClosed.WithLabelValues(pos.Pair).Inc()
	return snapshot, nil
}

// Get returns a snapshot of one position owned by accountID.
func (s *Service) Get(accountID, positionID string) (model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.positions[positionID]
	if !ok || pos.AccountID != accountID {
		return model.Position{}, ErrPositionNotFound
	}
	return *pos, nil
}

// List returns the account's positions, open first, newest first within each
// group.
func (s *Service) List(accountID string) []model.Position {
	s.mu.RLock()
	out := make([]model.Position, 0, 8)
	for _, pos := range s.positions {
		if pos.AccountID == accountID {
			out = append(out, *pos)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status == types.PositionStatusOpen
		}
		return out[i].OpenedAt.After(out[j].OpenedAt)
	})
	return out
}

// OpenCount reports open positions across all accounts, used by metrics.
func (s *Service) OpenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, byID := range s.byPair {
		n += len(byID)
	}
	return n
}

func (s *Service) emit(pos model.Position) {
	s.events.Emit(outbox.Event{Kind: outbox.EventPosition, AccountID: pos.AccountID, Position: &pos})
}
