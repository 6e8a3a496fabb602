package marketdata

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var ErrPairNotFound = errors.New("pair not supported")

// PriceSource is what the position engine consumes. The simulator Feed
// implements it; tests inject a fixed source instead.
type PriceSource interface {
	Current(symbol string) (decimal.Decimal, error)
}

type Tick struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Time   int64           `json:"time"`
}

const historyCap = 500

// Feed is the stochastic price simulator: a mean-reverting random walk per
// pair around the profile base, with a slow drift. It is a pure function of
// its own state; a real oracle can replace it behind PriceSource.
type Feed struct {
	mu      sync.RWMutex
	prices  map[string]float64
	history map[string][]Tick
	rng     *rand.Rand
}

func NewFeed(seed int64) *Feed {
	f := &Feed{
		prices:  make(map[string]float64),
		history: make(map[string][]Tick),
		rng:     rand.New(rand.NewSource(seed)),
	}
	for _, spec := range Specs() {
		f.prices[spec.Symbol] = spec.Base
	}
	return f
}

// Step advances every pair by one tick and records history.
func (f *Feed) Step(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, spec := range Specs() {
		prev := f.prices[spec.Symbol]
		next := f.evolve(spec, prev, now)
		f.prices[spec.Symbol] = next

		hist := append(f.history[spec.Symbol], Tick{
			Symbol: spec.Symbol,
			Price:  roundTo(next, spec.Precision),
			Time:   now.Unix(),
		})
		if len(hist) > historyCap {
			hist = hist[len(hist)-historyCap:]
		}
		f.history[spec.Symbol] = hist
	}
}

// evolve mean-reverts toward a slowly cycling anchor and adds noise.
func (f *Feed) evolve(spec PairSpec, prev float64, now time.Time) float64 {
	y := float64(now.Unix()) / 86400.0
	anchor := spec.Base * (1 + 0.004*math.Sin(y/7.0) + 0.002*math.Sin(y/3.3))
	revert := (anchor - prev) * 0.05
	noise := f.rng.NormFloat64() * spec.Vol
	price := prev + revert + noise + spec.Trend

	floor := spec.Base * 0.5
	ceiling := spec.Base * 1.8
	if price < floor {
		price = floor + math.Abs(noise)
	}
	if price > ceiling {
		price = ceiling - math.Abs(noise)
	}
	return price
}

func (f *Feed) Current(symbol string) (decimal.Decimal, error) {
	spec, ok := Spec(symbol)
	if !ok {
		return decimal.Zero, ErrPairNotFound
	}
	f.mu.RLock()
	price := f.prices[symbol]
	f.mu.RUnlock()
	return roundTo(price, spec.Precision), nil
}

// History returns up to limit most recent ticks for a pair, oldest first.
func (f *Feed) History(symbol string, limit int) ([]Tick, error) {
	if _, ok := Spec(symbol); !ok {
		return nil, ErrPairNotFound
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	hist := f.history[symbol]
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]Tick, len(hist))
	copy(out, hist)
	return out, nil
}

// SetPrice pins a pair's price. Used by tests.
func (f *Feed) SetPrice(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}

func roundTo(v float64, prec int) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(int32(prec))
}
