package marketdata

import (
	"numa-sim/internal/types"

	"github.com/shopspring/decimal"
)

const (
	PairNumaUSD = "NUMA-USD"
	PairWldUSD  = "WLD-USD"
)

// PairSpec describes a tradeable pair: fee, precision, settlement token and
// how collateral is reserved. CrossMargin pairs reserve amount/leverage plus
// fee from the settlement token; the NUMA pair reserves the full notional.
type PairSpec struct {
	Symbol      string
	Settle      types.Token
	FeeRate     decimal.Decimal
	MinNotional decimal.Decimal
	Precision   int
	CrossMargin bool

	// Simulator profile.
	Base  float64
	Vol   float64
	Trend float64
}

var pairSpecs = map[string]PairSpec{
	// High-fee, high-volatility pair settled in the primary reward token.
	PairNumaUSD: {
		Symbol:      PairNumaUSD,
		Settle:      types.TokenNuma,
		FeeRate:     decimal.NewFromFloat(0.002),
		MinNotional: decimal.NewFromInt(1),
		Precision:   4,
		CrossMargin: false,
		Base:        0.042,
		Vol:         0.0009,
		Trend:       0.0000002,
	},
	// Low-fee, low-volatility cross pair: true margin reserved from WLD.
	PairWldUSD: {
		Symbol:      PairWldUSD,
		Settle:      types.TokenWld,
		FeeRate:     decimal.NewFromFloat(0.001),
		MinNotional: decimal.NewFromInt(1),
		Precision:   5,
		CrossMargin: true,
		Base:        1.23,
		Vol:         0.004,
		Trend:       0.0000004,
	},
}

func Spec(symbol string) (PairSpec, bool) {
	spec, ok := pairSpecs[symbol]
	return spec, ok
}

func Specs() []PairSpec {
	return []PairSpec{pairSpecs[PairNumaUSD], pairSpecs[PairWldUSD]}
}
