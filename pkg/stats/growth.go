package stats

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// PercentPlaces is the rounding applied to every growth percentage.
	PercentPlaces = 2
	// BTCDecimals converts satoshis to BTC.
	BTCDecimals = 8
)

// GrowthMetric compares an aggregate across two equal windows.
// Percentage is nil when the prior window is zero.
type GrowthMetric struct {
	Current    int64    `json:"current"`
	Prior      int64    `json:"prior"`
	Delta      int64    `json:"delta"`
	Percentage *float64 `json:"percentage"`
}

// Growth computes delta and the rounded percentage change from prior to current.
func Growth(current, prior int64) GrowthMetric {
	m := GrowthMetric{Current: current, Prior: prior, Delta: current - prior}
	if prior == 0 {
		return m
	}
	pct := decimal.NewFromInt(m.Delta).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(prior), PercentPlaces)
	f := pct.InexactFloat64()
	m.Percentage = &f
	return m
}

// Display scales an integer amount in the smallest unit to its display precision.
func Display(amount int64, exponent int32) decimal.Decimal {
	return decimal.New(amount, -exponent)
}

// DisplayText is Display for integer amounts stored as text, which may exceed int64.
func DisplayText(amount string, exponent int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if !d.Equal(d.Truncate(0)) {
		return decimal.Decimal{}, fmt.Errorf("amount %q is not an integer", amount)
	}
	return d.Shift(-exponent), nil
}
