// Package indicator provides technical indicator calculations over a price history.
//
// Indicators are pure functions of the prices they are given: they carry no
// state between calls, so the same history always yields the same snapshot.
// An indicator that lacks enough samples reports ok=false instead of a value.
package indicator

import "strconv"

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "SMA_20", "RSI_14").
	Name() string

	// MinSamples is the number of prices needed before Compute can succeed.
	MinSamples() int

	// Compute evaluates the indicator over prices (oldest first).
	// ok is false when there is not enough data or the value is undefined.
	Compute(prices []float64) (value float64, ok bool)
}

func name(kind string, period int) string {
	return kind + "_" + strconv.Itoa(period)
}
