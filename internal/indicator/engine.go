package indicator

import (
	"math"

	"signalmon/internal/model"
)

// Periods used for the snapshot fields.
const (
	FastSMAPeriod  = 20
	SlowSMAPeriod  = 50
	RSIPeriod      = 14
	MomentumPeriod = 10
)

// Engine derives an IndicatorSnapshot from a price history.
// It holds no per-tick state, so one Engine can be reused for every tick.
type Engine struct {
	smaFast  Indicator
	smaSlow  Indicator
	rsi      Indicator
	momentum Indicator
}

// NewEngine creates an engine computing SMA(20), SMA(50), RSI(14) and Momentum(10).
func NewEngine() *Engine {
	return &Engine{
		smaFast:  NewSMA(FastSMAPeriod),
		smaSlow:  NewSMA(SlowSMAPeriod),
		rsi:      NewRSI(RSIPeriod),
		momentum: NewMomentum(MomentumPeriod),
	}
}

// Compute evaluates every indicator over prices (oldest first). Each field is
// gated by its own minimum sample count; one missing value never blocks another.
func (e *Engine) Compute(prices []float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		SMA20:      value(e.smaFast, prices),
		SMA50:      value(e.smaSlow, prices),
		RSI14:      value(e.rsi, prices),
		Momentum10: value(e.momentum, prices),
	}
}

// Indicators returns the configured indicators in snapshot field order.
func (e *Engine) Indicators() []Indicator {
	return []Indicator{e.smaFast, e.smaSlow, e.rsi, e.momentum}
}

// Warmup returns the number of prices needed before every indicator is available.
func (e *Engine) Warmup() int {
	n := 0
	for _, ind := range e.Indicators() {
		if ind.MinSamples() > n {
			n = ind.MinSamples()
		}
	}
	return n
}

// value runs one indicator and maps "not computable" and non-finite results to nil.
func value(ind Indicator, prices []float64) *float64 {
	v, ok := ind.Compute(prices)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return model.Float(v)
}
