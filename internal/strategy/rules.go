package strategy

import (
	"fmt"

	"signalmon/internal/model"
)

// PriceDelta fires on a large move relative to the previous tick's price.
// It needs a previous price and skips a zero one.
type PriceDelta struct {
	threshold float64
}

func NewPriceDelta(thresholdPct float64) *PriceDelta {
	return &PriceDelta{threshold: thresholdPct}
}

func (r *PriceDelta) Name() string { return "price_delta" }

func (r *PriceDelta) Evaluate(in Input) (Outcome, bool) {
	if in.Previous == nil || *in.Previous == 0 {
		return Outcome{}, false
	}
	prev := *in.Previous
	change := (in.Price - prev) / prev * 100
	switch {
	case change >= r.threshold:
		return Outcome{Rule: r.Name(), Signal: model.SignalBuy, Reason: fmt.Sprintf("Price up %.2f%%", change)}, true
	case change <= -r.threshold:
		return Outcome{Rule: r.Name(), Signal: model.SignalSell, Reason: fmt.Sprintf("Price down %.2f%%", change)}, true
	}
	return Outcome{}, false
}

// RSILevel sells when RSI is overbought and buys when it is oversold.
type RSILevel struct {
	overbought float64
	oversold   float64
}

func NewRSILevel(overbought, oversold float64) *RSILevel {
	return &RSILevel{overbought: overbought, oversold: oversold}
}

func (r *RSILevel) Name() string { return "rsi" }

func (r *RSILevel) Evaluate(in Input) (Outcome, bool) {
	if in.Indicators.RSI14 == nil {
		return Outcome{}, false
	}
	rsi := *in.Indicators.RSI14
	switch {
	case rsi > r.overbought:
		return Outcome{Rule: r.Name(), Signal: model.SignalSell, Reason: fmt.Sprintf("RSI overbought: %.2f", rsi)}, true
	case rsi < r.oversold:
		return Outcome{Rule: r.Name(), Signal: model.SignalBuy, Reason: fmt.Sprintf("RSI oversold: %.2f", rsi)}, true
	}
	return Outcome{}, false
}

// MomentumLevel follows strong momentum in either direction.
type MomentumLevel struct {
	threshold float64
}

func NewMomentumLevel(thresholdPct float64) *MomentumLevel {
	return &MomentumLevel{threshold: thresholdPct}
}

func (r *MomentumLevel) Name() string { return "momentum" }

func (r *MomentumLevel) Evaluate(in Input) (Outcome, bool) {
	if in.Indicators.Momentum10 == nil {
		return Outcome{}, false
	}
	mom := *in.Indicators.Momentum10
	switch {
	case mom > r.threshold:
		return Outcome{Rule: r.Name(), Signal: model.SignalBuy, Reason: fmt.Sprintf("Strong positive momentum: %.2f%%", mom)}, true
	case mom < -r.threshold:
		return Outcome{Rule: r.Name(), Signal: model.SignalSell, Reason: fmt.Sprintf("Strong negative momentum: %.2f%%", mom)}, true
	}
	return Outcome{}, false
}

// SMACrossover compares the fast and slow moving averages.
//
// Buy signal: SMA20 above SMA50
// Sell signal: SMA20 below SMA50
//
// Equal averages produce nothing.
type SMACrossover struct{}

func NewSMACrossover() *SMACrossover { return &SMACrossover{} }

func (r *SMACrossover) Name() string { return "sma_crossover" }

func (r *SMACrossover) Evaluate(in Input) (Outcome, bool) {
	fast, slow := in.Indicators.SMA20, in.Indicators.SMA50
	if fast == nil || slow == nil {
		return Outcome{}, false
	}
	switch {
	case *fast > *slow:
		return Outcome{Rule: r.Name(), Signal: model.SignalBuy, Reason: "SMA20 above SMA50"}, true
	case *fast < *slow:
		return Outcome{Rule: r.Name(), Signal: model.SignalSell, Reason: "SMA20 below SMA50"}, true
	}
	return Outcome{}, false
}
