// Package strategy maps one tick's price and indicator snapshot to a signal.
//
// Rules are evaluated in a fixed order. Each matching rule overrides the
// signal chosen so far and contributes a reason; the Classifier folds the
// outcomes so that the last override wins while every reason is kept.
package strategy

import (
	"signalmon/internal/model"
)

// Input is everything a rule may look at for one tick.
type Input struct {
	Price      float64
	Previous   *float64 // nil on the first tick of a session
	Indicators model.IndicatorSnapshot
}

// Outcome is the result of one matching rule.
type Outcome struct {
	Rule   string       `json:"rule"`
	Signal model.Signal `json:"signal,omitempty"` // empty = no override
	Reason string       `json:"reason"`
}

// Rule is the interface that all classification rules must implement.
type Rule interface {
	// Name returns the unique name of the rule.
	Name() string

	// Evaluate returns the rule's outcome and true if it matched.
	Evaluate(in Input) (Outcome, bool)
}

// Thresholds parameterises the built-in rules.
type Thresholds struct {
	PriceChangePct float64 `yaml:"price_change_pct"` // |Δ%| at or above this triggers
	RSIOverbought  float64 `yaml:"rsi_overbought"`
	RSIOversold    float64 `yaml:"rsi_oversold"`
	MomentumPct    float64 `yaml:"momentum_pct"` // |momentum| above this triggers
}

// DefaultThresholds returns the standard rule thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PriceChangePct: 2,
		RSIOverbought:  70,
		RSIOversold:    30,
		MomentumPct:    5,
	}
}
