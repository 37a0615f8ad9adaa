package strategy

import (
	"strings"

	"signalmon/internal/model"
)

// ReasonSeparator joins the reasons of every matching rule.
const ReasonSeparator = " & "

// Decision is the folded result of all rules for one tick.
type Decision struct {
	Signal   model.Signal `json:"signal"`
	Reason   string       `json:"reason"`
	Outcomes []Outcome    `json:"outcomes,omitempty"`
}

// Classifier holds rules in evaluation order.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier with the built-in rules registered in
// order: price delta, RSI, momentum, SMA crossover.
func NewClassifier(th Thresholds) *Classifier {
	c := &Classifier{}
	c.Register(NewPriceDelta(th.PriceChangePct))
	c.Register(NewRSILevel(th.RSIOverbought, th.RSIOversold))
	c.Register(NewMomentumLevel(th.MomentumPct))
	c.Register(NewSMACrossover())
	return c
}

// Register appends a rule. It is evaluated after every rule registered before it.
func (c *Classifier) Register(r Rule) {
	c.rules = append(c.rules, r)
}

// Rules returns the registered rule names in evaluation order.
func (c *Classifier) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

// Evaluate runs every rule and returns the matching outcomes in order.
func (c *Classifier) Evaluate(in Input) []Outcome {
	var out []Outcome
	for _, r := range c.rules {
		if o, ok := r.Evaluate(in); ok {
			out = append(out, o)
		}
	}
	return out
}

// Classify folds the outcomes left to right. The signal starts at HOLD and
// takes the last non-empty override; reasons accumulate in rule order.
func (c *Classifier) Classify(in Input) Decision {
	outcomes := c.Evaluate(in)
	d := Decision{Signal: model.SignalHold, Outcomes: outcomes}

	reasons := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Signal != "" {
			d.Signal = o.Signal
		}
		if o.Reason != "" {
			reasons = append(reasons, o.Reason)
		}
	}
	if len(reasons) == 0 {
		d.Reason = model.InitialReason
	} else {
		d.Reason = strings.Join(reasons, ReasonSeparator)
	}
	return d
}
