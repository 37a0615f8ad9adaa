package model

// Signal is the discrete recommendation produced for each tick.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Actionable reports whether the signal asks for a position change.
func (s Signal) Actionable() bool {
	return s == SignalBuy || s == SignalSell
}

func (s Signal) String() string { return string(s) }
