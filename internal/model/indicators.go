package model

// IndicatorSnapshot holds the indicator values derived from the price history
// on one tick. A nil field means "not yet computable" (insufficient history);
// it is never conflated with zero.
type IndicatorSnapshot struct {
	SMA20      *float64 `json:"sma20"`
	SMA50      *float64 `json:"sma50"`
	RSI14      *float64 `json:"rsi"`
	Momentum10 *float64 `json:"momentum"`
}

// Available returns how many of the four indicators carry a value.
func (s IndicatorSnapshot) Available() int {
	n := 0
	for _, v := range []*float64{s.SMA20, s.SMA50, s.RSI14, s.Momentum10} {
		if v != nil {
			n++
		}
	}
	return n
}

// Complete reports whether every indicator is available.
func (s IndicatorSnapshot) Complete() bool { return s.Available() == IndicatorCount }

// IndicatorCount is the number of indicator fields in a snapshot.
const IndicatorCount = 4

// Float returns a pointer to a copy of v.
func Float(v float64) *float64 { return &v }

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
