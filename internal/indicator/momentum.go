package indicator

// Momentum calculates the percentage change of the latest price relative to
// the price period observations earlier: (p_now / p_then - 1) * 100.
type Momentum struct {
	period int
}

// NewMomentum creates a new Momentum indicator with the given lookback.
func NewMomentum(period int) *Momentum {
	return &Momentum{period: period}
}

func (m *Momentum) Name() string    { return name("MOM", m.period) }
func (m *Momentum) MinSamples() int { return m.period + 1 }

func (m *Momentum) Compute(prices []float64) (float64, bool) {
	if m.period <= 0 || len(prices) < m.MinSamples() {
		return 0, false
	}
	now := prices[len(prices)-1]
	then := prices[len(prices)-1-m.period]
	if then == 0 {
		return 0, false
	}
	return (now/then - 1) * 100, true
}
