package indicator

// SMA calculates the Simple Moving Average of the last period prices.
type SMA struct {
	period int
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	return &SMA{period: period}
}

func (s *SMA) Name() string    { return name("SMA", s.period) }
func (s *SMA) MinSamples() int { return s.period }

func (s *SMA) Compute(prices []float64) (float64, bool) {
	if s.period <= 0 || len(prices) < s.period {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[len(prices)-s.period:] {
		sum += p
	}
	return sum / float64(s.period), true
}
