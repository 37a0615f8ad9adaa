package indicator

// Values reported when the average loss over the window is zero.
const (
	// RSIAllGains is reported when prices only rose (or stayed flat) in the window.
	RSIAllGains = 100.0
	// RSIFlat is reported when prices did not move at all in the window.
	RSIFlat = 50.0
)

// RSI calculates the Relative Strength Index from simple (non-smoothed) means
// of the last period gains and losses. It needs period+1 prices so that the
// window holds period full differences.
type RSI struct {
	period int
}

// NewRSI creates a new RSI indicator with the given period (typically 14).
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

func (r *RSI) Name() string    { return name("RSI", r.period) }
func (r *RSI) MinSamples() int { return r.period + 1 }

func (r *RSI) Compute(prices []float64) (float64, bool) {
	if r.period <= 0 || len(prices) < r.MinSamples() {
		return 0, false
	}

	window := prices[len(prices)-r.MinSamples():]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		delta := window[i] - window[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}

	p := float64(r.period)
	avgGain := gains / p
	avgLoss := losses / p

	if avgLoss == 0 {
		if avgGain == 0 {
			return RSIFlat, true
		}
		return RSIAllGains, true
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs)), true
}
