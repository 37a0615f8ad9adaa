package notification

import (
	"fmt"
	"io"
	"sync"

	"github.com/shopspring/decimal"

	"signalmon/internal/model"
)

// ConsoleTimeFormat is the timestamp layout of the status block.
const ConsoleTimeFormat = "2006-01-02 15:04:05"

// Console prints a human-readable status block for each record.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console printer writing to w (usually os.Stdout).
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Print writes the status block for rec.
//
//	Time: 2024-03-01 12:00:00
//	Price: $0.5234
//	Signal: HOLD
//	Reason: Initial price logging
//	RSI: 55.12
//	...
//	Collecting data... (2/4 indicators available)
func (c *Console) Print(rec model.SignalRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.w, "\nTime: %s\n", rec.Timestamp.Local().Format(ConsoleTimeFormat))
	fmt.Fprintf(c.w, "Price: $%s\n", formatPrice(rec.Price))
	fmt.Fprintf(c.w, "Signal: %s\n", rec.Signal)
	fmt.Fprintf(c.w, "Reason: %s\n", rec.Reason)

	if rec.RSI != nil {
		fmt.Fprintf(c.w, "RSI: %.2f\n", *rec.RSI)
	}
	if rec.Momentum != nil {
		fmt.Fprintf(c.w, "Momentum: %.2f%%\n", *rec.Momentum)
	}
	if rec.SMA20 != nil {
		fmt.Fprintf(c.w, "SMA20: $%s\n", formatPrice(*rec.SMA20))
	}
	if rec.SMA50 != nil {
		fmt.Fprintf(c.w, "SMA50: $%s\n", formatPrice(*rec.SMA50))
	}

	snap := rec.Indicators()
	if !snap.Complete() {
		fmt.Fprintf(c.w, "\nCollecting data... (%d/%d indicators available)\n", snap.Available(), model.IndicatorCount)
	}
}

func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).StringFixed(4)
}
