// Package csvlog appends signal records to a CSV file, one row per tick.
package csvlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"signalmon/internal/model"
)

// TimeFormat is the timestamp layout of the timestamp column (local time).
const TimeFormat = "2006-01-02 15:04:05"

// DefaultPath is the log file used when none is configured.
const DefaultPath = "trading_signals.csv"

// Writer appends records to a CSV file. The header row is written only when
// the file is created; existing files are appended to as they are.
type Writer struct {
	mu   sync.Mutex
	path string
}

// New creates a writer for path. The file is opened per append so that
// external rotation or deletion is picked up on the next tick.
func New(path string) *Writer {
	if path == "" {
		path = DefaultPath
	}
	return &Writer{path: path}
}

func (w *Writer) Name() string { return "csv" }

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Append writes one row in column order: timestamp, price, signal, reason,
// rsi, sma20, sma50, momentum. Absent indicators are empty cells.
func (w *Writer) Append(_ context.Context, rec model.SignalRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, statErr := os.Stat(w.path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("csv open %s: %w", w.path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if isNew {
		if err := cw.Write(model.Columns); err != nil {
			return fmt.Errorf("csv header: %w", err)
		}
		log.Printf("[csvlog] created %s", w.path)
	}
	if err := cw.Write(Row(rec)); err != nil {
		return fmt.Errorf("csv row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return f.Sync()
}

// Close is a no-op; the file is not held open between appends.
func (w *Writer) Close() error { return nil }

// Row renders a record as CSV cells in model.Columns order.
func Row(rec model.SignalRecord) []string {
	return []string{
		rec.Timestamp.Local().Format(TimeFormat),
		formatFloat(rec.Price),
		string(rec.Signal),
		rec.Reason,
		optional(rec.RSI),
		optional(rec.SMA20),
		optional(rec.SMA50),
		optional(rec.Momentum),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optional(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p)
}
