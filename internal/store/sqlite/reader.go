package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"signalmon/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to stored signals for the HTTP API.
type Reader struct {
	db    *sql.DB
	asset string
}

// NewReader opens a SQLite connection for reading records of one asset.
func NewReader(dbPath, asset string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db, asset: asset}, nil
}

// RecentSignals returns up to limit records, newest first.
func (r *Reader) RecentSignals(ctx context.Context, limit int) ([]model.SignalRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT asset, ts, price, signal, reason, rsi, sma20, sma50, momentum
		FROM signals
		WHERE asset = ?
		ORDER BY id DESC
		LIMIT ?
	`, r.asset, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []model.SignalRecord
	for rows.Next() {
		var (
			rec                    model.SignalRecord
			ts                     int64
			signal                 string
			rsi, sma20, sma50, mom sql.NullFloat64
		)
		if err := rows.Scan(&rec.Asset, &ts, &rec.Price, &signal, &rec.Reason, &rsi, &sma20, &sma50, &mom); err != nil {
			return nil, fmt.Errorf("sqlite scan signals: %w", err)
		}
		rec.Timestamp = fromUnixNano(ts)
		rec.Signal = model.Signal(signal)
		rec.RSI, rec.SMA20, rec.SMA50, rec.Momentum = floatPtr(rsi), floatPtr(sma20), floatPtr(sma50), floatPtr(mom)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
