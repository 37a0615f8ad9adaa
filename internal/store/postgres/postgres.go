// Package postgres stores signal records in a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"

	"signalmon/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id        BIGSERIAL PRIMARY KEY,
	asset     TEXT             NOT NULL,
	ts        TIMESTAMPTZ      NOT NULL,
	price     DOUBLE PRECISION NOT NULL,
	signal    TEXT             NOT NULL,
	reason    TEXT             NOT NULL,
	rsi       DOUBLE PRECISION,
	sma20     DOUBLE PRECISION,
	sma50     DOUBLE PRECISION,
	momentum  DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_signals_asset_ts ON signals (asset, ts DESC);
`

// Writer inserts one row per record.
type Writer struct {
	db *sql.DB
}

// New opens the database, pings it and applies the schema.
func New(ctx context.Context, dsn string) (*Writer, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(pingCtx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	log.Printf("[postgres] connected")
	return &Writer{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

func (w *Writer) Name() string { return "postgres" }

func (w *Writer) Append(ctx context.Context, rec model.SignalRecord) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO signals (asset, ts, price, signal, reason, rsi, sma20, sma50, momentum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, rec.Asset, rec.Timestamp, rec.Price, string(rec.Signal), rec.Reason,
		nullFloat(rec.RSI), nullFloat(rec.SMA20), nullFloat(rec.SMA50), nullFloat(rec.Momentum))
	if err != nil {
		return fmt.Errorf("postgres insert signal: %w", err)
	}
	return nil
}

// RecentSignals returns up to limit records for asset, newest first.
func (w *Writer) RecentSignals(ctx context.Context, asset string, limit int) ([]model.SignalRecord, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT asset, ts, price, signal, reason, rsi, sma20, sma50, momentum
		FROM signals WHERE asset = $1
		ORDER BY id DESC LIMIT $2
	`, asset, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres query signals: %w", err)
	}
	defer rows.Close()

	var out []model.SignalRecord
	for rows.Next() {
		var (
			rec                    model.SignalRecord
			signal                 string
			rsi, sma20, sma50, mom sql.NullFloat64
		)
		if err := rows.Scan(&rec.Asset, &rec.Timestamp, &rec.Price, &signal, &rec.Reason, &rsi, &sma20, &sma50, &mom); err != nil {
			return nil, fmt.Errorf("postgres scan signals: %w", err)
		}
		rec.Signal = model.Signal(signal)
		rec.RSI, rec.SMA20, rec.SMA50, rec.Momentum = floatPtr(rsi), floatPtr(sma20), floatPtr(sma50), floatPtr(mom)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return model.Float(n.Float64)
}
