package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"signalmon/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const dsnOptions = "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Writer appends signal records to the signals table.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+dsnOptions)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Create table if not exists
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			asset     TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			price     REAL    NOT NULL,
			signal    TEXT    NOT NULL,
			reason    TEXT    NOT NULL,
			rsi       REAL,
			sma20     REAL,
			sma50     REAL,
			momentum  REAL
		);

		CREATE INDEX IF NOT EXISTS idx_signals_asset_ts ON signals (asset, ts);
	`)
	return err
}

func (w *Writer) Name() string { return "sqlite" }

// Append inserts one record. Absent indicators are stored as NULL.
func (w *Writer) Append(ctx context.Context, rec model.SignalRecord) error {
	_, err := w.db.ExecContext(ctx, `
		INSERT INTO signals (asset, ts, price, signal, reason, rsi, sma20, sma50, momentum)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.Asset, rec.Timestamp.UnixNano(), rec.Price, string(rec.Signal), rec.Reason,
		nullFloat(rec.RSI), nullFloat(rec.SMA20), nullFloat(rec.SMA50), nullFloat(rec.Momentum))
	if err != nil {
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
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

func fromUnixNano(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
