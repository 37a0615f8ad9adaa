package model

import "context"

// ── Collaborator ports ──
// The tick driver depends only on these interfaces; concrete quote clients and
// storage backends live under internal/marketdata and internal/store.

// PriceSource fetches the current price of the monitored asset.
type PriceSource interface {
	// FetchPrice returns the latest quote. Any error means the tick is skipped.
	FetchPrice(ctx context.Context) (float64, error)

	// Name identifies the source in logs and metrics.
	Name() string
}

// RecordSink appends signal records to an append-only destination.
type RecordSink interface {
	// Append persists one record. An error means the record may not have been stored.
	Append(ctx context.Context, rec SignalRecord) error
}

// NamedSink is a RecordSink that can identify itself and release resources.
type NamedSink interface {
	RecordSink
	Name() string
	Close() error
}
