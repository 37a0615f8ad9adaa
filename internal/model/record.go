package model

import (
	"encoding/json"
	"time"
)

// InitialReason is the reason recorded when no classification rule fired.
const InitialReason = "Initial price logging"

// SignalRecord is the persisted outcome of one tick. Records are created once
// and never updated; sinks only ever append them.
type SignalRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Asset     string    `json:"asset"`
	Price     float64   `json:"price"`
	Signal    Signal    `json:"signal"`
	Reason    string    `json:"reason"`
	RSI       *float64  `json:"rsi"`
	SMA20     *float64  `json:"sma20"`
	SMA50     *float64  `json:"sma50"`
	Momentum  *float64  `json:"momentum"`
}

// Columns is the stable column order used by tabular sinks.
var Columns = []string{"timestamp", "price", "signal", "reason", "rsi", "sma20", "sma50", "momentum"}

// NewSignalRecord assembles a record from one tick's inputs. Indicator values
// are copied so the record does not share memory with the snapshot.
func NewSignalRecord(ts time.Time, asset string, price float64, sig Signal, reason string, ind IndicatorSnapshot) SignalRecord {
	if reason == "" {
		reason = InitialReason
	}
	return SignalRecord{
		Timestamp: ts,
		Asset:     asset,
		Price:     price,
		Signal:    sig,
		Reason:    reason,
		RSI:       cloneFloat(ind.RSI14),
		SMA20:     cloneFloat(ind.SMA20),
		SMA50:     cloneFloat(ind.SMA50),
		Momentum:  cloneFloat(ind.Momentum10),
	}
}

// Indicators returns the indicator part of the record as a snapshot.
func (r *SignalRecord) Indicators() IndicatorSnapshot {
	return IndicatorSnapshot{
		SMA20:      cloneFloat(r.SMA20),
		SMA50:      cloneFloat(r.SMA50),
		RSI14:      cloneFloat(r.RSI),
		Momentum10: cloneFloat(r.Momentum),
	}
}

// StreamKey returns the Redis stream key: "signal:{asset}".
func (r *SignalRecord) StreamKey() string {
	return "signal:" + r.Asset
}

// LatestKey returns the Redis key holding the most recent record.
func (r *SignalRecord) LatestKey() string {
	return "signal:latest:" + r.Asset
}

// PubSubChannel returns the channel used for live record fan-out.
func (r *SignalRecord) PubSubChannel() string {
	return "pub:signal:" + r.Asset
}

// JSON returns the JSON-encoded record (ignoring errors, the type always encodes).
func (r *SignalRecord) JSON() []byte {
	b, _ := json.Marshal(r)
	return b
}
