package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"signalmon/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Reader reads recent signal records for one asset back from Redis.
type Reader struct {
	client *goredis.Client
	asset  string
}

// NewReader creates a reader sharing the writer's client.
func NewReader(client *goredis.Client, asset string) *Reader {
	return &Reader{client: client, asset: asset}
}

func (r *Reader) key() model.SignalRecord { return model.SignalRecord{Asset: r.asset} }

// Latest returns the most recent record, or nil if none is stored (or it expired).
func (r *Reader) Latest(ctx context.Context) (*model.SignalRecord, error) {
	k := r.key()
	data, err := r.client.Get(ctx, k.LatestKey()).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", k.LatestKey(), err)
	}
	var rec model.SignalRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode latest record: %w", err)
	}
	return &rec, nil
}

// RecentSignals returns up to limit records from the stream, newest first.
func (r *Reader) RecentSignals(ctx context.Context, limit int) ([]model.SignalRecord, error) {
	k := r.key()
	msgs, err := r.client.XRevRangeN(ctx, k.StreamKey(), "+", "-", int64(limit)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis XREVRANGE %s: %w", k.StreamKey(), err)
	}
	return decodeMessages(msgs), nil
}

// decodeMessages converts stream entries to records, skipping malformed ones.
func decodeMessages(msgs []goredis.XMessage) []model.SignalRecord {
	out := make([]model.SignalRecord, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var rec model.SignalRecord
		if json.Unmarshal([]byte(data), &rec) != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}
