package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"signalmon/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// ~1 week of 5-minute ticks
	defaultStreamMaxLen = 2100
	defaultLatestTTL    = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr         string // Redis address, e.g. "localhost:6379"
	Password     string
	DB           int
	StreamMaxLen int64         // approximate XADD cap, default 2100
	LatestTTL    time.Duration // TTL of the latest-record key, default 30m
}

// Writer appends signal records to a Redis Stream, keeps the latest record
// under its own key and publishes it for live subscribers.
type Writer struct {
	client *goredis.Client
	maxLen int64
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client. Zero limits in cfg take defaults.
func NewWithClient(client *goredis.Client, cfg WriterConfig) *Writer {
	w := &Writer{client: client, maxLen: cfg.StreamMaxLen, ttl: cfg.LatestTTL}
	if w.maxLen <= 0 {
		w.maxLen = defaultStreamMaxLen
	}
	if w.ttl <= 0 {
		w.ttl = defaultLatestTTL
	}
	return w
}

func (w *Writer) Name() string { return "redis" }

// Append performs pipelined writes for one record:
// XADD signal:{asset}, SET signal:latest:{asset}, PUBLISH pub:signal:{asset}.
func (w *Writer) Append(ctx context.Context, rec model.SignalRecord) error {
	jsonData := string(rec.JSON())

	pipe := w.client.Pipeline()

	// XADD to stream with auto-trimming
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: rec.StreamKey(),
		MaxLen: w.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":   jsonData,
			"signal": string(rec.Signal),
		},
	})

	// SET latest record with TTL
	pipe.Set(ctx, rec.LatestKey(), jsonData, w.ttl)

	// PUBLISH for real-time subscribers
	pipe.Publish(ctx, rec.PubSubChannel(), jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline for %s: %w", rec.StreamKey(), err)
	}
	return nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
