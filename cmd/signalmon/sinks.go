package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	goredis "github.com/go-redis/redis/v8"

	"signalmon/config"
	"signalmon/internal/gateway"
	"signalmon/internal/metrics"
	"signalmon/internal/model"
	"signalmon/internal/store/csvlog"
	mongostore "signalmon/internal/store/mongo"
	pgstore "signalmon/internal/store/postgres"
	redisstore "signalmon/internal/store/redis"
	sqlitestore "signalmon/internal/store/sqlite"
)

// sinkSet is everything opened from the sinks section of the config.
type sinkSet struct {
	named []model.NamedSink

	// For /api/signals and liveness probes; nil when the backing sink is off.
	recent      gateway.RecentSource
	latest      gateway.LatestSource
	redisClient *goredis.Client
	sqlDB       *sql.DB

	closers []func() error
}

func (s *sinkSet) close() {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Printf("[signalmon] close: %v", err)
		}
	}
}

// recentFunc adapts a function to gateway.RecentSource.
type recentFunc func(ctx context.Context, limit int) ([]model.SignalRecord, error)

func (f recentFunc) RecentSignals(ctx context.Context, limit int) ([]model.SignalRecord, error) {
	return f(ctx, limit)
}

// openSinks opens every enabled sink. Local sinks (CSV, SQLite) must open;
// network sinks that are unreachable at startup are logged and skipped,
// except Redis which starts behind its circuit breaker.
func openSinks(ctx context.Context, cfg *config.Config, prom *metrics.Metrics) (*sinkSet, error) {
	set := &sinkSet{}
	sc := cfg.Sinks

	if sc.CSV.Enabled {
		set.named = append(set.named, csvlog.New(sc.CSV.Path))
	}

	if sc.SQLite.Enabled {
		if dir := filepath.Dir(sc.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlite dir: %w", err)
			}
		}
		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: sc.SQLite.Path})
		if err != nil {
			return nil, fmt.Errorf("sqlite init: %w", err)
		}
		set.named = append(set.named, w)
		set.sqlDB = w.DB()

		r, err := sqlitestore.NewReader(sc.SQLite.Path, cfg.Asset)
		if err != nil {
			log.Printf("[signalmon] WARNING: sqlite reader init failed: %v", err)
		} else {
			set.recent = r
			set.closers = append(set.closers, r.Close)
		}
	}

	if sc.Postgres.Enabled {
		w, err := pgstore.New(ctx, sc.Postgres.DSN)
		if err != nil {
			log.Printf("[signalmon] WARNING: postgres init failed: %v (continuing without postgres)", err)
		} else {
			set.named = append(set.named, w)
			if set.recent == nil {
				set.recent = recentFunc(func(ctx context.Context, limit int) ([]model.SignalRecord, error) {
					return w.RecentSignals(ctx, cfg.Asset, limit)
				})
			}
		}
	}

	if sc.Mongo.Enabled {
		w, err := mongostore.New(ctx, mongostore.Config{
			URI:        sc.Mongo.URI,
			Database:   sc.Mongo.Database,
			Collection: sc.Mongo.Collection,
		})
		if err != nil {
			log.Printf("[signalmon] WARNING: mongo init failed: %v (continuing without mongo)", err)
		} else {
			set.named = append(set.named, w)
		}
	}

	if sc.Redis.Enabled {
		set.named = append(set.named, openRedis(ctx, cfg, prom, set))
	}
	if set.latest == nil && set.recent != nil {
		set.latest = gateway.LatestFromRecent(set.recent)
	}

	return set, nil
}

// openRedis wires the Redis writer behind a circuit breaker and offline
// buffer. An unreachable server at startup only trips the breaker later.
func openRedis(ctx context.Context, cfg *config.Config, prom *metrics.Metrics, set *sinkSet) model.NamedSink {
	rc := cfg.Sinks.Redis
	wcfg := redisstore.WriterConfig{
		Addr:         rc.Addr,
		Password:     rc.Password,
		DB:           rc.DB,
		StreamMaxLen: rc.StreamMaxLen,
		LatestTTL:    rc.LatestTTL,
	}

	w, err := redisstore.New(wcfg)
	if err != nil {
		log.Printf("[signalmon] WARNING: redis init failed: %v (buffering until it recovers)", err)
		w = redisstore.NewWithClient(goredis.NewClient(&goredis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		}), wcfg)
	}
	set.redisClient = w.Client()
	reader := redisstore.NewReader(w.Client(), cfg.Asset)
	set.latest = reader
	if set.recent == nil {
		set.recent = reader
	}

	cb := redisstore.NewCircuitBreaker(rc.BreakerFailures, rc.BreakerReset)
	cb.OnStateChange = func(from, to redisstore.State) {
		prom.RedisCircuitBreakerState.Set(float64(to))
		if to == redisstore.StateOpen {
			prom.RedisCircuitBreakerTrips.Inc()
		}
		log.Printf("[signalmon] redis circuit %s -> %s", from, to)
	}

	bw := redisstore.NewBufferedWriter(ctx, w, cb, rc.BufferSize)
	bw.OnBuffer = prom.RedisBufferedWrites.Inc
	bw.OnDrop = prom.RedisDroppedWrites.Inc
	return bw
}
