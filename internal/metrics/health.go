package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

// HealthStatus represents the monitor's health.
type HealthStatus struct {
	mu sync.RWMutex

	SessionID     string    `json:"session_id"`
	Asset         string    `json:"asset"`
	Source        string    `json:"source"`
	LastTickTime  time.Time `json:"last_tick_time"`
	LastPrice     float64   `json:"last_price"`
	LastSignal    string    `json:"last_signal"`
	Ticks         uint64    `json:"ticks"`
	FetchFailures uint64    `json:"fetch_failures"`

	// Result of the last append per sink.
	Sinks map[string]bool `json:"sinks"`

	// Liveness probe results
	RedisProbed     bool      `json:"-"`
	RedisConnected  bool      `json:"redis_connected"`
	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteProbed    bool      `json:"-"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
		Sinks:     make(map[string]bool),
	}
}

func (h *HealthStatus) SetSession(id, asset, source string) {
	h.mu.Lock()
	h.SessionID = id
	h.Asset = asset
	h.Source = source
	h.mu.Unlock()
}

// RecordTick stores the outcome of a successful tick.
func (h *HealthStatus) RecordTick(t time.Time, price float64, signal string) {
	h.mu.Lock()
	h.LastTickTime = t
	h.LastPrice = price
	h.LastSignal = signal
	h.Ticks++
	h.mu.Unlock()
}

func (h *HealthStatus) RecordFetchFailure() {
	h.mu.Lock()
	h.FetchFailures++
	h.mu.Unlock()
}

func (h *HealthStatus) SetSinkOK(name string, ok bool) {
	h.mu.Lock()
	h.Sinks[name] = ok
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisProbed = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite runs a trivial query and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteProbed = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks. Nil clients are skipped.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// overall returns "starting" before the first tick, "degraded" when a sink
// or probed dependency is failing, "healthy" otherwise. Caller holds mu.
func (h *HealthStatus) overall() (string, int) {
	var failing []string
	for name, ok := range h.Sinks {
		if !ok {
			failing = append(failing, name)
		}
	}
	if h.RedisProbed && !h.RedisConnected {
		failing = append(failing, "redis")
	}
	if h.SQLiteProbed && !h.SQLiteOK {
		failing = append(failing, "sqlite")
	}
	switch {
	case len(failing) > 0 && len(failing) >= len(h.Sinks) && len(h.Sinks) > 0:
		return "unhealthy", http.StatusServiceUnavailable
	case len(failing) > 0:
		return "degraded", http.StatusServiceUnavailable
	case h.LastTickTime.IsZero():
		return "starting", http.StatusOK
	}
	return "healthy", http.StatusOK
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus, httpCode := h.overall()

	// Tick age is reported only; no staleness rule is applied to it.
	tickAge := ""
	lastTick := ""
	if !h.LastTickTime.IsZero() {
		tickAge = time.Since(h.LastTickTime).Round(time.Millisecond).String()
		lastTick = h.LastTickTime.Format(time.RFC3339)
	}

	sinks := make([]string, 0, len(h.Sinks))
	for name := range h.Sinks {
		sinks = append(sinks, name)
	}
	sort.Strings(sinks)
	sinkStatus := make(map[string]string, len(sinks))
	for _, name := range sinks {
		if h.Sinks[name] {
			sinkStatus[name] = "ok"
		} else {
			sinkStatus[name] = "failing"
		}
	}

	status := struct {
		Status          string            `json:"status"`
		Uptime          string            `json:"uptime"`
		SessionID       string            `json:"session_id"`
		Asset           string            `json:"asset"`
		Source          string            `json:"source"`
		LastTickTime    string            `json:"last_tick_time"`
		TickAge         string            `json:"tick_age"`
		LastPrice       float64           `json:"last_price"`
		LastSignal      string            `json:"last_signal"`
		Ticks           uint64            `json:"ticks"`
		FetchFailures   uint64            `json:"fetch_failures"`
		Sinks           map[string]string `json:"sinks"`
		RedisConnected  bool              `json:"redis_connected"`
		RedisLatencyMs  float64           `json:"redis_latency_ms"`
		SQLiteOK        bool              `json:"sqlite_ok"`
		SQLiteLatencyMs float64           `json:"sqlite_latency_ms"`
		LastCheckAt     string            `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		SessionID:       h.SessionID,
		Asset:           h.Asset,
		Source:          h.Source,
		LastTickTime:    lastTick,
		TickAge:         tickAge,
		LastPrice:       h.LastPrice,
		LastSignal:      h.LastSignal,
		Ticks:           h.Ticks,
		FetchFailures:   h.FetchFailures,
		Sinks:           sinkStatus,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}
