package metrics

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.TicksTotal.Inc()
	m.SignalsTotal.WithLabelValues("BUY").Inc()
	m.SignalsTotal.WithLabelValues("BUY").Inc()
	m.SinkWriteFailures.WithLabelValues("csv").Inc()

	if got := testutil.ToFloat64(m.TicksTotal); got != 1 {
		t.Errorf("ticks: got %v", got)
	}
	if got := testutil.ToFloat64(m.SignalsTotal.WithLabelValues("BUY")); got != 2 {
		t.Errorf("buy signals: got %v", got)
	}

	n, err := testutil.GatherAndCount(reg, "signalmon_sink_write_failures_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 sink failure series, got %d", n)
	}

	// A second registry must accept a fresh set without panicking.
	NewMetrics(prometheus.NewRegistry())
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestHealth_Lifecycle(t *testing.T) {
	h := NewHealthStatus()
	h.SetSession("sess-1", "ripple", "coingecko")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("starting: code %d", rec.Code)
	}
	if body := decodeHealth(t, rec); body["status"] != "starting" || body["tick_age"] != "" {
		t.Errorf("starting body: %v", body)
	}

	h.RecordTick(time.Now(), 0.52, "HOLD")
	h.SetSinkOK("csv", true)
	h.SetSinkOK("sqlite", true)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	body := decodeHealth(t, rec)
	if rec.Code != http.StatusOK || body["status"] != "healthy" {
		t.Fatalf("healthy: code %d body %v", rec.Code, body)
	}
	if body["ticks"].(float64) != 1 || body["asset"] != "ripple" || body["tick_age"] == "" {
		t.Errorf("tick fields: %v", body)
	}

	h.SetSinkOK("sqlite", false)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	body = decodeHealth(t, rec)
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "degraded" {
		t.Errorf("degraded: code %d body %v", rec.Code, body)
	}

	h.SetSinkOK("csv", false)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if body = decodeHealth(t, rec); body["status"] != "unhealthy" {
		t.Errorf("unhealthy: body %v", body)
	}
}

func TestServer_Routes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.TicksTotal.Add(3)

	s := NewServer(":0", NewHealthStatus(), reg)
	s.Handle("/extra", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("extra"))
	}))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	out, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(out), "signalmon_ticks_total 3") {
		t.Errorf("metrics output missing ticks:\n%s", out)
	}

	resp, err = http.Get(srv.URL + "/extra")
	if err != nil {
		t.Fatalf("get extra: %v", err)
	}
	out, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(out) != "extra" {
		t.Errorf("extra: %q", out)
	}
}
