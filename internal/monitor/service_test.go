package monitor

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalmon/internal/metrics"
	"signalmon/internal/model"
	"signalmon/internal/notification"
)

type seqSource struct {
	mu     sync.Mutex
	prices []float64
	errs   []error
	i      int
}

func (s *seqSource) Name() string { return "seq" }

func (s *seqSource) FetchPrice(context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.i
	s.i++
	if i < len(s.errs) && s.errs[i] != nil {
		return 0, s.errs[i]
	}
	if i >= len(s.prices) {
		return s.prices[len(s.prices)-1], nil
	}
	return s.prices[i], nil
}

type memSink struct {
	mu      sync.Mutex
	records []model.SignalRecord
	err     error
}

func (m *memSink) Append(_ context.Context, rec model.SignalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return m.err
}

func (m *memSink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type recordingNotifier struct {
	alerts []notification.Alert
	err    error
}

func (n *recordingNotifier) Send(_ context.Context, a notification.Alert) error {
	n.alerts = append(n.alerts, a)
	return n.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, src model.PriceSource, sink model.RecordSink, mod func(*Options)) *Service {
	t.Helper()
	opts := Options{
		Asset:  "ripple",
		Source: src,
		Sink:   sink,
		Now:    func() time.Time { return fixedNow },
	}
	if mod != nil {
		mod(&opts)
	}
	svc, err := New(opts)
	require.NoError(t, err)
	return svc
}

func TestNew_RequiresSourceAndSink(t *testing.T) {
	_, err := New(Options{Sink: &memSink{}})
	assert.Error(t, err)
	_, err = New(Options{Source: &seqSource{prices: []float64{1}}})
	assert.Error(t, err)
}

func TestTick_FirstObservation(t *testing.T) {
	sink := &memSink{}
	svc := newService(t, &seqSource{prices: []float64{0.5}}, sink, nil)
	sess := svc.NewSession()

	rec, err := svc.Tick(context.Background(), sess)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, model.SignalHold, rec.Signal)
	assert.Equal(t, model.InitialReason, rec.Reason)
	assert.Equal(t, "ripple", rec.Asset)
	assert.Equal(t, fixedNow, rec.Timestamp)
	assert.Nil(t, rec.RSI)
	assert.Nil(t, rec.SMA20)
	assert.Equal(t, 1, sink.len())

	prev, ok := sess.Previous()
	assert.True(t, ok)
	assert.Equal(t, 0.5, prev)
	assert.Equal(t, 1, sess.History().Len())
}

func TestTick_PriceJumpUsesPreviousPrice(t *testing.T) {
	sink := &memSink{}
	svc := newService(t, &seqSource{prices: []float64{100, 103}}, sink, nil)
	sess := svc.NewSession()

	_, err := svc.Tick(context.Background(), sess)
	require.NoError(t, err)
	rec, err := svc.Tick(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, model.SignalBuy, rec.Signal)
	assert.Equal(t, "Price up 3.00%", rec.Reason)
}

func TestTick_FetchErrorLeavesSessionUntouched(t *testing.T) {
	sink := &memSink{}
	src := &seqSource{prices: []float64{0.5, 0.5, 0.6}, errs: []error{nil, errors.New("timeout")}}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	svc := newService(t, src, sink, func(o *Options) { o.Metrics = m })
	sess := svc.NewSession()

	_, err := svc.Tick(context.Background(), sess)
	require.NoError(t, err)

	rec, err := svc.Tick(context.Background(), sess)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, 1, sess.History().Len())
	assert.Equal(t, uint64(1), sess.FetchFailures)
	assert.Equal(t, 1, sink.len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksTotal))

	// The next successful tick compares against the last accepted price.
	rec, err = svc.Tick(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "Price up 20.00%", rec.Reason)
}

func TestTick_NonFinitePriceIsFetchError(t *testing.T) {
	for _, p := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		svc := newService(t, &seqSource{prices: []float64{p}}, &memSink{}, nil)
		sess := svc.NewSession()
		_, err := svc.Tick(context.Background(), sess)
		assert.ErrorIs(t, err, ErrFetch)
		assert.Equal(t, 0, sess.History().Len())
	}
}

func TestTick_PersistErrorStillAdvancesSession(t *testing.T) {
	sink := &memSink{err: errors.New("disk full")}
	svc := newService(t, &seqSource{prices: []float64{0.5}}, sink, nil)
	sess := svc.NewSession()

	rec, err := svc.Tick(context.Background(), sess)
	assert.ErrorIs(t, err, ErrPersist)
	assert.ErrorContains(t, err, "disk full")
	require.NotNil(t, rec)
	assert.Equal(t, 1, sess.History().Len())
	assert.Equal(t, uint64(1), sess.PersistErrors)
}

func TestTick_IndicatorsAfterWarmup(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 1
	}
	sink := &memSink{}
	svc := newService(t, &seqSource{prices: prices}, sink, nil)
	sess := svc.NewSession()

	var rec *model.SignalRecord
	for range prices {
		var err error
		rec, err = svc.Tick(context.Background(), sess)
		require.NoError(t, err)
	}

	require.NotNil(t, rec.SMA20)
	require.NotNil(t, rec.SMA50)
	require.NotNil(t, rec.RSI)
	require.NotNil(t, rec.Momentum)
	assert.Equal(t, 50.0, *rec.RSI)
	assert.Equal(t, 0.0, *rec.Momentum)
	assert.Equal(t, model.SignalHold, rec.Signal)
	assert.Equal(t, model.InitialReason, rec.Reason)
}

func TestTick_HistoryBoundedAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	svc := newService(t, &seqSource{prices: []float64{1}}, &memSink{}, func(o *Options) {
		o.HistoryCapacity = 60
		o.Metrics = m
	})
	sess := svc.NewSession()
	for i := 0; i < 65; i++ {
		_, err := svc.Tick(context.Background(), sess)
		require.NoError(t, err)
	}
	assert.Equal(t, 60, sess.History().Len())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.HistoryEvictions))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.HistoryLen))
	assert.Equal(t, 65.0, testutil.ToFloat64(m.SignalsTotal.WithLabelValues("HOLD")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.IndicatorsAvailable))
}

func TestTick_AlertsOnlyForActionableSignals(t *testing.T) {
	n := &recordingNotifier{err: errors.New("telegram down")}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	var console bytes.Buffer
	svc := newService(t, &seqSource{prices: []float64{100, 100.5, 90}}, &memSink{}, func(o *Options) {
		o.Notifier = n
		o.Metrics = m
		o.Console = notification.NewConsole(&console)
	})
	sess := svc.NewSession()
	for i := 0; i < 3; i++ {
		_, err := svc.Tick(context.Background(), sess)
		require.NoError(t, err, "alert failures must not fail the tick")
	}

	require.Len(t, n.alerts, 1)
	assert.Contains(t, n.alerts[0].Title, "SELL")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertFailures))
	assert.Equal(t, 3, strings.Count(console.String(), "Signal: "))
}

func TestTick_HealthTracksTicks(t *testing.T) {
	h := metrics.NewHealthStatus()
	svc := newService(t, &seqSource{prices: []float64{0.7}}, &memSink{}, func(o *Options) { o.Health = h })
	_, err := svc.Tick(context.Background(), svc.NewSession())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.Ticks)
	assert.Equal(t, 0.7, h.LastPrice)
	assert.Equal(t, "HOLD", h.LastSignal)
}

func TestRun_TicksImmediatelyAndStops(t *testing.T) {
	sink := &memSink{}
	src := &seqSource{prices: []float64{0.5}}
	svc := newService(t, src, sink, func(o *Options) { o.Interval = 10 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.len() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_SurvivesFetchErrors(t *testing.T) {
	sink := &memSink{}
	src := &seqSource{prices: []float64{0.5}, errs: []error{errors.New("a"), errors.New("b")}}
	svc := newService(t, src, sink, func(o *Options) { o.Interval = 5 * time.Millisecond })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	require.Eventually(t, func() bool { return sink.len() >= 1 }, 5*time.Second, 5*time.Millisecond)
}

func TestNewSession(t *testing.T) {
	a, b := NewSession(100), NewSession(100)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 100, a.History().Cap())
	_, ok := a.Previous()
	assert.False(t, ok)
}
