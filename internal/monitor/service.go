// Package monitor drives the polling loop: fetch a price, update the
// session history, compute indicators, classify and hand the record to the
// configured sinks.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"signalmon/internal/indicator"
	"signalmon/internal/logger"
	"signalmon/internal/metrics"
	"signalmon/internal/model"
	"signalmon/internal/notification"
	"signalmon/internal/ringbuf"
	"signalmon/internal/strategy"
)

var (
	// ErrFetch marks a tick skipped because no usable price was obtained.
	ErrFetch = errors.New("price fetch failed")
	// ErrPersist marks a tick whose record could not be written to every sink.
	ErrPersist = errors.New("record persist failed")
)

// DefaultInterval is the polling interval between ticks.
const DefaultInterval = 300 * time.Second

// Options configures a Service. Source and Sink are required; the rest is optional.
type Options struct {
	Asset           string
	Interval        time.Duration
	HistoryCapacity int
	Thresholds      strategy.Thresholds

	Source   model.PriceSource
	Sink     model.RecordSink
	Console  *notification.Console
	Notifier notification.Notifier
	Metrics  *metrics.Metrics
	Health   *metrics.HealthStatus

	// Now defaults to time.Now.
	Now func() time.Time
}

// Service runs ticks against a Session.
type Service struct {
	opts       Options
	engine     *indicator.Engine
	classifier *strategy.Classifier
	now        func() time.Time
}

// New creates a Service from opts.
func New(opts Options) (*Service, error) {
	if opts.Source == nil {
		return nil, errors.New("monitor: price source is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("monitor: record sink is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.HistoryCapacity <= 0 {
		opts.HistoryCapacity = ringbuf.DefaultCapacity
	}
	if opts.Thresholds == (strategy.Thresholds{}) {
		opts.Thresholds = strategy.DefaultThresholds()
	}
	svc := &Service{
		opts:       opts,
		engine:     indicator.NewEngine(),
		classifier: strategy.NewClassifier(opts.Thresholds),
		now:        opts.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

// NewSession creates a session sized for this service.
func (svc *Service) NewSession() *Session {
	return NewSession(svc.opts.HistoryCapacity)
}

// Tick performs one observation. On ErrFetch the session is unchanged. On
// ErrPersist the observation was accepted and the record is still returned.
func (svc *Service) Tick(ctx context.Context, sess *Session) (*model.SignalRecord, error) {
	m := svc.opts.Metrics

	price, err := svc.opts.Source.FetchPrice(ctx)
	if err == nil && (math.IsNaN(price) || math.IsInf(price, 0)) {
		err = fmt.Errorf("non-finite price %v", price)
	}
	if err != nil {
		sess.FetchFailures++
		if m != nil {
			m.FetchFailuresTotal.Inc()
		}
		if svc.opts.Health != nil {
			svc.opts.Health.RecordFetchFailure()
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, svc.opts.Source.Name(), err)
	}

	ts := svc.now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(svc.opts.Asset, ts))

	start := time.Now()
	evicted := sess.history.Evicted()
	prev := sess.observe(price)
	snap := svc.engine.Compute(sess.history.Values())
	decision := svc.classifier.Classify(strategy.Input{
		Price:      price,
		Previous:   prev,
		Indicators: snap,
	})
	rec := model.NewSignalRecord(ts, svc.opts.Asset, price, decision.Signal, decision.Reason, snap)

	if m != nil {
		m.IndicatorComputeDur.Observe(time.Since(start).Seconds())
		m.IndicatorsAvailable.Set(float64(snap.Available()))
		m.HistoryLen.Set(float64(sess.history.Len()))
		m.HistoryEvictions.Add(float64(sess.history.Evicted() - evicted))
		m.TicksTotal.Inc()
		m.SignalsTotal.WithLabelValues(rec.Signal.String()).Inc()
		m.LastPrice.Set(price)
	}
	if svc.opts.Health != nil {
		svc.opts.Health.RecordTick(ts, price, rec.Signal.String())
	}

	slog.InfoContext(ctx, "tick",
		append(logger.LogWithTrace(ctx),
			slog.Float64("price", price),
			slog.String("signal", rec.Signal.String()),
			slog.String("reason", rec.Reason),
			slog.Int("indicators", snap.Available()),
		)...)

	var persistErr error
	if err := svc.opts.Sink.Append(ctx, rec); err != nil {
		sess.PersistErrors++
		persistErr = fmt.Errorf("%w: %w", ErrPersist, err)
		slog.ErrorContext(ctx, "persist failed", append(logger.LogWithTrace(ctx), slog.String("error", err.Error()))...)
	}

	if svc.opts.Console != nil {
		svc.opts.Console.Print(rec)
	}
	svc.alert(ctx, rec)

	return &rec, persistErr
}

func (svc *Service) alert(ctx context.Context, rec model.SignalRecord) {
	if svc.opts.Notifier == nil {
		return
	}
	a, ok := notification.SignalAlert(rec)
	if !ok {
		return
	}
	if err := svc.opts.Notifier.Send(ctx, a); err != nil {
		if svc.opts.Metrics != nil {
			svc.opts.Metrics.AlertFailures.Inc()
		}
		slog.WarnContext(ctx, "alert delivery failed", append(logger.LogWithTrace(ctx), slog.String("error", err.Error()))...)
	}
}

// Run ticks immediately and then every Interval until ctx is cancelled.
// Tick errors are logged and never stop the loop.
func (svc *Service) Run(ctx context.Context) error {
	sess := svc.NewSession()
	if svc.opts.Health != nil {
		svc.opts.Health.SetSession(sess.ID, svc.opts.Asset, svc.opts.Source.Name())
	}
	slog.Info("monitor started",
		slog.String("session", sess.ID),
		slog.String("asset", svc.opts.Asset),
		slog.String("source", svc.opts.Source.Name()),
		slog.Duration("interval", svc.opts.Interval),
		slog.Int("history_capacity", svc.opts.HistoryCapacity),
	)

	ticker := time.NewTicker(svc.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := svc.Tick(ctx, sess); err != nil && ctx.Err() == nil {
			slog.Warn("tick failed", slog.String("session", sess.ID), slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			slog.Info("monitor stopped",
				slog.String("session", sess.ID),
				slog.Uint64("ticks", sess.Ticks),
				slog.Uint64("fetch_failures", sess.FetchFailures),
				slog.Uint64("persist_errors", sess.PersistErrors),
			)
			return nil
		case <-ticker.C:
		}
	}
}
