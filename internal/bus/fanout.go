// Package bus fans each signal record out to every configured sink.
package bus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"signalmon/internal/model"
)

// FanOut writes each record to N sinks in registration order. A failing sink
// never prevents the others from receiving the record; all failures are
// returned joined so the caller can see that the record was not fully stored.
type FanOut struct {
	mu    sync.RWMutex
	sinks []model.NamedSink

	// OnWrite is called after every sink append with its latency and result.
	OnWrite func(sink string, d time.Duration, err error)
}

// New creates a FanOut over the given sinks.
func New(sinks ...model.NamedSink) *FanOut {
	return &FanOut{sinks: sinks}
}

// Add registers another sink.
func (f *FanOut) Add(s model.NamedSink) {
	f.mu.Lock()
	f.sinks = append(f.sinks, s)
	f.mu.Unlock()
}

// Names returns the sink names in write order.
func (f *FanOut) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}

// Append implements model.RecordSink.
func (f *FanOut) Append(ctx context.Context, rec model.SignalRecord) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, s := range f.sinks {
		start := time.Now()
		err := s.Append(ctx, rec)
		if f.OnWrite != nil {
			f.OnWrite(s.Name(), time.Since(start), err)
		}
		if err != nil {
			log.Printf("[bus] sink %s failed: %v", s.Name(), err)
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and returns the joined errors.
func (f *FanOut) Close() error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
