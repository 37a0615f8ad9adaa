package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"signalmon/internal/model"
)

type memSink struct {
	name    string
	err     error
	records []model.SignalRecord
	closed  bool
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

func (m *memSink) Append(_ context.Context, rec model.SignalRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func TestFanOut_BroadcastsToAll(t *testing.T) {
	a, b := &memSink{name: "a"}, &memSink{name: "b"}
	fo := New(a, b)

	rec := model.NewSignalRecord(time.Now(), "ripple", 0.5, model.SignalHold, "", model.IndicatorSnapshot{})
	if err := fo.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(a.records) != 1 || len(b.records) != 1 {
		t.Fatalf("expected both sinks to receive the record: a=%d b=%d", len(a.records), len(b.records))
	}
	if names := fo.Names(); len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names: %v", names)
	}
}

func TestFanOut_FailureDoesNotBlockOthers(t *testing.T) {
	diskFull := errors.New("disk full")
	bad := &memSink{name: "csv", err: diskFull}
	good := &memSink{name: "sqlite"}

	var writes []string
	var failed []string
	fo := New(bad)
	fo.Add(good)
	fo.OnWrite = func(sink string, _ time.Duration, err error) {
		writes = append(writes, sink)
		if err != nil {
			failed = append(failed, sink)
		}
	}

	rec := model.NewSignalRecord(time.Now(), "ripple", 0.5, model.SignalHold, "", model.IndicatorSnapshot{})
	err := fo.Append(context.Background(), rec)
	if !errors.Is(err, diskFull) {
		t.Fatalf("expected wrapped disk full error, got %v", err)
	}
	if len(good.records) != 1 {
		t.Error("healthy sink must still receive the record")
	}
	if len(writes) != 2 || len(failed) != 1 || failed[0] != "csv" {
		t.Errorf("callbacks: writes=%v failed=%v", writes, failed)
	}
}

func TestFanOut_Close(t *testing.T) {
	a, b := &memSink{name: "a"}, &memSink{name: "b"}
	if err := New(a, b).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !a.closed || !b.closed {
		t.Error("every sink should be closed")
	}
}
