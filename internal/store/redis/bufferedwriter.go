package redis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"signalmon/internal/model"
)

// recordWriter is the subset of Writer the buffered writer needs.
type recordWriter interface {
	Append(ctx context.Context, rec model.SignalRecord) error
}

// BufferedWriter wraps a Redis Writer with a circuit breaker.
// While the circuit is open, records are buffered locally. Pending records
// are always written oldest first, ahead of any newer record, so the stream
// stays in append order after a recovery.
type BufferedWriter struct {
	writer recordWriter
	cb     *CircuitBreaker
	ctx    context.Context

	// writeMu serializes writes; the buffer only shrinks or drops under it.
	writeMu sync.Mutex

	mu     sync.Mutex
	buffer []model.SignalRecord
	maxBuf int // max buffered records before dropping oldest (default: 1000)

	// Callbacks
	OnBuffer func()          // called when a record is buffered (for metrics)
	OnDrop   func()          // called when the oldest buffered record is dropped
	OnFlush  func(count int) // called after a drain wrote at least one buffered record
}

// NewBufferedWriter creates a BufferedWriter wrapping the given writer.
// ctx bounds the final drain on Close.
func NewBufferedWriter(ctx context.Context, w recordWriter, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	return &BufferedWriter{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]model.SignalRecord, 0, 64),
		maxBuf: maxBufferSize,
	}
}

func (bw *BufferedWriter) Name() string { return "redis" }

// Append writes a record through the circuit breaker.
//
// With nothing pending, the record is written directly; if the circuit is
// open it is buffered and nil is returned. With records pending, it is
// queued behind them and the queue is drained oldest first. A failure while
// the circuit is closed is returned; a queued record stays queued and is
// retried by the next Append.
func (bw *BufferedWriter) Append(ctx context.Context, rec model.SignalRecord) error {
	bw.writeMu.Lock()
	defer bw.writeMu.Unlock()

	if bw.PendingCount() == 0 {
		err := bw.cb.Execute(func() error {
			return bw.writer.Append(ctx, rec)
		})
		if errors.Is(err, ErrCircuitOpen) {
			bw.bufferWrite(rec)
			return nil // buffered, not lost
		}
		return err
	}

	bw.bufferWrite(rec)
	err := bw.drain(ctx)
	if errors.Is(err, ErrCircuitOpen) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis: %d records pending: %w", bw.PendingCount(), err)
	}
	return nil
}

func (bw *BufferedWriter) bufferWrite(rec model.SignalRecord) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		// Buffer full: drop oldest
		log.Printf("[buffered-writer] buffer full (%d), dropping record from %s", bw.maxBuf, bw.buffer[0].Timestamp.Format("15:04:05"))
		bw.buffer = bw.buffer[1:]
		if bw.OnDrop != nil {
			bw.OnDrop()
		}
	}
	bw.buffer = append(bw.buffer, rec)

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// drain writes pending records oldest first through the breaker, stopping
// at the first error. Callers hold writeMu.
func (bw *BufferedWriter) drain(ctx context.Context) error {
	flushed := 0
	defer func() {
		if flushed == 0 {
			return
		}
		log.Printf("[buffered-writer] flushed %d buffered records (%d pending)", flushed, bw.PendingCount())
		if bw.OnFlush != nil {
			bw.OnFlush(flushed)
		}
	}()

	for {
		bw.mu.Lock()
		if len(bw.buffer) == 0 {
			bw.mu.Unlock()
			return nil
		}
		head := bw.buffer[0]
		bw.mu.Unlock()

		if err := bw.cb.Execute(func() error {
			return bw.writer.Append(ctx, head)
		}); err != nil {
			return err
		}

		bw.mu.Lock()
		bw.buffer = bw.buffer[1:]
		bw.mu.Unlock()
		flushed++
	}
}

// PendingCount returns the number of buffered records waiting to be flushed.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Close makes one last attempt to drain pending records, then closes the
// underlying writer if it holds resources. Records that still cannot be
// written are reported and discarded.
func (bw *BufferedWriter) Close() error {
	bw.writeMu.Lock()
	if bw.PendingCount() > 0 {
		if err := bw.drain(bw.ctx); err != nil {
			log.Printf("[buffered-writer] final flush failed: %v", err)
		}
	}
	bw.writeMu.Unlock()

	if n := bw.PendingCount(); n > 0 {
		log.Printf("[buffered-writer] closing with %d unflushed records", n)
	}
	if c, ok := bw.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
