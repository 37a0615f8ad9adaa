// Package ringbuf provides the bounded price history that indicators are
// computed from. It is a fixed-capacity circular buffer: appending to a full
// buffer evicts exactly one element, the oldest.
//
// The buffer is owned by a single goroutine (the tick driver) and is not
// safe for concurrent use.
package ringbuf

// DefaultCapacity is the number of recent prices kept for analysis.
const DefaultCapacity = 100

// History is a FIFO-evicting circular buffer of prices, most recent last.
type History struct {
	buf   []float64
	head  int // index of the oldest element
	count int

	evicted uint64
}

// New creates a history holding at most capacity prices.
// Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{buf: make([]float64, capacity)}
}

// Append adds price at the tail. When the buffer is full the oldest price is
// evicted first. Prices are not validated.
func (h *History) Append(price float64) {
	if h.count == len(h.buf) {
		// Overwrite the oldest slot and advance the head.
		h.buf[h.head] = price
		h.head = (h.head + 1) % len(h.buf)
		h.evicted++
		return
	}
	h.buf[(h.head+h.count)%len(h.buf)] = price
	h.count++
}

// Values returns the prices in arrival order, oldest first.
// The returned slice is a fresh copy; callers must still treat it as read-only
// to keep the ordering contract obvious at call sites.
func (h *History) Values() []float64 {
	out := make([]float64, h.count)
	n := copy(out, h.buf[h.head:min(h.head+h.count, len(h.buf))])
	if n < h.count {
		copy(out[n:], h.buf[:h.count-n])
	}
	return out
}

// Last returns the most recent price.
func (h *History) Last() (float64, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.buf[(h.head+h.count-1)%len(h.buf)], true
}

// Len returns the number of prices currently held.
func (h *History) Len() int { return h.count }

// Cap returns the maximum number of prices held.
func (h *History) Cap() int { return len(h.buf) }

// Evicted returns the total number of prices dropped from the head.
func (h *History) Evicted() uint64 { return h.evicted }
