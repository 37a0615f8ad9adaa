package monitor

import (
	"time"

	"github.com/google/uuid"

	"signalmon/internal/ringbuf"
)

// Session is the mutable state of one monitor run. It is created at start,
// advanced once per successful tick and dropped at shutdown.
type Session struct {
	ID        string
	StartedAt time.Time

	history  *ringbuf.History
	previous *float64

	Ticks         uint64
	FetchFailures uint64
	PersistErrors uint64
}

// NewSession creates an empty session whose history holds capacity prices.
func NewSession(capacity int) *Session {
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		history:   ringbuf.New(capacity),
	}
}

// History returns the session's price history.
func (s *Session) History() *ringbuf.History { return s.history }

// Previous returns the price observed on the previous successful tick.
func (s *Session) Previous() (float64, bool) {
	if s.previous == nil {
		return 0, false
	}
	return *s.previous, true
}

// observe appends price to the history and returns the price it replaces as
// "previous" (nil on the first tick).
func (s *Session) observe(price float64) *float64 {
	prev := s.previous
	s.history.Append(price)
	p := price
	s.previous = &p
	s.Ticks++
	return prev
}
