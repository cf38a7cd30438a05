package engine

import "sync"

// Sink accumulates outcomes until a poller drains them.
//
// Record and Drain are safe for concurrent use. Every recorded outcome is
// returned by exactly one Drain call, in record order.
type Sink struct {
	mu  sync.Mutex
	buf []Outcome
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Record appends o.
func (s *Sink) Record(o Outcome) {
	s.mu.Lock()
	s.buf = append(s.buf, o)
	s.mu.Unlock()
}

// Drain removes and returns everything recorded since the previous drain.
// Returns nil when nothing is buffered.
func (s *Sink) Drain() []Outcome {
	s.mu.Lock()
	out := s.buf
	s.buf = nil
	s.mu.Unlock()
	return out
}

// Len returns the number of buffered outcomes.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
