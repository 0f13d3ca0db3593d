package session

import (
	"sync"
	"time"
)

// Trigger is the stop request checked by the capture worker.
// Poll waits at most wait for a stop request and reports whether one is pending.
type Trigger interface {
	Poll(wait time.Duration) bool
}

// StopSignal is a one-shot Trigger. The driver calls Stop; the worker polls.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal creates an unfired StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Stop requests the capture to end. Calling it more than once is a no-op.
func (s *StopSignal) Stop() {
	s.once.Do(func() { close(s.ch) })
}

// Done returns a channel closed once Stop has been called.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}

// Poll reports whether Stop has been called, waiting at most wait.
func (s *StopSignal) Poll(wait time.Duration) bool {
	if wait <= 0 {
		select {
		case <-s.ch:
			return true
		default:
			return false
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-s.ch:
		return true
	case <-timer.C:
		return false
	}
}
