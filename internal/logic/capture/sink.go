package capture

import (
	"context"
	"fmt"
	"sync"
)

type sinkState int

const (
	sinkOpen sinkState = iota
	sinkResolved
	sinkRejected
	sinkCancelled
)

// Sink is a single-assignment completion: the first Resolve, Reject or
// Cancel wins and every later call is a no-op returning false.
type Sink struct {
	mu     sync.Mutex
	state  sinkState
	result Result
	err    error
	done   chan struct{}
}

// NewSink returns an open sink.
func NewSink() *Sink {
	return &Sink{done: make(chan struct{})}
}

func (s *Sink) settle(state sinkState, r Result, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != sinkOpen {
		return false
	}
	s.state, s.result, s.err = state, r, err
	close(s.done)
	return true
}

// Resolve settles the sink with r.
func (s *Sink) Resolve(r Result) bool { return s.settle(sinkResolved, r, nil) }

// Reject settles the sink with err.
func (s *Sink) Reject(err error) bool { return s.settle(sinkRejected, Result{}, err) }

// Cancel abandons the sink. The capture keeps running; its outcome is dropped.
func (s *Sink) Cancel() bool { return s.settle(sinkCancelled, Result{}, ErrCancelled) }

// IsOpen reports whether the sink can still be settled.
func (s *Sink) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sinkOpen
}

// Cancelled reports whether the caller abandoned the sink.
func (s *Sink) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sinkCancelled
}

// Done is closed once the sink is settled.
func (s *Sink) Done() <-chan struct{} { return s.done }

// Outcome returns the settled value. It must only be called after Done.
func (s *Sink) Outcome() (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

// Wait blocks until the sink settles or ctx ends. When ctx ends first the
// sink is cancelled, unless a result raced in.
func (s *Sink) Wait(ctx context.Context) (Result, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		if s.Cancel() {
			return Result{}, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
	}
	return s.Outcome()
}
