package capture

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle position of a PendingCapture.
type State int

const (
	StateSubmitted State = iota
	StateStarted
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "SUBMITTED"
	case StateStarted:
		return "STARTED"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// PendingCapture is the coordinator's record of one in-flight request.
type PendingCapture struct {
	ID         string
	OutputPath string
	CapturedAt time.Time
	Mirrored   bool
	Request    Request

	provisional Result
	sink        *Sink
	finished    chan struct{}
	onChange    func(p *PendingCapture, from, to State)

	mu         sync.Mutex
	state      State
	terminal   bool // a terminal callback has been accepted
	registered bool // the gallery knows about OutputPath
}

func newPendingCapture(id, path string, at time.Time, mirrored bool, req Request, provisional Result) *PendingCapture {
	return &PendingCapture{
		ID:          id,
		OutputPath:  path,
		CapturedAt:  at,
		Mirrored:    mirrored,
		Request:     req,
		provisional: provisional,
		sink:        NewSink(),
		finished:    make(chan struct{}),
	}
}

// CapturedAtEpochMillis is the submission time in milliseconds.
func (p *PendingCapture) CapturedAtEpochMillis() int64 {
	return p.CapturedAt.UnixMilli()
}

// State returns the current lifecycle state.
func (p *PendingCapture) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Provisional is the result built at submission, before any pixel is known.
func (p *PendingCapture) Provisional() Result { return p.provisional }

// Sink is the completion the caller awaits.
func (p *PendingCapture) Sink() *Sink { return p.sink }

// Wait blocks until the capture's sink settles or ctx ends.
func (p *PendingCapture) Wait(ctx context.Context) (Result, error) {
	return p.sink.Wait(ctx)
}

// Cancel abandons the capture from the caller's side.
func (p *PendingCapture) Cancel() bool { return p.sink.Cancel() }

// Finished is closed once terminal processing (success or error) is over.
func (p *PendingCapture) Finished() <-chan struct{} { return p.finished }

// advance moves to a later state. SUBMITTED may go to STARTED only while no
// terminal callback was accepted; terminal states are final.
func (p *PendingCapture) advance(to State) bool {
	p.mu.Lock()
	from := p.state
	ok := false
	switch to {
	case StateStarted:
		ok = from == StateSubmitted && !p.terminal
	case StateSucceeded, StateFailed:
		ok = !from.Terminal()
	}
	if ok {
		p.state = to
	}
	p.mu.Unlock()

	if ok && p.onChange != nil {
		p.onChange(p, from, to)
	}
	return ok
}

// claimTerminal accepts the first terminal callback and refuses the rest.
func (p *PendingCapture) claimTerminal() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.terminal {
		return false
	}
	p.terminal = true
	return true
}

// markRegistered returns true the first time it is called.
func (p *PendingCapture) markRegistered() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.registered {
		return false
	}
	p.registered = true
	return true
}
