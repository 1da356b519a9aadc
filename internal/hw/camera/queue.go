package camera

import (
	"sync"

	"github.com/cjeanneret/photocap/internal/debug"
)

// Queue is a serial executor: tasks run one at a time, in submission order,
// on a single goroutine. Backends deliver hardware callbacks through it.
type Queue struct {
	mu     sync.RWMutex
	closed bool
	tasks  chan func()
	done   chan struct{}

	late sync.Mutex // serializes tasks that arrive after Close
}

// NewQueue starts a queue with the given buffer size.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{
		tasks: make(chan func(), size),
		done:  make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for fn := range q.tasks {
		fn()
	}
}

// Execute enqueues fn. A task submitted after Close runs on the calling
// goroutine, still one at a time, so a late terminal callback is never lost.
func (q *Queue) Execute(fn func()) {
	q.mu.RLock()
	if !q.closed {
		q.tasks <- fn
		q.mu.RUnlock()
		return
	}
	q.mu.RUnlock()

	debug.Trace("camera queue closed, running late task inline")
	q.late.Lock()
	defer q.late.Unlock()
	fn()
}

// Close stops accepting tasks and waits for queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()
	<-q.done
}
