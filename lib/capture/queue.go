package capture

import "sync"

// pendingCapture is a capture run waiting for a process slot
type pendingCapture struct {
	id    string
	start func()
}

// Queue bounds how many camera processes run at once. Runs beyond the limit
// wait in FIFO order, up to maxPending of them; past that a capture is
// refused so a hung camera cannot pile up work. The next tick retries.
type Queue struct {
	maxRunning int
	maxPending int

	mu      sync.Mutex
	running map[string]struct{}
	pending []pendingCapture
}

// NewQueue creates a queue running up to maxRunning captures with up to
// maxPending waiting. With maxPending <= 0 no capture ever waits.
func NewQueue(maxRunning, maxPending int) *Queue {
	if maxRunning < 1 {
		maxRunning = 1
	}
	if maxPending < 0 {
		maxPending = 0
	}
	return &Queue{
		maxRunning: maxRunning,
		maxPending: maxPending,
		running:    make(map[string]struct{}),
	}
}

// Submit runs start on its own goroutine once a slot frees up. It returns
// the wait position (0 when started at once) or ErrCaptureBacklog when the
// pending list is full. start must call Done(id) when the process exits.
func (q *Queue) Submit(id string, start func()) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.running) < q.maxRunning {
		q.running[id] = struct{}{}
		go start()
		return 0, nil
	}
	if len(q.pending) >= q.maxPending {
		return 0, ErrCaptureBacklog
	}

	q.pending = append(q.pending, pendingCapture{id: id, start: start})
	return len(q.pending), nil
}

// Done releases the slot held by id and hands it to the oldest waiting run.
func (q *Queue) Done(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.running[id]; !ok {
		return
	}
	delete(q.running, id)

	if len(q.pending) == 0 {
		return
	}
	next := q.pending[0]
	q.pending[0] = pendingCapture{}
	q.pending = q.pending[1:]
	q.running[next.id] = struct{}{}
	go next.start()
}

// Running returns the number of camera processes in flight
func (q *Queue) Running() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.running)
}

// Pending returns the number of captures waiting for a slot
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
