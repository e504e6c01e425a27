package runner

import (
	"sync"
)

// Runner executes posted tasks.
type Runner interface {
	// Post schedules task and reports whether it was accepted. A closed
	// runner rejects every task.
	Post(task func()) bool
	// Close stops accepting tasks, runs the ones already accepted, and waits
	// for the workers to exit. It must not be called from a task.
	Close() error
}

// Inline runs every task on the caller's goroutine before Post returns.
type Inline struct{}

func NewInline() Inline { return Inline{} }

func (Inline) Post(task func()) bool {
	task()
	return true
}

func (Inline) Close() error { return nil }

// Queue is a worker-backed runner. Tasks are taken from one FIFO in
// submission order; with a single worker they also complete in that order.
//
// Post never blocks: the backlog is unbounded so handlers may post from
// inside other tasks.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tasks   []func()
	closed  bool
	workers int
	wg      sync.WaitGroup
}

// NewSerial creates a runner with one worker goroutine.
func NewSerial() *Queue {
	return NewPool(1)
}

// NewPool creates a runner with n worker goroutines. n below 1 is treated
// as 1.
func NewPool(n int) *Queue {
	if n < 1 {
		n = 1
	}
	q := &Queue{workers: n}
	q.cond = sync.NewCond(&q.mu)
	q.wg.Add(n)
	for i := 0; i < n; i++ {
		go q.work()
	}
	return q
}

// Workers returns the number of worker goroutines.
func (q *Queue) Workers() int {
	return q.workers
}

// Serial reports whether tasks complete in submission order.
func (q *Queue) Serial() bool {
	return q.workers == 1
}

func (q *Queue) Post(task func()) bool {
	if task == nil {
		return false
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
	q.cond.Signal()
	return true
}

// Pending returns the number of accepted tasks not yet started.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	q.wg.Wait()
	return nil
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		task()
	}
}
