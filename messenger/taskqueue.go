package messenger

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	pc "github.com/wippyai/platform-channels"
	"github.com/wippyai/platform-channels/runner"
)

// TaskQueueOptions selects the execution semantics of a background queue.
type TaskQueueOptions struct {
	// Serial runs tasks one at a time in submission order. When false the
	// queue runs up to Workers tasks in parallel.
	Serial  bool
	Workers int
}

// TaskQueue is a background execution context created by a messenger.
// It is stopped when the messenger closes.
type TaskQueue struct {
	*runner.Queue
	id string
}

// ID returns the queue's unique identifier, used in logs.
func (q *TaskQueue) ID() string {
	return q.id
}

var _ pc.TaskQueue = (*TaskQueue)(nil)

// MakeBackgroundTaskQueue creates a queue for use with SetMessageHandler.
// The queue is not bound to any channel until passed there.
func (m *Messenger) MakeBackgroundTaskQueue(opts TaskQueueOptions) *TaskQueue {
	var q *runner.Queue
	if opts.Serial || opts.Workers <= 1 {
		q = runner.NewSerial()
	} else {
		q = runner.NewPool(opts.Workers)
	}
	tq := &TaskQueue{Queue: q, id: uuid.NewString()}

	m.mu.Lock()
	closed := m.closed
	if !closed {
		m.queues = append(m.queues, tq)
	}
	m.mu.Unlock()

	if closed {
		_ = q.Close()
	}
	m.log.Debug("task queue created",
		zap.String("queue", tq.id),
		zap.Int("workers", q.Workers()),
	)
	return tq
}
