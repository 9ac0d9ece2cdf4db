// Package queue provides a bounded-concurrency task queue with lifecycle
// events for driving repository analyses.
package queue

import (
	"context"
	"math"
	"sync"
	"time"

	"repolens/internal/errors"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task represents one unit of queued work. The queue owns the task for its
// lifetime; observers receive value copies through events and Tasks().
type Task struct {
	ID          string
	Data        string
	Status      TaskStatus
	Result      interface{}
	Err         error
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Snapshot is the aggregate progress view emitted after every state change.
type Snapshot struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Running   int `json:"running"`
	Pending   int `json:"pending"`
	Progress  int `json:"progress"`
}

// WorkerFunc executes the work for a single task.
type WorkerFunc func(ctx context.Context, id string, data string) (interface{}, error)

// Listener receives queue lifecycle events. Events are delivered synchronously
// while the queue's state lock is held, so delivery order always matches
// state-change order and a handler runs to completion before the next state
// change. Handlers must be fast and must not call back into the queue.
type Listener struct {
	OnStarted   func(Task)
	OnCompleted func(Task)
	OnFailed    func(Task)
	OnProgress  func(Snapshot)
	OnDrained   func()
}

// Queue runs at most `concurrency` tasks at a time, dispatching pending tasks
// in FIFO order. Settlement of one task triggers dispatch of the next.
type Queue struct {
	concurrency int
	worker      WorkerFunc
	listener    Listener

	mu        sync.Mutex
	ctx       context.Context
	tasks     map[string]*Task
	order     []string // ids in enqueue order
	pendingQ  []string // ids awaiting dispatch, FIFO
	running   int
	completed int
	failed    int
	started   bool
	closed    bool
	drained   bool
	waiters   []chan struct{}
}

// New creates a queue. Dispatch does not begin until Start is called, which
// lets a caller enqueue a full batch without racing early completions against
// later enqueues.
func New(concurrency int, worker WorkerFunc, listener Listener) *Queue {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Queue{
		concurrency: concurrency,
		worker:      worker,
		listener:    listener,
		tasks:       make(map[string]*Task),
	}
}

// Concurrency returns the fixed concurrency limit.
func (q *Queue) Concurrency() int {
	return q.concurrency
}

// Enqueue adds one unit of work. It fails only on a closed queue or a
// duplicate task id; draining closes the queue, so a queue instance serves
// exactly one batch. If the queue has already been started, dispatch is
// attempted immediately.
func (q *Queue) Enqueue(id string, data string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errors.New(errors.QueueClosed, "queue has been shut down")
	}
	if _, exists := q.tasks[id]; exists {
		return errors.New(errors.InvalidArgument, "duplicate task id: "+id)
	}

	q.tasks[id] = &Task{
		ID:        id,
		Data:      data,
		Status:    TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	q.order = append(q.order, id)
	q.pendingQ = append(q.pendingQ, id)

	if q.started {
		q.dispatchLocked()
	}
	return nil
}

// Start begins dispatching. A started queue with no tasks drains immediately,
// so callers that only wait on the drained signal are never left hanging.
func (q *Queue) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true
	q.ctx = ctx
	q.dispatchLocked()
	q.checkDrainedLocked()
}

// Close marks the queue as shut down; further enqueues fail. In-flight tasks
// run to completion.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Wait blocks until the queue has drained (pending and running both zero on a
// started queue) or the context is cancelled. A started, never-used queue is
// already drained.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if q.started && q.running == 0 && len(q.pendingQ) == 0 {
		q.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	q.waiters = append(q.waiters, ch)
	q.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tasks returns copies of all tasks in enqueue order.
func (q *Queue) Tasks() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Task, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, *q.tasks[id])
	}
	return out
}

// RunningData returns the data payloads of currently running tasks, in enqueue
// order. The orchestrator uses this to report which repositories are in
// flight.
func (q *Queue) RunningData() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]string, 0, q.running)
	for _, id := range q.order {
		if q.tasks[id].Status == TaskRunning {
			out = append(out, q.tasks[id].Data)
		}
	}
	return out
}

// Snapshot returns the current aggregate progress.
func (q *Queue) Snapshot() Snapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) snapshotLocked() Snapshot {
	total := len(q.order)
	progress := 0
	if total > 0 {
		progress = int(math.Round(100 * float64(q.completed+q.failed) / float64(total)))
	}
	return Snapshot{
		Total:     total,
		Completed: q.completed,
		Failed:    q.failed,
		Running:   q.running,
		Pending:   len(q.pendingQ),
		Progress:  progress,
	}
}

// dispatchLocked starts pending tasks while worker slots are free. Must be
// called with q.mu held.
func (q *Queue) dispatchLocked() {
	for q.running < q.concurrency && len(q.pendingQ) > 0 {
		id := q.pendingQ[0]
		q.pendingQ = q.pendingQ[1:]

		task := q.tasks[id]
		now := time.Now().UTC()
		task.Status = TaskRunning
		task.StartedAt = &now
		q.running++

		if q.listener.OnStarted != nil {
			q.listener.OnStarted(*task)
		}
		if q.listener.OnProgress != nil {
			q.listener.OnProgress(q.snapshotLocked())
		}

		go q.run(task.ID, task.Data)
	}
}

// run executes a single task's worker outside the lock, then settles it.
func (q *Queue) run(id string, data string) {
	result, err := q.worker(q.ctx, id, data)

	q.mu.Lock()
	defer q.mu.Unlock()

	task := q.tasks[id]
	now := time.Now().UTC()
	task.CompletedAt = &now
	q.running--

	if err != nil {
		task.Status = TaskFailed
		task.Err = err
		q.failed++
		if q.listener.OnFailed != nil {
			q.listener.OnFailed(*task)
		}
	} else {
		task.Status = TaskCompleted
		task.Result = result
		q.completed++
		if q.listener.OnCompleted != nil {
			q.listener.OnCompleted(*task)
		}
	}

	if q.listener.OnProgress != nil {
		q.listener.OnProgress(q.snapshotLocked())
	}

	// Settlement is the trigger for starting the next pending task.
	q.dispatchLocked()
	q.checkDrainedLocked()
}

// checkDrainedLocked fires the drained signal exactly once when a started
// queue has no pending and no running tasks, and closes the queue: the
// drained latch would swallow a second drain, so tasks enqueued afterwards
// could never release waiters. Must be called with q.mu held.
func (q *Queue) checkDrainedLocked() {
	if q.drained || !q.started {
		return
	}
	if q.running != 0 || len(q.pendingQ) != 0 {
		return
	}
	q.drained = true
	q.closed = true

	if q.listener.OnDrained != nil {
		q.listener.OnDrained()
	}
	for _, ch := range q.waiters {
		close(ch)
	}
	q.waiters = nil
}
