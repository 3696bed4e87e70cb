// Package workqueue provides a fixed pool of worker goroutines draining an
// unbounded FIFO of tasks. Execute never blocks, so tasks may safely submit
// further tasks; Join waits until every submitted task has finished.
package workqueue

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	apperrors "github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Concurrent-Search-Engine/pkg/metrics"
)

// DefaultWorkers is used when a non-positive worker count is requested.
const DefaultWorkers = 5

// Task is a unit of work. A returned error is logged; it does not stop the
// worker.
type Task func() error

type WorkQueue struct {
	mu      sync.Mutex
	ready   *sync.Cond
	idle    *sync.Cond
	tasks   []Task
	pending int
	closed  bool
	size    int
	wg      sync.WaitGroup
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New starts workers goroutines. m may be nil.
func New(workers int, m *metrics.Metrics) *WorkQueue {
	if workers < 1 {
		workers = DefaultWorkers
	}
	q := &WorkQueue{
		size:    workers,
		metrics: m,
		logger:  slog.Default().With("component", "workqueue"),
	}
	q.ready = sync.NewCond(&q.mu)
	q.idle = sync.NewCond(&q.mu)
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker(i)
	}
	return q
}

// Execute enqueues task and returns immediately.
func (q *WorkQueue) Execute(task Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return apperrors.ErrShutdown
	}
	q.tasks = append(q.tasks, task)
	q.pending++
	if q.metrics != nil {
		q.metrics.QueueDepth.Inc()
	}
	q.ready.Signal()
	return nil
}

// Join blocks until every task submitted so far, including tasks those tasks
// submitted, has finished.
func (q *WorkQueue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending > 0 {
		q.idle.Wait()
	}
}

// Shutdown stops accepting tasks, lets the workers drain what is queued and
// waits for them to exit. It is safe to call more than once.
func (q *WorkQueue) Shutdown() {
	q.mu.Lock()
	q.closed = true
	q.ready.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

// Size returns the number of workers.
func (q *WorkQueue) Size() int {
	return q.size
}

// Pending returns the number of submitted tasks that have not finished.
func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *WorkQueue) worker(id int) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for len(q.tasks) == 0 && !q.closed {
			q.ready.Wait()
		}
		if len(q.tasks) == 0 {
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		q.run(id, task)

		q.mu.Lock()
		q.pending--
		if q.metrics != nil {
			q.metrics.QueueDepth.Dec()
		}
		if q.pending == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *WorkQueue) run(id int, task Task) {
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panicked"
			q.logger.Error("task panicked",
				"worker", id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
		if q.metrics != nil {
			q.metrics.TasksTotal.WithLabelValues(status).Inc()
		}
	}()
	if err := task(); err != nil {
		status = "failed"
		q.logger.Warn("task failed", "worker", id, "error", err)
	}
}
