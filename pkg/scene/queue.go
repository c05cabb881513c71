package scene

import (
	"errors"
	"sync"
)

// Task is a unit of scene work run on the owning goroutine.
type Task func() error

// Queue is a FIFO of tasks with many producers and one consumer.
// The zero value is ready to use.
type Queue struct {
	mu    sync.Mutex
	tasks []Task
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue { return &Queue{} }

// Submit appends t. Safe from any goroutine; nil tasks are ignored.
func (q *Queue) Submit(t Task) {
	if t == nil {
		return
	}
	q.mu.Lock()
	q.tasks = append(q.tasks, t)
	q.mu.Unlock()
}

// Drain runs every task queued so far in submission order and returns their
// errors joined. A failing task does not stop the ones after it.
func (q *Queue) Drain() error {
	q.mu.Lock()
	batch := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	var errs []error
	for _, t := range batch {
		if err := t(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
