// Package schedule provides the delayed-callback primitive used by the
// toast lifecycle: AfterFunc(delay, fn) returning a cancellation handle.
package schedule

import (
	"container/heap"
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It returns false if the callback already
	// ran or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	// AfterFunc schedules fn to run once after d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Now returns the scheduler's current time.
	Now() time.Time
}

// entry is one scheduled callback.
type entry struct {
	when  time.Time
	seq   uint64
	fn    func()
	index int // position in the heap, -1 once popped or stopped
}

// queue is a min-heap of entries ordered by fire time, then schedule order.
type queue []*entry

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].when.Equal(q[j].when) {
		return q[i].seq < q[j].seq
	}
	return q[i].when.Before(q[j].when)
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	e := x.(*entry)
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

// timerHandle implements Timer against a heap guarded by mu.
type timerHandle struct {
	mu    *sync.Mutex
	q     *queue
	entry *entry
	wake  func()
}

func (t *timerHandle) Stop() bool {
	t.mu.Lock()
	if t.entry.index < 0 {
		t.mu.Unlock()
		return false
	}
	heap.Remove(t.q, t.entry.index)
	t.mu.Unlock()

	if t.wake != nil {
		t.wake()
	}
	return true
}
