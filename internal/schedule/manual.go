package schedule

import (
	"container/heap"
	"sync"
	"time"
)

// Manual is a Scheduler driven by an explicit clock. Nothing fires until
// Advance is called; callbacks run on the goroutine that calls Advance.
type Manual struct {
	mu  sync.Mutex
	now time.Time
	q   queue
	seq uint64
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the simulated time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc schedules fn at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	e := &entry{when: m.now.Add(d), seq: m.seq, fn: fn}
	heap.Push(&m.q, e)
	return &timerHandle{mu: &m.mu, q: &m.q, entry: e}
}

// Advance moves the clock forward by d, firing every callback whose
// deadline falls inside the window in fire-time order. Callbacks scheduled
// while advancing fire too if they land inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		if m.q.Len() == 0 || m.q[0].when.After(target) {
			m.now = target
			m.mu.Unlock()
			return
		}
		e := heap.Pop(&m.q).(*entry)
		if e.when.After(m.now) {
			m.now = e.when
		}
		m.mu.Unlock()

		e.fn()
	}
}

// Pending returns the number of callbacks waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.Len()
}
