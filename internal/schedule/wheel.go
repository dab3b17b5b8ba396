package schedule

import (
	"container/heap"
	"log/slog"
	"sync"
	"time"
)

// Wheel is a Scheduler backed by a single min-heap and one goroutine.
// All callbacks run on that goroutine, one at a time, in fire-time order.
// One runtime timer is armed for the earliest deadline regardless of how
// many callbacks are pending.
type Wheel struct {
	mu      sync.Mutex
	q       queue
	seq     uint64
	logger  *slog.Logger
	wakeCh  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWheel creates and starts a timer wheel.
func NewWheel(logger *slog.Logger) *Wheel {
	if logger == nil {
		logger = slog.Default()
	}

	w := &Wheel{
		logger:  logger,
		wakeCh:  make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		running: true,
	}
	go w.loop()
	return w
}

// Now returns the wall-clock time.
func (w *Wheel) Now() time.Time {
	return time.Now()
}

// AfterFunc schedules fn to run on the wheel goroutine after d.
// Callbacks scheduled on a stopped wheel never run.
func (w *Wheel) AfterFunc(d time.Duration, fn func()) Timer {
	w.mu.Lock()
	w.seq++
	e := &entry{when: time.Now().Add(d), seq: w.seq, fn: fn, index: -1}
	if w.running {
		heap.Push(&w.q, e)
	}
	w.mu.Unlock()

	w.wake()
	return &timerHandle{mu: &w.mu, q: &w.q, entry: e, wake: w.wake}
}

// Pending returns the number of callbacks waiting to fire.
func (w *Wheel) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.q.Len()
}

// Stop halts the wheel and drops every pending callback. It waits for a
// callback that is currently running to return.
func (w *Wheel) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	for w.q.Len() > 0 {
		heap.Pop(&w.q)
	}
	close(w.stopCh)
	w.mu.Unlock()

	<-w.doneCh
	w.logger.Debug("timer wheel stopped")
}

// wake nudges the loop to re-read the earliest deadline.
func (w *Wheel) wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// loop is the wheel's event loop.
func (w *Wheel) loop() {
	defer close(w.doneCh)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		// One entry at a time, so a callback can still stop a sibling
		// that is due at the same moment.
		e, next, ok := w.popNext(time.Now())
		if e != nil {
			e.fn()
			continue
		}

		wait := time.Hour
		if ok {
			wait = time.Until(next)
		}
		timer.Reset(wait)

		select {
		case <-w.stopCh:
			return
		case <-w.wakeCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}
	}
}

// popNext removes and returns the earliest entry if it is due at now.
// Otherwise it reports the next deadline, if any.
func (w *Wheel) popNext(now time.Time) (*entry, time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.q.Len() == 0 {
		return nil, time.Time{}, false
	}
	if !w.q[0].when.After(now) {
		return heap.Pop(&w.q).(*entry), time.Time{}, false
	}
	return nil, w.q[0].when, true
}
