package toast

import (
	"github.com/jmylchreest/toastui/internal/model"
)

// All functions in this file are called with d.mu held, except the timer
// callbacks, which take it themselves.

// nextGen returns a fresh generation token.
func (d *Dispatcher) nextGen() uint64 {
	d.gen++
	return d.gen
}

// stopTimer cancels the entry's outstanding timer and invalidates any
// callback already queued for it.
func (d *Dispatcher) stopTimer(lc *lifecycle) {
	if lc.timer != nil {
		lc.timer.Stop()
		lc.timer = nil
	}
	lc.gen = d.nextGen()
}

// scheduleDwell (re)starts the auto-dismiss timer of an Active entry.
func (d *Dispatcher) scheduleDwell(id string, kind model.Kind) {
	lc, ok := d.life[id]
	if !ok {
		return
	}
	d.stopTimer(lc)

	dwell := d.opts.dwellFor(kind)
	if dwell <= 0 {
		return
	}
	gen := lc.gen
	lc.timer = d.sched.AfterFunc(dwell, func() { d.expire(id, gen) })
}

// beginExit moves an Active entry to Exiting and schedules its removal.
func (d *Dispatcher) beginExit(id, reason string) {
	lc, ok := d.life[id]
	if !ok {
		return
	}
	if err := d.store.SetState(id, model.StateExiting); err != nil {
		d.logger.Debug("toast exit skipped", "id", id, "error", err)
		return
	}
	now := d.sched.Now()
	d.store.Update(id, func(n *model.Notification) { n.ExitingAt = now })

	d.stopTimer(lc)
	gen := lc.gen
	lc.timer = d.sched.AfterFunc(d.opts.Exit, func() { d.finish(id, gen) })
	d.dirty = true

	d.logger.Debug("toast exiting", "id", id, "reason", reason)
}

// dropLifecycle cancels timers for an entry that is leaving the store.
func (d *Dispatcher) dropLifecycle(id string) {
	lc, ok := d.life[id]
	if !ok {
		return
	}
	d.stopTimer(lc)
	delete(d.life, id)
}

// current reports whether gen is still the live token for id.
func (d *Dispatcher) current(id string, gen uint64) bool {
	lc, ok := d.life[id]
	return ok && lc.gen == gen
}

// expire is the dwell timer callback.
func (d *Dispatcher) expire(id string, gen uint64) {
	d.mu.Lock()
	if !d.current(id, gen) {
		d.mu.Unlock()
		return
	}
	d.life[id].timer = nil
	if n, ok := d.store.Get(id); ok && n.State == model.StateActive {
		d.beginExit(id, "expired")
	}
	d.mu.Unlock()

	d.flush()
}

// finish is the exit timer callback.
func (d *Dispatcher) finish(id string, gen uint64) {
	d.mu.Lock()
	if !d.current(id, gen) {
		d.mu.Unlock()
		return
	}
	delete(d.life, id)
	if err := d.store.SetState(id, model.StateRemoved); err != nil {
		d.logger.Debug("toast removal skipped", "id", id, "error", err)
		d.mu.Unlock()
		return
	}
	d.dirty = true
	d.logger.Debug("toast removed", "id", id, "reason", "exited")
	d.mu.Unlock()

	d.flush()
}
