// Package toast implements the notification dispatcher: the shared queue of
// transient messages, their Active -> Exiting -> Removed lifecycle, and the
// subscription contract renderers consume.
package toast

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/schedule"
	"github.com/jmylchreest/toastui/internal/store"
)

// Default lifecycle timings.
const (
	DefaultDwell = 5000 * time.Millisecond
	DefaultExit  = 300 * time.Millisecond
)

// maxIDAttempts bounds how often the id source is retried before falling
// back to a sequence-based id.
const maxIDAttempts = 8

// Subscriber receives the full ordered list after every change.
type Subscriber func(list []model.Notification)

// Options controls lifecycle timing and queue limits.
type Options struct {
	// Dwell is how long an entry stays Active before it starts exiting.
	// Zero means entries never expire on their own.
	Dwell time.Duration
	// Exit is the length of the exit transition.
	Exit time.Duration
	// KindDwell overrides Dwell per kind.
	KindDwell map[model.Kind]time.Duration
	// MaxVisible caps the number of retained entries; the oldest are
	// removed first. Zero means unlimited.
	MaxVisible int
	// StackDuplicates folds an add matching an Active entry into it. The
	// entry's count goes up, its dwell restarts and its action callback is
	// replaced by the newest one, so invoking it runs the latest caller's
	// OnClick.
	StackDuplicates bool
}

// DefaultOptions returns the default lifecycle options.
func DefaultOptions() Options {
	return Options{
		Dwell: DefaultDwell,
		Exit:  DefaultExit,
	}
}

func (o Options) normalized() Options {
	o.Dwell = max(o.Dwell, 0)
	o.Exit = max(o.Exit, 0)
	o.MaxVisible = max(o.MaxVisible, 0)
	o.KindDwell = maps.Clone(o.KindDwell)
	return o
}

// dwellFor returns the dwell time for a kind.
func (o Options) dwellFor(kind model.Kind) time.Duration {
	if d, ok := o.KindDwell[kind]; ok {
		return max(d, 0)
	}
	return o.Dwell
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithOptions sets lifecycle timing and limits.
func WithOptions(opts Options) Option {
	return func(d *Dispatcher) {
		d.opts = opts.normalized()
	}
}

// WithIDSource replaces the id generator.
func WithIDSource(ids model.IDSource) Option {
	return func(d *Dispatcher) {
		if ids != nil {
			d.ids = ids
		}
	}
}

// lifecycle is the per-entry timer bookkeeping. gen is bumped every time a
// timer is scheduled or cancelled; a callback only acts if its token still
// matches.
type lifecycle struct {
	gen     uint64
	timer   schedule.Timer
	invoked bool
}

type subscription struct {
	id uint64
	fn Subscriber
}

// Dispatcher owns the notification store and drives every state change.
// It is safe for concurrent use.
type Dispatcher struct {
	mu     sync.Mutex
	sched  schedule.Scheduler
	store  *store.Store
	ids    model.IDSource
	opts   Options
	logger *slog.Logger

	life    map[string]*lifecycle
	gen     uint64
	seq     uint64
	subs    []subscription
	nextSub uint64

	dirty      bool
	delivering bool
}

// New creates a dispatcher whose timers run on sched.
func New(sched schedule.Scheduler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sched:  sched,
		store:  store.NewStore(),
		ids:    model.NewULIDSource(),
		opts:   DefaultOptions(),
		logger: slog.Default(),
		life:   make(map[string]*lifecycle),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add creates an Active notification at the end of the list and returns its
// id. Add never fails.
func (d *Dispatcher) Add(c model.Content) string {
	c = c.Normalize()

	d.mu.Lock()
	id := d.add(c)
	d.mu.Unlock()

	d.flush()
	return id
}

func (d *Dispatcher) add(c model.Content) string {
	now := d.sched.Now()

	if d.opts.StackDuplicates {
		candidate := model.NewNotification("", c, now)
		if id, ok := d.store.FindActiveDuplicate(candidate.DedupeKey()); ok {
			var count int
			d.store.Update(id, func(n *model.Notification) {
				n.Count++
				count = n.Count
				if c.Action != nil {
					action := *c.Action
					n.Action = &action
				}
			})
			d.scheduleDwell(id, c.Kind)
			d.dirty = true
			d.logger.Debug("toast stacked", "id", id, "count", count)
			return id
		}
	}

	id := d.newID(now)
	n := model.NewNotification(id, c, now)
	if err := d.store.Add(n); err != nil {
		// newID guarantees uniqueness, so this only fires on a programming error.
		d.logger.Error("failed to add toast", "id", id, "error", err)
		return id
	}
	d.life[id] = &lifecycle{}
	d.scheduleDwell(id, n.Kind)
	d.evict()
	d.dirty = true

	d.logger.Debug("toast added", "id", id, "kind", n.Kind)
	return id
}

// newID returns an id not present in the store.
func (d *Dispatcher) newID(now time.Time) string {
	for range maxIDAttempts {
		id, err := d.ids.NewID(now)
		if err != nil {
			d.logger.Warn("failed to generate toast id", "error", err)
			continue
		}
		if id == "" || d.store.Has(id) {
			d.logger.Debug("toast id collision, regenerating", "id", id)
			continue
		}
		return id
	}

	for {
		d.seq++
		id := fmt.Sprintf("toast-%d", d.seq)
		if !d.store.Has(id) {
			return id
		}
	}
}

// evict removes the oldest entries while the list exceeds MaxVisible.
func (d *Dispatcher) evict() {
	if d.opts.MaxVisible <= 0 {
		return
	}
	for d.store.Count() > d.opts.MaxVisible {
		oldest, ok := d.store.Oldest()
		if !ok {
			return
		}
		d.store.Delete(oldest.ID)
		d.dropLifecycle(oldest.ID)
		d.dirty = true
		d.logger.Debug("toast evicted", "id", oldest.ID, "max_visible", d.opts.MaxVisible)
	}
}

// Remove deletes the entry immediately. Removing an absent id is a no-op.
func (d *Dispatcher) Remove(id string) {
	d.mu.Lock()
	if !d.store.Delete(id) {
		d.mu.Unlock()
		return
	}
	d.dropLifecycle(id)
	d.dirty = true
	d.logger.Debug("toast removed", "id", id, "reason", "remove")
	d.mu.Unlock()

	d.flush()
}

// Close starts the exit transition of an Active entry. The entry is removed
// once the exit duration elapses. Closing an Exiting or absent entry is a
// no-op.
func (d *Dispatcher) Close(id string) {
	d.mu.Lock()
	n, ok := d.store.Get(id)
	if !ok || n.State != model.StateActive {
		d.mu.Unlock()
		return
	}
	d.beginExit(id, "close")
	d.mu.Unlock()

	d.flush()
}

// Invoke runs the entry's action callback, then closes the entry. The
// callback runs at most once per entry and only while the entry is Active.
// A panic in the callback propagates to the caller; the close still happens.
// Invoke reports whether the callback was run.
func (d *Dispatcher) Invoke(id string) bool {
	d.mu.Lock()
	n, ok := d.store.Get(id)
	lc := d.life[id]
	if !ok || lc == nil || n.State != model.StateActive || !n.HasAction() || lc.invoked {
		d.mu.Unlock()
		return false
	}
	lc.invoked = true
	onClick := n.Action.OnClick
	d.mu.Unlock()

	d.logger.Debug("toast action invoked", "id", id, "label", n.Action.Label)

	defer d.Close(id)
	if onClick != nil {
		onClick()
	}
	return true
}

// CloseAll starts the exit transition of every Active entry.
func (d *Dispatcher) CloseAll() {
	d.mu.Lock()
	for _, id := range d.store.IDs() {
		if n, ok := d.store.Get(id); ok && n.State == model.StateActive {
			d.beginExit(id, "close_all")
		}
	}
	d.mu.Unlock()

	d.flush()
}

// List returns a snapshot of every entry in display order.
func (d *Dispatcher) List() []model.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshot()
}

// Get returns a snapshot of one entry.
func (d *Dispatcher) Get(id string) (model.Notification, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.store.Get(id)
	if !ok {
		return model.Notification{}, false
	}
	return *n.Clone(), true
}

// Options returns the current options.
func (d *Dispatcher) Options() Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.normalized()
}

// Apply replaces the options. New timings apply to timers scheduled after
// the call; a lower MaxVisible is enforced immediately.
func (d *Dispatcher) Apply(opts Options) {
	d.mu.Lock()
	d.opts = opts.normalized()
	d.evict()
	d.logger.Debug("toast options applied",
		"dwell", d.opts.Dwell,
		"exit", d.opts.Exit,
		"max_visible", d.opts.MaxVisible,
		"stack_duplicates", d.opts.StackDuplicates,
	)
	d.mu.Unlock()

	d.flush()
}

// Shutdown cancels every timer and clears the list.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	for id := range d.life {
		d.dropLifecycle(id)
	}
	if d.store.Clear() > 0 {
		d.dirty = true
	}
	d.mu.Unlock()

	d.flush()
}

// Subscribe registers fn to receive the list after every change and returns
// a function that deregisters it. The current list is not delivered on
// registration; use List for the initial state.
func (d *Dispatcher) Subscribe(fn Subscriber) (unsubscribe func()) {
	d.mu.Lock()
	d.nextSub++
	id := d.nextSub
	d.subs = append(d.subs, subscription{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			d.subs = slices.DeleteFunc(d.subs, func(s subscription) bool {
				return s.id == id
			})
		})
	}
}

// snapshot copies the list so callers cannot reach stored entries.
func (d *Dispatcher) snapshot() []model.Notification {
	return cloneList(d.store.All())
}

// flush delivers the newest list to subscribers. Only one goroutine
// delivers at a time; changes made meanwhile are picked up by the running
// pass.
func (d *Dispatcher) flush() {
	d.mu.Lock()
	if d.delivering || !d.dirty {
		d.mu.Unlock()
		return
	}
	d.delivering = true
	defer func() {
		d.delivering = false
		d.mu.Unlock()
	}()

	for d.dirty {
		d.dirty = false
		list := d.store.All()
		subs := slices.Clone(d.subs)
		d.deliver(list, subs)
	}
}

// deliver runs subscribers with the lock released, each with its own copy
// of list. Called with d.mu held.
func (d *Dispatcher) deliver(list []model.Notification, subs []subscription) {
	d.mu.Unlock()
	defer d.mu.Lock()

	for _, s := range subs {
		s.fn(cloneList(list))
	}
}

func cloneList(list []model.Notification) []model.Notification {
	out := make([]model.Notification, len(list))
	for i := range list {
		out[i] = *list[i].Clone()
	}
	return out
}

// Len returns the number of entries currently in the list.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.store.Count()
}
