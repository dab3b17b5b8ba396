package toast

import (
	"slices"
	"sync"

	"github.com/jmylchreest/toastui/internal/model"
)

// Changes is the difference between two consecutive snapshots.
type Changes struct {
	Added   []model.Notification // new ids, in display order
	Updated []model.Notification // ids whose count grew while Active
	Exiting []model.Notification // ids that entered Exiting
	Removed []string             // ids no longer present
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Exiting) == 0 && len(c.Removed) == 0
}

// Tracker turns a stream of snapshots into per-entry transitions. Renderers
// that act on individual toasts (desktop forwarding, sounds) feed it from a
// Subscriber.
type Tracker struct {
	mu   sync.Mutex
	seen map[string]model.Notification
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{seen: make(map[string]model.Notification)}
}

// Update records list and returns what changed since the previous call.
func (t *Tracker) Update(list []model.Notification) Changes {
	t.mu.Lock()
	defer t.mu.Unlock()

	var c Changes
	next := make(map[string]model.Notification, len(list))

	for _, n := range list {
		next[n.ID] = n
		prev, ok := t.seen[n.ID]
		switch {
		case !ok:
			c.Added = append(c.Added, n)
			if n.State == model.StateExiting {
				c.Exiting = append(c.Exiting, n)
			}
		case prev.State != model.StateExiting && n.State == model.StateExiting:
			c.Exiting = append(c.Exiting, n)
		case n.State == model.StateActive && n.Count > prev.Count:
			c.Updated = append(c.Updated, n)
		}
	}

	for id := range t.seen {
		if _, ok := next[id]; !ok {
			c.Removed = append(c.Removed, id)
		}
	}
	slices.Sort(c.Removed)

	t.seen = next
	return c
}
