// Package store provides the ordered container that owns active toasts.
package store

import (
	"github.com/jmylchreest/toastui/internal/model"
)

// Store holds notifications in insertion order with an id index.
// It is a plain state container: it is not safe for concurrent use and
// the owner (the dispatcher) serializes access.
type Store struct {
	notifications []model.Notification
	index         map[string]int // id -> slice index
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		notifications: make([]model.Notification, 0),
		index:         make(map[string]int),
	}
}

// Add appends a notification. Ids must be unique among present entries.
func (s *Store) Add(n model.Notification) error {
	if n.ID == "" {
		return ErrEmptyID
	}
	if _, exists := s.index[n.ID]; exists {
		return ErrDuplicateID
	}

	s.index[n.ID] = len(s.notifications)
	s.notifications = append(s.notifications, n)
	return nil
}

// Has reports whether id is present.
func (s *Store) Has(id string) bool {
	_, exists := s.index[id]
	return exists
}

// Get returns a copy of the notification with the given id.
func (s *Store) Get(id string) (model.Notification, bool) {
	idx, exists := s.index[id]
	if !exists {
		return model.Notification{}, false
	}
	return s.notifications[idx], true
}

// SetState moves a notification to a new lifecycle state. Moving to
// StateRemoved deletes the entry.
func (s *Store) SetState(id string, state model.State) error {
	idx, exists := s.index[id]
	if !exists {
		return ErrNotFound
	}
	if !s.notifications[idx].State.CanTransition(state) {
		return ErrInvalidTransition
	}

	if state == model.StateRemoved {
		s.deleteAt(idx)
		return nil
	}
	s.notifications[idx].State = state
	return nil
}

// Update applies fn to the stored notification. The id and state cannot be
// changed through Update.
func (s *Store) Update(id string, fn func(n *model.Notification)) bool {
	idx, exists := s.index[id]
	if !exists {
		return false
	}

	n := &s.notifications[idx]
	origID, origState := n.ID, n.State
	fn(n)
	n.ID, n.State = origID, origState
	return true
}

// Delete removes a notification by id. Deleting an absent id is a no-op
// and returns false.
func (s *Store) Delete(id string) bool {
	idx, exists := s.index[id]
	if !exists {
		return false
	}
	s.deleteAt(idx)
	return true
}

// deleteAt removes the entry at idx and rebuilds the index.
func (s *Store) deleteAt(idx int) {
	s.notifications = append(s.notifications[:idx], s.notifications[idx+1:]...)

	s.index = make(map[string]int, len(s.notifications))
	for i, n := range s.notifications {
		s.index[n.ID] = i
	}
}

// All returns a copy of every notification in insertion order.
func (s *Store) All() []model.Notification {
	result := make([]model.Notification, len(s.notifications))
	copy(result, s.notifications)
	return result
}

// IDs returns the ids of every notification in insertion order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.notifications))
	for i, n := range s.notifications {
		ids[i] = n.ID
	}
	return ids
}

// Oldest returns the first notification in insertion order.
func (s *Store) Oldest() (model.Notification, bool) {
	if len(s.notifications) == 0 {
		return model.Notification{}, false
	}
	return s.notifications[0], true
}

// FindActiveDuplicate returns the id of an Active notification whose
// dedupe key matches key.
func (s *Store) FindActiveDuplicate(key string) (string, bool) {
	for _, n := range s.notifications {
		if n.State == model.StateActive && n.DedupeKey() == key {
			return n.ID, true
		}
	}
	return "", false
}

// Count returns the number of notifications.
func (s *Store) Count() int {
	return len(s.notifications)
}

// Clear removes every notification and returns how many were removed.
func (s *Store) Clear() int {
	count := len(s.notifications)
	s.notifications = make([]model.Notification, 0)
	s.index = make(map[string]int)
	return count
}

// Errors
var (
	ErrEmptyID           = storeError("notification id is empty")
	ErrDuplicateID       = storeError("notification id already present")
	ErrNotFound          = storeError("notification not found")
	ErrInvalidTransition = storeError("invalid state transition")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}
