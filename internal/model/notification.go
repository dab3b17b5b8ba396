// Package model defines the core data structures for toastui.
package model

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/oklog/ulid/v2"
)

// Kind is the severity/intent of a notification.
type Kind string

// Notification kinds.
const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

// Kinds returns all valid kinds in display order.
func Kinds() []Kind {
	return []Kind{KindSuccess, KindError, KindWarning, KindInfo}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindError, KindWarning, KindInfo:
		return true
	default:
		return false
	}
}

// ParseKind parses a kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// State is the lifecycle state of a notification.
type State int

const (
	// StateActive is the initial state: visible and counting toward auto-dismiss.
	StateActive State = iota
	// StateExiting means the exit transition is playing; removal is scheduled.
	StateExiting
	// StateRemoved is terminal. Removed entries are deleted, never retained.
	StateRemoved
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExiting:
		return "exiting"
	case StateRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	st, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseState parses a state name (case-insensitive).
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return StateActive, nil
	case "exiting":
		return StateExiting, nil
	case "removed":
		return StateRemoved, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidState, s)
	}
}

// CanTransition reports whether moving from s to next is legal.
// Active may exit or be removed outright; Exiting may only be removed.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateActive:
		return next == StateExiting || next == StateRemoved
	case StateExiting:
		return next == StateRemoved
	default:
		return false
	}
}

// Action is an optional user action attached to a notification.
type Action struct {
	Label   string `json:"label" yaml:"label"`
	OnClick func() `json:"-" yaml:"-"`
}

// Content is what callers supply when adding a notification.
type Content struct {
	Kind    Kind
	Message string
	Action  *Action
}

// Normalize returns the content with an unknown kind replaced by KindInfo.
func (c Content) Normalize() Content {
	if !c.Kind.Valid() {
		k, err := ParseKind(string(c.Kind))
		if err != nil {
			k = KindInfo
		}
		c.Kind = k
	}
	return c
}

// Notification represents a single toast held by the store.
type Notification struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      Kind      `json:"kind" yaml:"kind"`
	Message   string    `json:"message" yaml:"message"`
	Action    *Action   `json:"action,omitempty" yaml:"action,omitempty"`
	State     State     `json:"state" yaml:"state"`
	Count     int       `json:"count" yaml:"count"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	ExitingAt time.Time `json:"exiting_at,omitzero" yaml:"exiting_at,omitempty"`
}

// Validation errors.
var (
	ErrInvalidKind  = errors.New("invalid kind")
	ErrInvalidState = errors.New("invalid state")
)

// NewNotification builds an Active notification from content.
func NewNotification(id string, c Content, now time.Time) Notification {
	c = c.Normalize()
	return Notification{
		ID:        id,
		Kind:      c.Kind,
		Message:   c.Message,
		Action:    c.Action,
		State:     StateActive,
		Count:     1,
		CreatedAt: now,
	}
}

// HasAction returns true if the notification carries an action.
func (n *Notification) HasAction() bool {
	return n.Action != nil
}

// IsExiting returns true if the exit transition has started.
func (n *Notification) IsExiting() bool {
	return n.State == StateExiting
}

// MessageTruncated returns the message on one line, cut to maxLen
// terminal cells with "..." appended. maxLen <= 0 means no limit.
func (n *Notification) MessageTruncated(maxLen int) string {
	return TruncateMessage(n.Message, maxLen)
}

// TruncateMessage collapses whitespace and cuts msg to maxLen cells without
// splitting a rune.
func TruncateMessage(msg string, maxLen int) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if maxLen <= 0 || ansi.StringWidth(msg) <= maxLen {
		return msg
	}

	tail := "..."
	if maxLen <= len(tail) {
		tail = ""
	}
	return ansi.Truncate(msg, maxLen, tail)
}

// DedupeKey returns a string key for duplicate stacking.
// Notifications with the same kind, message and action label share a key.
func (n *Notification) DedupeKey() string {
	label := ""
	if n.Action != nil {
		label = n.Action.Label
	}
	return fmt.Sprintf("%s:%s:%s", n.Kind, n.Message, label)
}

// Clone creates a copy of the notification. The action is copied by value
// so callers cannot rewrite the stored label; the callback is shared.
func (n *Notification) Clone() *Notification {
	clone := *n
	if n.Action != nil {
		action := *n.Action
		clone.Action = &action
	}
	return &clone
}

// IDSource generates notification ids.
type IDSource interface {
	NewID(now time.Time) (string, error)
}

// ULIDSource generates monotonic ULIDs. Ids from one source are strictly
// increasing, so they never repeat within a process.
type ULIDSource struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDSource creates a ULID source backed by crypto/rand.
func NewULIDSource() *ULIDSource {
	return &ULIDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewID returns a new ULID string stamped with now.
func (s *ULIDSource) NewID(now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}
