// Package input provides input adapters that feed commands into the
// dispatcher.
package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/toast"
)

// InputAdapter reads commands from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "stdin").
	Name() string

	// Run reads commands until the source is exhausted or ctx is done,
	// calling handle for each one. It returns nil at end of input.
	Run(ctx context.Context, handle func(Command) error) error
}

// NewAdapter creates an InputAdapter for source: "", "-" or "stdin" read
// standard input, anything else is opened as a file.
func NewAdapter(source string) (InputAdapter, error) {
	switch source {
	case "", "-", "stdin":
		return NewStdinAdapter(), nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, &AdapterError{
			Source:  source,
			Message: "failed to open input",
			Err:     err,
		}
	}
	return &StdinAdapter{name: source, reader: f, closer: f}, nil
}

// ErrNotInvokable is returned when an invoke targets a toast without an
// action, or one that is already exiting.
var ErrNotInvokable = errors.New("toast has no pending action")

// Op is a command verb.
type Op string

const (
	OpAdd    Op = "add"
	OpClose  Op = "close"
	OpRemove Op = "remove"
	OpInvoke Op = "invoke"
	OpClear  Op = "clear"
)

// Command is one line of input.
type Command struct {
	Op      Op     `json:"op,omitempty"`
	ID      string `json:"id,omitempty"`      // full id, unique prefix or 1-based index
	Kind    string `json:"kind,omitempty"`    // add only
	Message string `json:"message,omitempty"` // add only
	Action  string `json:"action,omitempty"`  // add only, action label
}

// Validate normalizes the op and checks required fields.
func (c *Command) Validate() error {
	c.Op = Op(strings.ToLower(strings.TrimSpace(string(c.Op))))
	if c.Op == "" {
		c.Op = OpAdd
	}

	switch c.Op {
	case OpAdd:
		if strings.TrimSpace(c.Message) == "" {
			return fmt.Errorf("add requires a message")
		}
	case OpClose, OpRemove, OpInvoke:
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("%s requires an id", c.Op)
		}
	case OpClear:
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}
	return nil
}

// Content builds the toast content for an add command. onAction is bound to
// the action label when the command carries one.
func (c Command) Content(onAction func(label string)) model.Content {
	content := model.Content{
		Kind:    model.Kind(strings.ToLower(strings.TrimSpace(c.Kind))),
		Message: c.Message,
	}
	if c.Action != "" {
		label := c.Action
		content.Action = &model.Action{
			Label: label,
			OnClick: func() {
				if onAction != nil {
					onAction(label)
				}
			},
		}
	}
	return content
}

// Apply executes cmd against d. Ids are resolved against the current list,
// so prefixes and display indexes work. Unknown ids are reported as errors
// to the caller; the dispatcher itself treats them as no-ops. onAction gets
// an empty id if the action runs before Apply returns.
func Apply(d *toast.Dispatcher, cmd Command, onAction func(id, label string)) (string, error) {
	if err := cmd.Validate(); err != nil {
		return "", err
	}

	switch cmd.Op {
	case OpAdd:
		// The action may run on any goroutine that calls Invoke.
		var added atomic.Value
		id := d.Add(cmd.Content(func(label string) {
			if onAction != nil {
				id, _ := added.Load().(string)
				onAction(id, label)
			}
		}))
		added.Store(id)
		return id, nil
	case OpClear:
		d.CloseAll()
		return "", nil
	}

	n, err := toast.Lookup(d.List(), cmd.ID)
	if err != nil {
		return "", err
	}

	switch cmd.Op {
	case OpClose:
		d.Close(n.ID)
	case OpRemove:
		d.Remove(n.ID)
	case OpInvoke:
		if !d.Invoke(n.ID) {
			return n.ID, fmt.Errorf("%w: %s", ErrNotInvokable, n.ID)
		}
	}
	return n.ID, nil
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Line    int
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	prefix := e.Source
	if e.Line > 0 {
		prefix = fmt.Sprintf("%s:%d", e.Source, e.Line)
	}
	if e.Err != nil {
		return prefix + ": " + e.Message + ": " + e.Err.Error()
	}
	return prefix + ": " + e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
