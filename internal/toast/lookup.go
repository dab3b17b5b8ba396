package toast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/toastui/internal/model"
)

// Lookup errors.
var (
	ErrNotFound  = errors.New("toast not found")
	ErrAmbiguous = errors.New("ambiguous toast id")
)

// LookupError describes a failed lookup.
type LookupError struct {
	Input   string
	Matches []string
	Err     error
}

func (e *LookupError) Error() string {
	if len(e.Matches) > 0 {
		return fmt.Sprintf("%v: %q matches %s", e.Err, e.Input, strings.Join(e.Matches, ", "))
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Input)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Lookup resolves input against a snapshot. Input may be a full id, a
// unique id prefix (case-insensitive), or a 1-based display index.
func Lookup(list []model.Notification, input string) (model.Notification, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return model.Notification{}, &LookupError{Input: input, Err: ErrNotFound}
	}

	if n := LookupByID(list, input); n != nil {
		return *n, nil
	}

	// Numbers without a leading zero are display indexes. Current ULIDs
	// start with "0", so id prefixes still resolve as prefixes.
	if idx, err := strconv.Atoi(input); err == nil && !strings.HasPrefix(input, "0") {
		if n := LookupByIndex(list, idx); n != nil {
			return *n, nil
		}
		return model.Notification{}, &LookupError{Input: input, Err: ErrNotFound}
	}

	prefix := strings.ToUpper(input)
	var matches []model.Notification
	for _, n := range list {
		if strings.HasPrefix(strings.ToUpper(n.ID), prefix) {
			matches = append(matches, n)
		}
	}

	switch len(matches) {
	case 0:
		return model.Notification{}, &LookupError{Input: input, Err: ErrNotFound}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, len(matches))
		for i, m := range matches {
			ids[i] = m.ID
		}
		return model.Notification{}, &LookupError{Input: input, Matches: ids, Err: ErrAmbiguous}
	}
}

// LookupByID finds a notification by its exact id.
// Returns nil if not found.
func LookupByID(list []model.Notification, id string) *model.Notification {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

// LookupByIndex finds a notification by its 1-based display index.
// Returns nil if index is out of bounds.
func LookupByIndex(list []model.Notification, index int) *model.Notification {
	idx := index - 1
	if idx < 0 || idx >= len(list) {
		return nil
	}
	return &list[idx]
}

// IndexOf returns the position of id in list, or -1.
func IndexOf(list []model.Notification, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
