package toast

import (
	"context"
	"errors"
)

// ErrNoProvider is returned when no dispatcher is attached to a context.
var ErrNoProvider = errors.New("toast: no dispatcher in context")

type contextKey struct{}

// NewContext returns a copy of ctx carrying d.
func NewContext(ctx context.Context, d *Dispatcher) context.Context {
	return context.WithValue(ctx, contextKey{}, d)
}

// FromContext returns the dispatcher attached to ctx.
func FromContext(ctx context.Context) (*Dispatcher, error) {
	d, ok := ctx.Value(contextKey{}).(*Dispatcher)
	if !ok || d == nil {
		return nil, ErrNoProvider
	}
	return d, nil
}
