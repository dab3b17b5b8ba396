package toast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := NewContext(context.Background(), d)

	got, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Same(t, d, got)
}

func TestContext_NoProvider(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoProvider)

	_, err = FromContext(NewContext(context.Background(), nil))
	assert.ErrorIs(t, err, ErrNoProvider)
}
