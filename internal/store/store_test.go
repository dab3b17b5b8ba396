package store

import (
	"testing"
	"time"

	"github.com/jmylchreest/toastui/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNotification(id string) model.Notification {
	return model.NewNotification(id, model.Content{Kind: model.KindInfo, Message: "msg " + id}, time.Now())
}

func ids(ns []model.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestNewStore(t *testing.T) {
	s := NewStore()
	assert.NotNil(t, s)
	assert.Equal(t, 0, s.Count())
	assert.Empty(t, s.All())
}

func TestStore_Add(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Add(testNotification("a")))
	require.NoError(t, s.Add(testNotification("b")))
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, []string{"a", "b"}, ids(s.All()))
}

func TestStore_Add_RejectsDuplicateID(t *testing.T) {
	s := NewStore()

	require.NoError(t, s.Add(testNotification("a")))
	err := s.Add(testNotification("a"))
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 1, s.Count())
}

func TestStore_Add_RejectsEmptyID(t *testing.T) {
	s := NewStore()
	assert.ErrorIs(t, s.Add(testNotification("")), ErrEmptyID)
}

func TestStore_Delete_PreservesOrder(t *testing.T) {
	s := NewStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Add(testNotification(id)))
	}

	assert.True(t, s.Delete("b"))
	assert.Equal(t, []string{"a", "c", "d"}, ids(s.All()))

	// Index must still resolve entries after the shift.
	n, ok := s.Get("d")
	require.True(t, ok)
	assert.Equal(t, "d", n.ID)
	assert.True(t, s.Has("c"))
	assert.False(t, s.Has("b"))
}

func TestStore_Delete_Absent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(testNotification("a")))

	assert.False(t, s.Delete("missing"))
	assert.Equal(t, []string{"a"}, ids(s.All()))
}

func TestStore_SetState(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(testNotification("a")))

	require.NoError(t, s.SetState("a", model.StateExiting))
	n, _ := s.Get("a")
	assert.Equal(t, model.StateExiting, n.State)

	// Exiting never returns to Active.
	assert.ErrorIs(t, s.SetState("a", model.StateActive), ErrInvalidTransition)

	require.NoError(t, s.SetState("a", model.StateRemoved))
	assert.False(t, s.Has("a"))

	assert.ErrorIs(t, s.SetState("a", model.StateExiting), ErrNotFound)
}

func TestStore_Update(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(testNotification("a")))

	ok := s.Update("a", func(n *model.Notification) {
		n.Count = 3
		n.ID = "hijacked"
		n.State = model.StateExiting
	})
	require.True(t, ok)

	n, found := s.Get("a")
	require.True(t, found)
	assert.Equal(t, 3, n.Count)
	assert.Equal(t, model.StateActive, n.State)

	assert.False(t, s.Update("missing", func(*model.Notification) {}))
}

func TestStore_All_ReturnsCopy(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(testNotification("a")))

	all := s.All()
	all[0].Message = "mutated"

	n, _ := s.Get("a")
	assert.Equal(t, "msg a", n.Message)
}

func TestStore_Oldest(t *testing.T) {
	s := NewStore()
	_, ok := s.Oldest()
	assert.False(t, ok)

	require.NoError(t, s.Add(testNotification("a")))
	require.NoError(t, s.Add(testNotification("b")))

	n, ok := s.Oldest()
	require.True(t, ok)
	assert.Equal(t, "a", n.ID)
}

func TestStore_FindActiveDuplicate(t *testing.T) {
	s := NewStore()
	a := testNotification("a")
	require.NoError(t, s.Add(a))

	id, ok := s.FindActiveDuplicate(a.DedupeKey())
	require.True(t, ok)
	assert.Equal(t, "a", id)

	require.NoError(t, s.SetState("a", model.StateExiting))
	_, ok = s.FindActiveDuplicate(a.DedupeKey())
	assert.False(t, ok)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Add(testNotification("a")))
	require.NoError(t, s.Add(testNotification("b")))

	assert.Equal(t, 2, s.Clear())
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.Has("a"))
	assert.Empty(t, s.IDs())
}
