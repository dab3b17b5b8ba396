package toast

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastui/internal/model"
	"github.com/jmylchreest/toastui/internal/schedule"
)

func newTestDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *schedule.Manual) {
	t.Helper()
	clock := schedule.NewManual(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))
	return New(clock, opts...), clock
}

func messages(list []model.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.Message
	}
	return out
}

// recorder captures every list delivered to a subscriber.
type recorder struct {
	mu    sync.Mutex
	lists [][]model.Notification
}

func (r *recorder) fn(list []model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists = append(r.lists, list)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lists)
}

func (r *recorder) last() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lists) == 0 {
		return nil
	}
	return r.lists[len(r.lists)-1]
}

// sequenceIDs hands out ids from a fixed list, then falls through to an error.
type sequenceIDs struct {
	ids []string
	i   int
}

func (s *sequenceIDs) NewID(time.Time) (string, error) {
	if s.i >= len(s.ids) {
		return "", errors.New("exhausted")
	}
	id := s.ids[s.i]
	s.i++
	return id, nil
}

func TestAdd_PreservesCallOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	for i := range 10 {
		d.Add(model.Content{Kind: model.KindInfo, Message: fmt.Sprintf("m%d", i)})
	}

	list := d.List()
	require.Len(t, list, 10)
	for i, n := range list {
		assert.Equal(t, fmt.Sprintf("m%d", i), n.Message)
		assert.Equal(t, model.StateActive, n.State)
	}
}

func TestAdd_TwoMessagesInOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})

	assert.Equal(t, []string{"A", "B"}, messages(d.List()))
}

func TestLifecycle_SavedScenario(t *testing.T) {
	d, clock := newTestDispatcher(t)

	id := d.Add(model.Content{Kind: model.KindSuccess, Message: "Saved"})

	list := d.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, model.KindSuccess, list[0].Kind)
	assert.Equal(t, model.StateActive, list[0].State)

	clock.Advance(4999 * time.Millisecond)
	assert.Equal(t, model.StateActive, d.List()[0].State)

	clock.Advance(time.Millisecond)
	list = d.List()
	require.Len(t, list, 1)
	assert.Equal(t, model.StateExiting, list[0].State)
	assert.Equal(t, clock.Now(), list[0].ExitingAt)

	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, d.List())
}

func TestAdd_UnknownKindBecomesInfo(t *testing.T) {
	d, _ := newTestDispatcher(t)

	id := d.Add(model.Content{Kind: "bogus", Message: "x"})
	n, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.KindInfo, n.Kind)
}

func TestAdd_NotifiesSubscribers(t *testing.T) {
	d, _ := newTestDispatcher(t)
	r := &recorder{}
	d.Subscribe(r.fn)

	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})

	require.Equal(t, 2, r.count())
	assert.Equal(t, []string{"A"}, messages(r.lists[0]))
	assert.Equal(t, []string{"A", "B"}, messages(r.lists[1]))
}

func TestRemove_Immediate(t *testing.T) {
	d, _ := newTestDispatcher(t)

	a := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "C"})

	d.Remove(a)
	assert.Equal(t, []string{"B", "C"}, messages(d.List()))
}

func TestRemove_MiddleKeepsOrder(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	b := d.Add(model.Content{Kind: model.KindInfo, Message: "B"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "C"})

	d.Remove(b)
	assert.Equal(t, []string{"A", "C"}, messages(d.List()))
}

func TestRemove_AbsentIsNoop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})

	r := &recorder{}
	d.Subscribe(r.fn)
	before := d.List()

	assert.NotPanics(t, func() { d.Remove("does-not-exist") })
	assert.Equal(t, before, d.List())
	assert.Equal(t, 0, r.count(), "no-op remove must not notify")
}

func TestRemove_Twice(t *testing.T) {
	d, _ := newTestDispatcher(t)
	id := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})

	r := &recorder{}
	d.Subscribe(r.fn)

	d.Remove(id)
	d.Remove(id)
	assert.Equal(t, 1, r.count())
	assert.Empty(t, d.List())
}

func TestClose_RemovedAfterExit(t *testing.T) {
	d, clock := newTestDispatcher(t)
	id := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})

	d.Close(id)
	n, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StateExiting, n.State)

	clock.Advance(299 * time.Millisecond)
	assert.Len(t, d.List(), 1)

	clock.Advance(time.Millisecond)
	assert.Empty(t, d.List())
}

func TestClose_StaleDwellIsHarmless(t *testing.T) {
	d, clock := newTestDispatcher(t)
	id := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})

	clock.Advance(time.Second)
	d.Close(id)
	clock.Advance(300 * time.Millisecond)
	require.Empty(t, d.List())

	r := &recorder{}
	d.Subscribe(r.fn)
	clock.Advance(10 * time.Second)
	assert.Empty(t, d.List())
	assert.Equal(t, 0, r.count())
	assert.Equal(t, 0, clock.Pending())
}

func TestClose_ExitingIsNoop(t *testing.T) {
	d, clock := newTestDispatcher(t)
	id := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})

	d.Close(id)
	clock.Advance(200 * time.Millisecond)

	// A second close must not restart the exit timer.
	d.Close(id)
	clock.Advance(100 * time.Millisecond)
	assert.Empty(t, d.List())
}

func TestClose_AbsentIsNoop(t *testing.T) {
	d, _ := newTestDispatcher(t)
	r := &recorder{}
	d.Subscribe(r.fn)

	d.Close("missing")
	assert.Equal(t, 0, r.count())
}

func TestRemove_DuringExit(t *testing.T) {
	d, clock := newTestDispatcher(t)
	id := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})

	d.Close(id)
	d.Remove(id)
	assert.Empty(t, d.List())

	r := &recorder{}
	d.Subscribe(r.fn)
	clock.Advance(time.Second)
	assert.Equal(t, 0, r.count())
}

func TestExiting_NeverReturnsToActive(t *testing.T) {
	d, clock := newTestDispatcher(t, WithOptions(Options{
		Dwell:           5 * time.Second,
		Exit:            300 * time.Millisecond,
		StackDuplicates: true,
	}))

	content := model.Content{Kind: model.KindInfo, Message: "dup"}
	first := d.Add(content)
	d.Close(first)

	// A duplicate of an Exiting entry creates a new entry.
	second := d.Add(content)
	assert.NotEqual(t, first, second)

	n, ok := d.Get(first)
	require.True(t, ok)
	assert.Equal(t, model.StateExiting, n.State)

	clock.Advance(300 * time.Millisecond)
	_, ok = d.Get(first)
	assert.False(t, ok)
}

func TestInvoke_RunsActionThenCloses(t *testing.T) {
	d, clock := newTestDispatcher(t)

	clicks := 0
	id := d.Add(model.Content{
		Kind:    model.KindInfo,
		Message: "Deleted",
		Action:  &model.Action{Label: "Undo", OnClick: func() { clicks++ }},
	})

	assert.True(t, d.Invoke(id))
	assert.Equal(t, 1, clicks)

	n, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StateExiting, n.State)

	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, d.List())
}

func TestInvoke_AtMostOnce(t *testing.T) {
	d, _ := newTestDispatcher(t)

	clicks := 0
	id := d.Add(model.Content{
		Kind:    model.KindInfo,
		Message: "x",
		Action:  &model.Action{Label: "Go", OnClick: func() { clicks++ }},
	})

	assert.True(t, d.Invoke(id))
	assert.False(t, d.Invoke(id))
	assert.Equal(t, 1, clicks)
}

func TestInvoke_PanicStillCloses(t *testing.T) {
	d, clock := newTestDispatcher(t)

	id := d.Add(model.Content{
		Kind:    model.KindError,
		Message: "x",
		Action:  &model.Action{Label: "Retry", OnClick: func() { panic("boom") }},
	})

	assert.PanicsWithValue(t, "boom", func() { d.Invoke(id) })

	n, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StateExiting, n.State)

	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, d.List())
}

func TestInvoke_ReentrantFromCallback(t *testing.T) {
	d, clock := newTestDispatcher(t)

	var id string
	id = d.Add(model.Content{
		Kind:    model.KindInfo,
		Message: "x",
		Action: &model.Action{Label: "Go", OnClick: func() {
			d.Add(model.Content{Kind: model.KindSuccess, Message: "done"})
			d.Close(id)
		}},
	})

	require.True(t, d.Invoke(id))
	assert.Equal(t, []string{"x", "done"}, messages(d.List()))

	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, []string{"done"}, messages(d.List()))
}

func TestInvoke_WithoutActionOrNotActive(t *testing.T) {
	d, _ := newTestDispatcher(t)

	plain := d.Add(model.Content{Kind: model.KindInfo, Message: "plain"})
	assert.False(t, d.Invoke(plain))
	n, _ := d.Get(plain)
	assert.Equal(t, model.StateActive, n.State)

	clicked := false
	withAction := d.Add(model.Content{
		Kind:    model.KindInfo,
		Message: "action",
		Action:  &model.Action{Label: "Go", OnClick: func() { clicked = true }},
	})
	d.Close(withAction)
	assert.False(t, d.Invoke(withAction))
	assert.False(t, clicked)

	assert.False(t, d.Invoke("missing"))
}

func TestCloseAll(t *testing.T) {
	d, clock := newTestDispatcher(t)
	r := &recorder{}

	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})
	d.Subscribe(r.fn)

	d.CloseAll()
	require.Equal(t, 1, r.count())
	for _, n := range r.last() {
		assert.Equal(t, model.StateExiting, n.State)
	}

	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, d.List())
}

// pendingTimers counts entries with an outstanding timer.
func (d *Dispatcher) pendingTimers() int {
	n := 0
	for _, lc := range d.life {
		if lc.timer != nil {
			n++
		}
	}
	return n
}

func TestAtMostOneTimerPerEntry(t *testing.T) {
	d, clock := newTestDispatcher(t)

	a := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})
	assert.Equal(t, 2, clock.Pending())

	d.Close(a)
	d.mu.Lock()
	assert.Equal(t, 2, d.pendingTimers())
	d.mu.Unlock()
	assert.Equal(t, 2, clock.Pending(), "dwell timer must be cancelled on close")
}

func TestKindDwellOverride(t *testing.T) {
	d, clock := newTestDispatcher(t, WithOptions(Options{
		Dwell: 5 * time.Second,
		Exit:  300 * time.Millisecond,
		KindDwell: map[model.Kind]time.Duration{
			model.KindError: 10 * time.Second,
		},
	}))

	info := d.Add(model.Content{Kind: model.KindInfo, Message: "i"})
	errID := d.Add(model.Content{Kind: model.KindError, Message: "e"})

	clock.Advance(5 * time.Second)
	n, _ := d.Get(info)
	assert.Equal(t, model.StateExiting, n.State)
	n, _ = d.Get(errID)
	assert.Equal(t, model.StateActive, n.State)

	clock.Advance(5 * time.Second)
	n, _ = d.Get(errID)
	assert.Equal(t, model.StateExiting, n.State)
}

func TestZeroDwellNeverExpires(t *testing.T) {
	d, clock := newTestDispatcher(t, WithOptions(Options{Exit: 300 * time.Millisecond}))

	id := d.Add(model.Content{Kind: model.KindInfo, Message: "sticky"})
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Hour)
	n, ok := d.Get(id)
	require.True(t, ok)
	assert.Equal(t, model.StateActive, n.State)

	d.Close(id)
	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, d.List())
}

func TestMaxVisible_EvictsOldest(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxVisible = 3
	d, clock := newTestDispatcher(t, WithOptions(opts))

	for _, m := range []string{"A", "B", "C", "D", "E"} {
		d.Add(model.Content{Kind: model.KindInfo, Message: m})
	}

	assert.Equal(t, []string{"C", "D", "E"}, messages(d.List()))
	assert.Equal(t, 3, clock.Pending())
}

func TestStackDuplicates(t *testing.T) {
	opts := DefaultOptions()
	opts.StackDuplicates = true
	d, clock := newTestDispatcher(t, WithOptions(opts))

	first := d.Add(model.Content{Kind: model.KindError, Message: "disk full"})
	clock.Advance(4 * time.Second)
	second := d.Add(model.Content{Kind: model.KindError, Message: "disk full"})
	d.Add(model.Content{Kind: model.KindWarning, Message: "disk full"})

	assert.Equal(t, first, second)
	list := d.List()
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Count)
	assert.Equal(t, 1, list[1].Count)

	// Stacking restarts the dwell timer.
	clock.Advance(4 * time.Second)
	n, _ := d.Get(first)
	assert.Equal(t, model.StateActive, n.State)

	clock.Advance(time.Second)
	n, _ = d.Get(first)
	assert.Equal(t, model.StateExiting, n.State)
}

func TestStackDuplicates_NewestActionWins(t *testing.T) {
	opts := DefaultOptions()
	opts.StackDuplicates = true
	d, _ := newTestDispatcher(t, WithOptions(opts))

	var clicked []string
	retry := func(who string) *model.Action {
		return &model.Action{Label: "Retry", OnClick: func() { clicked = append(clicked, who) }}
	}

	id := d.Add(model.Content{Kind: model.KindError, Message: "upload failed", Action: retry("first")})
	stacked := d.Add(model.Content{Kind: model.KindError, Message: "upload failed", Action: retry("second")})
	require.Equal(t, id, stacked)

	require.True(t, d.Invoke(id))
	assert.Equal(t, []string{"second"}, clicked)
}

func TestApply_AffectsLaterTimers(t *testing.T) {
	d, clock := newTestDispatcher(t)

	early := d.Add(model.Content{Kind: model.KindInfo, Message: "early"})
	d.Apply(Options{Dwell: time.Second, Exit: 100 * time.Millisecond})
	late := d.Add(model.Content{Kind: model.KindInfo, Message: "late"})

	clock.Advance(time.Second)
	n, _ := d.Get(late)
	assert.Equal(t, model.StateExiting, n.State)
	n, _ = d.Get(early)
	assert.Equal(t, model.StateActive, n.State)

	clock.Advance(100 * time.Millisecond)
	_, ok := d.Get(late)
	assert.False(t, ok)

	// The early entry keeps its original deadline.
	clock.Advance(3900 * time.Millisecond)
	n, _ = d.Get(early)
	assert.Equal(t, model.StateExiting, n.State)
}

func TestApply_LowerMaxVisible(t *testing.T) {
	d, _ := newTestDispatcher(t)
	for _, m := range []string{"A", "B", "C"} {
		d.Add(model.Content{Kind: model.KindInfo, Message: m})
	}

	opts := d.Options()
	opts.MaxVisible = 1
	d.Apply(opts)
	assert.Equal(t, []string{"C"}, messages(d.List()))
}

func TestIDCollisionRegenerates(t *testing.T) {
	ids := &sequenceIDs{ids: []string{"dup", "dup", "dup", "fresh"}}
	d, _ := newTestDispatcher(t, WithIDSource(ids))

	a := d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	b := d.Add(model.Content{Kind: model.KindInfo, Message: "B"})

	assert.Equal(t, "dup", a)
	assert.Equal(t, "fresh", b)
	assert.Equal(t, []string{"A", "B"}, messages(d.List()))
}

func TestIDSourceExhaustedFallsBack(t *testing.T) {
	ids := &sequenceIDs{ids: []string{"x"}}
	d, _ := newTestDispatcher(t, WithIDSource(ids))

	seen := make(map[string]bool)
	for i := range 5 {
		id := d.Add(model.Content{Kind: model.KindInfo, Message: fmt.Sprint(i)})
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Len(t, d.List(), 5)
}

func TestIDsUniqueUnderChurn(t *testing.T) {
	d, clock := newTestDispatcher(t)

	for i := range 200 {
		id := d.Add(model.Content{Kind: model.KindInfo, Message: fmt.Sprint(i)})
		if i%3 == 0 {
			d.Close(id)
		}
		if i%7 == 0 {
			d.Remove(id)
		}
		clock.Advance(50 * time.Millisecond)

		seen := make(map[string]bool)
		for _, n := range d.List() {
			require.False(t, seen[n.ID], "duplicate id %s", n.ID)
			seen[n.ID] = true
		}
	}
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	d, _ := newTestDispatcher(t)
	r := &recorder{}
	unsubscribe := d.Subscribe(r.fn)

	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	unsubscribe()
	unsubscribe()
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})

	assert.Equal(t, 1, r.count())
}

func TestSubscribe_ReceivesCopies(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Subscribe(func(list []model.Notification) {
		for i := range list {
			list[i].Message = "mutated"
			if list[i].Action != nil {
				list[i].Action.Label = "mutated"
			}
		}
	})

	id := d.Add(model.Content{
		Kind:    model.KindInfo,
		Message: "original",
		Action:  &model.Action{Label: "Go"},
	})

	n, _ := d.Get(id)
	assert.Equal(t, "original", n.Message)
	assert.Equal(t, "Go", n.Action.Label)
}

func TestSubscribe_ReentrantAddIsDelivered(t *testing.T) {
	d, _ := newTestDispatcher(t)
	r := &recorder{}

	once := false
	d.Subscribe(func(list []model.Notification) {
		if !once {
			once = true
			d.Add(model.Content{Kind: model.KindInfo, Message: "follow-up"})
		}
	})
	d.Subscribe(r.fn)

	d.Add(model.Content{Kind: model.KindInfo, Message: "first"})

	require.Equal(t, 2, r.count())
	assert.Equal(t, []string{"first"}, messages(r.lists[0]))
	assert.Equal(t, []string{"first", "follow-up"}, messages(r.lists[1]))
}

func TestSubscribe_PanicDoesNotWedge(t *testing.T) {
	d, _ := newTestDispatcher(t)
	unsubscribe := d.Subscribe(func([]model.Notification) { panic("render failed") })

	assert.Panics(t, func() {
		d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	})
	unsubscribe()

	r := &recorder{}
	d.Subscribe(r.fn)
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})
	assert.Equal(t, 1, r.count())
	assert.Equal(t, []string{"A", "B"}, messages(d.List()))
}

func TestShutdown(t *testing.T) {
	d, clock := newTestDispatcher(t)
	d.Add(model.Content{Kind: model.KindInfo, Message: "A"})
	d.Add(model.Content{Kind: model.KindInfo, Message: "B"})

	r := &recorder{}
	d.Subscribe(r.fn)

	d.Shutdown()
	assert.Empty(t, d.List())
	assert.Equal(t, 0, clock.Pending())
	require.Equal(t, 1, r.count())
	assert.Empty(t, r.last())
}

func TestConcurrentAdds(t *testing.T) {
	wheel := schedule.NewWheel(nil)
	defer wheel.Stop()
	d := New(wheel)

	var delivered sync.Mutex
	maxSeen := 0
	d.Subscribe(func(list []model.Notification) {
		delivered.Lock()
		defer delivered.Unlock()
		maxSeen = max(maxSeen, len(list))
	})

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 25 {
				d.Add(model.Content{Kind: model.KindInfo, Message: fmt.Sprintf("%d-%d", g, i)})
			}
		}()
	}
	wg.Wait()

	list := d.List()
	assert.Len(t, list, 200)
	seen := make(map[string]bool)
	for _, n := range list {
		assert.False(t, seen[n.ID])
		seen[n.ID] = true
	}

	delivered.Lock()
	assert.Equal(t, 200, maxSeen)
	delivered.Unlock()

	d.Shutdown()
}
