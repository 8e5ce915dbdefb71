package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	viewer = "alice"
	peer   = "bob"
	roomAB = "alice_bob"
)

type recorder struct {
	mu    sync.Mutex
	views []recorded
}

type recorded struct {
	roomID string
	view   []domain.DisplayMessage
}

func (r *recorder) onChange(roomID string, view []domain.DisplayMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, recorded{roomID: roomID, view: view})
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.views...)
}

func newTestSession(t *testing.T, store *memoryStore, window, page int64) (*RoomSession, *recorder) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	rec := &recorder{}
	return NewRoomSession(ctx, viewer, store.deps(window, page), rec.onChange), rec
}

func waitViewLen(t *testing.T, s *RoomSession, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(s.View()) == n }, time.Second, 5*time.Millisecond)
}

func TestRoomSession_WindowNewestFirst(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 5)
	s, _ := newTestSession(t, store, 3, 3)

	s.Open(context.Background(), roomAB, OpenOptions{})
	waitViewLen(t, s, 3)

	view := s.View()
	assert.True(t, isNewestFirst(view))
	assert.Equal(t, "msg-4", view[0].Body)
	assert.Equal(t, "msg-2", view[2].Body)
	assert.False(t, s.Loading())
	assert.Equal(t, roomAB, store.activeRoom(viewer))
}

func TestRoomSession_PaginationTerminates(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 7)
	s, _ := newTestSession(t, store, 3, 3)

	s.Open(context.Background(), roomAB, OpenOptions{})
	waitViewLen(t, s, 3)

	n, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, s.HasMore())

	n, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, s.HasMore())

	n, err = s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	view := s.View()
	require.Len(t, view, 7)
	assert.True(t, isNewestFirst(view))
	seen := map[string]bool{}
	for _, id := range displayIDs(view) {
		assert.False(t, seen[id], "duplicate %s", id)
		seen[id] = true
	}
}

func TestRoomSession_NoConcurrentPagination(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 10)
	s, _ := newTestSession(t, store, 3, 3)

	s.Open(context.Background(), roomAB, OpenOptions{})
	waitViewLen(t, s, 3)

	gate := make(chan struct{})
	store.beforeGate = gate

	done := make(chan int)
	go func() {
		n, _ := s.LoadOlder(context.Background())
		done <- n
	}()
	require.Eventually(t, func() bool { return s.pager.Loading() }, time.Second, time.Millisecond)

	n, err := s.LoadOlder(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	close(gate)
	assert.Equal(t, 3, <-done)
	assert.EqualValues(t, 1, store.pageCalls())
	assert.Len(t, s.View(), 6)
}

func TestRoomSession_BulkThenIncremental(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 5)
	s, _ := newTestSession(t, store, 10, 10)

	s.Open(context.Background(), roomAB, OpenOptions{})
	require.Eventually(t, func() bool { return s.ReadState() == domain.ReadSynced }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 1, store.bulkCalls())
	assert.Empty(t, store.markReads())

	m := store.insert(roomAB, peer, viewer, "new")
	require.Eventually(t, func() bool { return len(store.markReads()) == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{m.ID}, store.markReads()[0])
	assert.EqualValues(t, 1, store.bulkCalls())
}

func TestRoomSession_BulkFailureRetriedOnNextWindow(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 2)
	store.markAllErrs = []error{errors.New("mongo down")}
	s, _ := newTestSession(t, store, 10, 10)

	s.Open(context.Background(), roomAB, OpenOptions{})
	waitViewLen(t, s, 2)
	require.Eventually(t, func() bool { return store.bulkCalls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.ReadUnsynced, s.ReadState())

	store.insert(roomAB, peer, viewer, "again")
	require.Eventually(t, func() bool { return s.ReadState() == domain.ReadSynced }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 2, store.bulkCalls())
	assert.Empty(t, store.markReads())
}

func TestRoomSession_PausedWindowsAreNotMarked(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 1)
	s, _ := newTestSession(t, store, 10, 10)

	s.Open(context.Background(), roomAB, OpenOptions{})
	require.Eventually(t, func() bool { return s.ReadState() == domain.ReadSynced }, time.Second, 5*time.Millisecond)

	s.Pause(context.Background())
	assert.Equal(t, "", store.activeRoom(viewer))

	store.insert(roomAB, peer, viewer, "while away")
	waitViewLen(t, s, 2)
	assert.Empty(t, store.markReads())

	s.Resume(context.Background())
	assert.Equal(t, roomAB, store.activeRoom(viewer))
	assert.EqualValues(t, 1, store.bulkCalls())
}

func TestRoomSession_FirstContactOnce(t *testing.T) {
	store := newMemoryStore()
	s, _ := newTestSession(t, store, 10, 10)
	pending := &domain.PendingRoom{Participants: [2]string{viewer, peer}, PostID: "p1"}

	s.Open(context.Background(), pending.RoomID(), OpenOptions{
		Pending:    pending,
		SystemBody: `{"type":"post_inquiry","postId":"p1"}`,
	})
	view := s.View()
	require.Len(t, view, 1)
	assert.True(t, view[0].Local)
	assert.Equal(t, domain.KindSystem, view[0].Kind)
	assert.Equal(t, domain.PhaseNotStarted, s.Phase())

	_, err := s.Send(context.Background(), "hello", "")
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseMessageSent, s.Phase())

	_, err = s.Send(context.Background(), "again", "")
	require.NoError(t, err)

	created, persisted, sent := store.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, persisted)
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, s.contact.buffer.Len())

	waitViewLen(t, s, 3)
	for _, d := range s.View() {
		assert.False(t, d.Local)
	}
}

func TestRoomSession_ConcurrentFirstSends(t *testing.T) {
	store := newMemoryStore()
	s, _ := newTestSession(t, store, 10, 10)
	pending := &domain.PendingRoom{Participants: [2]string{viewer, peer}}
	s.Open(context.Background(), pending.RoomID(), OpenOptions{Pending: pending, SystemBody: `{"type":"x"}`})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Send(context.Background(), "hi", "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	created, persisted, sent := store.counts()
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, persisted)
	assert.Equal(t, 2, sent)
}

func TestRoomSession_SendValidation(t *testing.T) {
	store := newMemoryStore()
	s, _ := newTestSession(t, store, 10, 10)

	_, err := s.Send(context.Background(), "hi", "")
	assert.ErrorIs(t, err, domain.ErrNoActiveRoom)

	s.Open(context.Background(), roomAB, OpenOptions{})
	_, err = s.Send(context.Background(), "   ", "")
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	_, err = s.Send(context.Background(), "", "https://cdn/x.png")
	assert.NoError(t, err)
}

func TestRoomSession_RoomSwitchDropsStaleWindow(t *testing.T) {
	store := newMemoryStore()
	store.seed("room_a", peer, viewer, 2)
	store.seed("room_b", peer, viewer, 3)
	gate := store.gateLatest("room_a")
	s, rec := newTestSession(t, store, 10, 10)

	s.Open(context.Background(), "room_a", OpenOptions{})
	s.Open(context.Background(), "room_b", OpenOptions{})
	waitViewLen(t, s, 3)

	close(gate)
	time.Sleep(50 * time.Millisecond)

	for _, r := range rec.all() {
		for _, d := range r.view {
			assert.NotContains(t, d.ID, "room_a", "stale window of room_a was delivered")
		}
	}
	assert.Equal(t, "room_b", s.RoomID())
	assert.Len(t, s.View(), 3)
}

func TestRoomSession_SlidingWindowSpillsIntoHistory(t *testing.T) {
	store := newMemoryStore()
	store.seed(roomAB, peer, viewer, 3)
	s, _ := newTestSession(t, store, 3, 3)

	s.Open(context.Background(), roomAB, OpenOptions{})
	waitViewLen(t, s, 3)

	store.insert(roomAB, peer, viewer, "n1")
	store.insert(roomAB, peer, viewer, "n2")
	waitViewLen(t, s, 5)

	view := s.View()
	assert.True(t, isNewestFirst(view))
	assert.Equal(t, "n2", view[0].Body)
	assert.Len(t, s.pager.Older(), 2)

	n, err := s.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, s.HasMore())
	assert.Len(t, s.View(), 5)
}

func TestRoomSession_LeaveClearsPresence(t *testing.T) {
	store := newMemoryStore()
	s, _ := newTestSession(t, store, 10, 10)

	s.Open(context.Background(), roomAB, OpenOptions{})
	assert.Equal(t, roomAB, store.activeRoom(viewer))

	s.Leave(context.Background())
	assert.Equal(t, "", store.activeRoom(viewer))
	assert.Equal(t, "", s.RoomID())

	_, err := s.LoadOlder(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveRoom)
}

func TestRoomSession_SendFinishesFirstContactAfterRoomSwitch(t *testing.T) {
	store := newMemoryStore()
	store.createGate = make(chan struct{})
	s, _ := newTestSession(t, store, 10, 10)

	first := &domain.PendingRoom{Participants: [2]string{viewer, peer}}
	second := &domain.PendingRoom{Participants: [2]string{viewer, "carol"}}
	s.Open(context.Background(), first.RoomID(), OpenOptions{Pending: first, SystemBody: `{"type":"first"}`})

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "hi", "")
		done <- err
	}()
	require.Eventually(t, func() bool {
		created, _, _ := store.counts()
		return created == 1
	}, time.Second, 5*time.Millisecond)

	s.Open(context.Background(), second.RoomID(), OpenOptions{Pending: second, SystemBody: `{"type":"second"}`})
	close(store.createGate)
	require.NoError(t, <-done)

	assert.Equal(t, []string{first.RoomID()}, store.persistedRooms())
	_, _, sent := store.counts()
	assert.Equal(t, 1, sent)

	assert.Equal(t, second.RoomID(), s.RoomID())
	assert.Equal(t, domain.PhaseNotStarted, s.Phase())
	assert.Equal(t, 1, s.contact.buffer.Len())
	view := s.View()
	require.Len(t, view, 1)
	assert.Equal(t, `{"type":"second"}`, view[0].Body)
	assert.True(t, view[0].Local)
}

func TestRoomSession_RefreshPresence(t *testing.T) {
	store := newMemoryStore()
	s, _ := newTestSession(t, store, 10, 10)

	require.NoError(t, s.RefreshPresence(context.Background()))
	assert.Equal(t, "", store.activeRoom(viewer))

	s.Open(context.Background(), roomAB, OpenOptions{})
	// the presence entry expired in the store
	require.NoError(t, store.ClearActiveRoom(context.Background(), viewer))
	require.NoError(t, s.RefreshPresence(context.Background()))
	assert.Equal(t, roomAB, store.activeRoom(viewer))

	s.Pause(context.Background())
	require.NoError(t, s.RefreshPresence(context.Background()))
	assert.Equal(t, "", store.activeRoom(viewer))

	s.Resume(context.Background())
	require.NoError(t, store.ClearActiveRoom(context.Background(), viewer))
	require.NoError(t, s.RefreshPresence(context.Background()))
	assert.Equal(t, roomAB, store.activeRoom(viewer))
}

func TestRoomSession_PaginationAcrossSameInstant(t *testing.T) {
	store := newMemoryStore()
	store.seedSameInstant(roomAB, peer, viewer, 7)
	s, _ := newTestSession(t, store, 3, 2)

	s.Open(context.Background(), roomAB, OpenOptions{})
	waitViewLen(t, s, 3)

	for s.HasMore() {
		_, err := s.LoadOlder(context.Background())
		require.NoError(t, err)
	}

	view := s.View()
	require.Len(t, view, 7)
	seen := map[string]bool{}
	for _, d := range view {
		assert.False(t, seen[d.ID], "duplicate %s", d.ID)
		seen[d.ID] = true
	}
	assert.Equal(t, "burst-6", view[0].Body)
	assert.Equal(t, "burst-0", view[6].Body)
}
