package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"chat_sync_service/internal/chat/domain"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// memoryStore in-memory stand-in for every session dependency
type memoryStore struct {
	mu       sync.Mutex
	msgs     map[string][]domain.ChatMessage
	watchers map[string]map[int]func()
	nextID   int

	latestGate map[string]chan struct{}
	beforeGate chan struct{}
	createGate chan struct{}

	beforeCalls  int32
	markAllCalls int32
	markAllErrs  []error
	markReadIDs  [][]string

	created   []domain.PendingRoom
	persisted []domain.ChatMessage
	sent      []domain.OutgoingMessage
	presence  map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		msgs:       map[string][]domain.ChatMessage{},
		watchers:   map[string]map[int]func(){},
		latestGate: map[string]chan struct{}{},
		presence:   map[string]string{},
	}
}

func (s *memoryStore) deps(window, page int64) Deps {
	return Deps{
		Source:     s,
		Watcher:    s,
		Marker:     s,
		Sender:     s,
		Rooms:      s,
		Presence:   s,
		WindowSize: window,
		PageSize:   page,
	}
}

// seed n messages from sender to receiver, one minute apart, without notifying
func (s *memoryStore) seed(roomID, sender, receiver string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.appendLocked(roomID, sender, receiver, fmt.Sprintf("msg-%d", i))
	}
}

func (s *memoryStore) appendLocked(roomID, sender, receiver, body string) domain.ChatMessage {
	s.nextID++
	m := domain.ChatMessage{
		ID:         fmt.Sprintf("%s-%03d", roomID, s.nextID),
		RoomID:     roomID,
		Body:       body,
		SenderID:   sender,
		ReceiverID: receiver,
		CreatedAt:  baseTime.Add(time.Duration(s.nextID) * time.Minute),
		IsReadBy:   []string{sender},
	}
	s.msgs[roomID] = append(s.msgs[roomID], m)
	return m
}

// insert a message and notify the room watchers
func (s *memoryStore) insert(roomID, sender, receiver, body string) domain.ChatMessage {
	s.mu.Lock()
	m := s.appendLocked(roomID, sender, receiver, body)
	s.mu.Unlock()
	s.notify(roomID)
	return m
}

func (s *memoryStore) notify(roomID string) {
	s.mu.Lock()
	var fns []func()
	for _, fn := range s.watchers[roomID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *memoryStore) gateLatest(roomID string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.latestGate[roomID] = ch
	return ch
}

func (s *memoryStore) FindLatest(ctx context.Context, roomID string, limit int64) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	gate := s.latestGate[roomID]
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.msgs[roomID]
	var out []domain.ChatMessage
	for i := len(all) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		out = append(out, copyMessage(all[i]))
	}
	return out, nil
}

func (s *memoryStore) FindBefore(ctx context.Context, roomID string, cursor domain.PageCursor, limit int64) ([]domain.ChatMessage, error) {
	atomic.AddInt32(&s.beforeCalls, 1)
	if s.beforeGate != nil {
		<-s.beforeGate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.msgs[roomID]
	var out []domain.ChatMessage
	for i := len(all) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if all[i].Before(cursor) {
			out = append(out, copyMessage(all[i]))
		}
	}
	return out, nil
}

func (s *memoryStore) WatchRoom(ctx context.Context, roomID string, onChange func()) error {
	s.mu.Lock()
	s.nextID++
	key := s.nextID
	if s.watchers[roomID] == nil {
		s.watchers[roomID] = map[int]func(){}
	}
	s.watchers[roomID][key] = onChange
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[roomID], key)
		s.mu.Unlock()
	}()
	return nil
}

func (s *memoryStore) MarkAllRead(ctx context.Context, roomID, uid string) (int64, error) {
	n := atomic.AddInt32(&s.markAllCalls, 1)
	s.mu.Lock()
	if int(n) <= len(s.markAllErrs) && s.markAllErrs[n-1] != nil {
		s.mu.Unlock()
		return 0, s.markAllErrs[n-1]
	}
	var ids []string
	for _, m := range s.msgs[roomID] {
		if m.ReceiverID == uid && !m.IsReadByUser(uid) {
			ids = append(ids, m.ID)
		}
	}
	s.mu.Unlock()
	return s.markLocked(roomID, uid, ids), nil
}

func (s *memoryStore) MarkRead(ctx context.Context, roomID, uid string, ids []string) (int64, error) {
	s.mu.Lock()
	s.markReadIDs = append(s.markReadIDs, append([]string(nil), ids...))
	s.mu.Unlock()
	return s.markLocked(roomID, uid, ids), nil
}

func (s *memoryStore) markLocked(roomID, uid string, ids []string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var n int64
	for i, m := range s.msgs[roomID] {
		if want[m.ID] && !m.IsReadByUser(uid) {
			s.msgs[roomID][i].IsReadBy = append(s.msgs[roomID][i].IsReadBy, uid)
			n++
		}
	}
	return n
}

func (s *memoryStore) Send(ctx context.Context, msg domain.OutgoingMessage) (*domain.ChatMessage, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	m := s.insert(msg.RoomID, msg.SenderID, "peer", msg.Body)
	return &m, nil
}

func (s *memoryStore) PersistSystem(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	s.mu.Lock()
	s.persisted = append(s.persisted, msg)
	s.mu.Unlock()
	m := s.insert(msg.RoomID, domain.SystemSender, domain.SystemSender, msg.Body)
	return &m, nil
}

func (s *memoryStore) CreatePairRoom(ctx context.Context, pending domain.PendingRoom) (*domain.ChatRoom, error) {
	s.mu.Lock()
	s.created = append(s.created, pending)
	gate := s.createGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return &domain.ChatRoom{ID: pending.RoomID(), Participants: pending.Participants[:]}, nil
}

func (s *memoryStore) SetActiveRoom(ctx context.Context, uid, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presence[uid] = roomID
	return nil
}

func (s *memoryStore) ClearActiveRoom(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.presence, uid)
	return nil
}

// seedSameInstant n messages sharing one created_at, ids ascending
func (s *memoryStore) seedSameInstant(roomID, sender, receiver string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := baseTime.Add(time.Hour)
	for i := 0; i < n; i++ {
		s.appendLocked(roomID, sender, receiver, fmt.Sprintf("burst-%d", i))
		s.msgs[roomID][len(s.msgs[roomID])-1].CreatedAt = at
	}
}

func (s *memoryStore) persistedRooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rooms := make([]string, len(s.persisted))
	for i, m := range s.persisted {
		rooms[i] = m.RoomID
	}
	return rooms
}

func (s *memoryStore) activeRoom(uid string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence[uid]
}

func (s *memoryStore) counts() (created, persisted, sent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created), len(s.persisted), len(s.sent)
}

func (s *memoryStore) markReads() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.markReadIDs...)
}

func copyMessage(m domain.ChatMessage) domain.ChatMessage {
	m.IsReadBy = append([]string(nil), m.IsReadBy...)
	return m
}

func displayIDs(view []domain.DisplayMessage) []string {
	ids := make([]string, len(view))
	for i, d := range view {
		ids[i] = d.ID
	}
	return ids
}

func isNewestFirst(view []domain.DisplayMessage) bool {
	return sort.SliceIsSorted(view, func(i, j int) bool {
		return view[i].CreatedAt.After(view[j].CreatedAt)
	})
}

func (s *memoryStore) bulkCalls() int32 {
	return atomic.LoadInt32(&s.markAllCalls)
}

func (s *memoryStore) pageCalls() int32 {
	return atomic.LoadInt32(&s.beforeCalls)
}
