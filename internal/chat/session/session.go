package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChangeFunc receives the full view of the open room after every change
type ChangeFunc func(roomID string, view []domain.DisplayMessage)

// OpenOptions first contact details, only set when the room does not exist yet
type OpenOptions struct {
	Pending *domain.PendingRoom
	// SystemBody JSON payload of the system message shown before the room exists
	SystemBody string
}

// RoomSession one viewer's synchronized view of the room they have open.
// A websocket connection owns exactly one session.
type RoomSession struct {
	ctx        context.Context
	viewer     string
	deps       Deps
	onChange   ChangeFunc
	tail       *LiveTail
	pager      *HistoryPager
	reconciler *ReadReconciler

	mu      sync.Mutex
	roomID  string
	tailGen uint64
	window  []domain.ChatMessage
	contact *firstContact
	paused  bool

	sendMu sync.Mutex
}

// firstContact state of one opened room. Open replaces it, so a Send that
// started before a room switch keeps writing to the room it captured.
type firstContact struct {
	roomID  string
	pending *domain.PendingRoom
	buffer  *OptimisticBuffer
	// phase guarded by RoomSession.mu
	phase domain.FirstContactPhase
}

func newFirstContact(roomID string, pending *domain.PendingRoom) *firstContact {
	c := &firstContact{
		roomID:  roomID,
		pending: pending,
		buffer:  &OptimisticBuffer{},
		phase:   domain.PhaseMessageSent,
	}
	if pending != nil {
		c.phase = domain.PhaseNotStarted
	}
	return c
}

// NewRoomSession create RoomSession. ctx bounds every subscription the session opens.
func NewRoomSession(ctx context.Context, viewer string, deps Deps, onChange ChangeFunc) *RoomSession {
	s := &RoomSession{
		ctx:        ctx,
		viewer:     viewer,
		deps:       deps,
		onChange:   onChange,
		pager:      NewHistoryPager(deps.Source, deps.PageSize),
		reconciler: NewReadReconciler(deps.Marker, viewer),
		contact:    newFirstContact("", nil),
	}
	s.tail = NewLiveTail(deps.Source, deps.Watcher, deps.WindowSize, s.handleWindow)
	return s
}

// Open switch the session to roomID. Windows and pages still in flight for the
// previous room are discarded; a Send in flight finishes in the room it started in.
func (s *RoomSession) Open(ctx context.Context, roomID string, opts OpenOptions) {
	s.mu.Lock()
	s.roomID = roomID
	s.window = nil
	s.paused = false
	s.contact = newFirstContact(roomID, opts.Pending)
	if opts.Pending != nil && opts.SystemBody != "" {
		s.contact.buffer.Add(domain.ChatMessage{
			ID:         uuid.New().String(),
			RoomID:     roomID,
			Body:       opts.SystemBody,
			SenderID:   domain.SystemSender,
			ReceiverID: domain.SystemSender,
			CreatedAt:  time.Now(),
		})
	}
	s.pager.Reset(roomID)
	s.reconciler.Enter(roomID)
	s.tailGen = s.tail.Start(s.ctx, roomID)
	s.mu.Unlock()

	if err := s.deps.Presence.SetActiveRoom(ctx, s.viewer, roomID); err != nil {
		logger.Log.Warn("set presence failed", zap.String("uid", s.viewer), zap.Error(err))
	}
	s.notify()
}

// Leave close the open room
func (s *RoomSession) Leave(ctx context.Context) {
	s.mu.Lock()
	if s.roomID == "" {
		s.mu.Unlock()
		return
	}
	s.tail.Stop()
	s.tailGen = 0
	s.roomID = ""
	s.window = nil
	s.paused = false
	s.contact = newFirstContact("", nil)
	s.pager.Reset("")
	s.reconciler.Leave()
	s.mu.Unlock()

	if err := s.deps.Presence.ClearActiveRoom(ctx, s.viewer); err != nil {
		logger.Log.Warn("clear presence failed", zap.String("uid", s.viewer), zap.Error(err))
	}
}

// Pause the viewer put the app in the background; the subscription stays
func (s *RoomSession) Pause(ctx context.Context) {
	s.mu.Lock()
	if s.roomID == "" {
		s.mu.Unlock()
		return
	}
	s.paused = true
	s.mu.Unlock()

	s.reconciler.Pause()
	if err := s.deps.Presence.ClearActiveRoom(ctx, s.viewer); err != nil {
		logger.Log.Warn("clear presence failed", zap.String("uid", s.viewer), zap.Error(err))
	}
}

// Resume the viewer is back on the open room
func (s *RoomSession) Resume(ctx context.Context) {
	s.mu.Lock()
	roomID := s.roomID
	s.paused = false
	s.mu.Unlock()
	if roomID == "" {
		return
	}
	if err := s.deps.Presence.SetActiveRoom(ctx, s.viewer, roomID); err != nil {
		logger.Log.Warn("set presence failed", zap.String("uid", s.viewer), zap.Error(err))
	}
	s.reconciler.Resume(ctx)
}

// RefreshPresence re-announce the open room before the presence entry expires.
// Nothing is written while no room is open or the session is paused.
func (s *RoomSession) RefreshPresence(ctx context.Context) error {
	s.mu.Lock()
	roomID, paused := s.roomID, s.paused
	s.mu.Unlock()
	if roomID == "" || paused {
		return nil
	}
	return s.deps.Presence.SetActiveRoom(ctx, s.viewer, roomID)
}

// LoadOlder page in history; the view is pushed when something was added
func (s *RoomSession) LoadOlder(ctx context.Context) (int, error) {
	if s.RoomID() == "" {
		return 0, domain.ErrNoActiveRoom
	}
	n, err := s.pager.LoadOlder(ctx)
	if err != nil {
		logger.Log.Error("load older failed", zap.String("room_id", s.RoomID()), zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.notify()
	}
	return n, nil
}

// Send a message to the open room. On first contact the room and the pending
// system message are persisted first, each exactly once.
func (s *RoomSession) Send(ctx context.Context, body, imageURL string) (*domain.ChatMessage, error) {
	if strings.TrimSpace(body) == "" && imageURL == "" {
		return nil, domain.ErrEmptyMessage
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	c := s.contact
	phase := c.phase
	s.mu.Unlock()
	if c.roomID == "" {
		return nil, domain.ErrNoActiveRoom
	}

	// every write below targets c even if the viewer switched rooms meanwhile
	if c.pending != nil && phase == domain.PhaseNotStarted {
		if _, err := s.deps.Rooms.CreatePairRoom(ctx, *c.pending); err != nil {
			return nil, err
		}
		phase = s.advance(c, domain.PhaseRoomCreated)
	}
	if c.pending != nil && phase == domain.PhaseRoomCreated {
		for _, m := range c.buffer.Items() {
			m.RoomID = c.roomID
			if _, err := s.deps.Sender.PersistSystem(ctx, m); err != nil {
				return nil, err
			}
		}
		c.buffer.Clear()
		s.advance(c, domain.PhaseMessageSent)
		s.notify()
	}

	return s.deps.Sender.Send(ctx, domain.OutgoingMessage{
		RoomID:   c.roomID,
		SenderID: s.viewer,
		Body:     body,
		ImageURL: imageURL,
	})
}

func (s *RoomSession) advance(c *firstContact, phase domain.FirstContactPhase) domain.FirstContactPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.phase = phase
	return phase
}

// Phase first contact progress of the open room
func (s *RoomSession) Phase() domain.FirstContactPhase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contact.phase
}

// RoomID room currently open, "" when none
func (s *RoomSession) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// ReadState read receipt state of the open room
func (s *RoomSession) ReadState() domain.ReadSyncState {
	return s.reconciler.State()
}

// HasMore whether older history may exist
func (s *RoomSession) HasMore() bool {
	return s.pager.HasMore()
}

// Loading whether the live window of the open room has not arrived yet
func (s *RoomSession) Loading() bool {
	return s.tail.IsLoading()
}

// View newest first
func (s *RoomSession) View() []domain.DisplayMessage {
	s.mu.Lock()
	window, buffer := s.window, s.contact.buffer
	s.mu.Unlock()
	return View(s.pager.Older(), window, buffer.Items(), s.viewer)
}

// Close release the session
func (s *RoomSession) Close(ctx context.Context) {
	s.Leave(ctx)
}

func (s *RoomSession) handleWindow(gen uint64, roomID string, window []domain.ChatMessage) {
	s.mu.Lock()
	if gen != s.tailGen {
		s.mu.Unlock()
		return
	}
	s.pager.Spill(s.window, window)
	s.window = window
	if len(window) > 0 {
		s.pager.SetTailCursor(domain.CursorOf(window[0]))
	}
	s.mu.Unlock()

	s.reconciler.OnWindow(s.ctx, roomID, window)
	s.notify()
}

func (s *RoomSession) notify() {
	if s.onChange == nil {
		return
	}
	roomID := s.RoomID()
	if roomID == "" {
		return
	}
	s.onChange(roomID, s.View())
}
