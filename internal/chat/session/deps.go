package session

import (
	"context"

	"chat_sync_service/internal/chat/domain"
)

// MessageSource reads pages of a room, newest first
type MessageSource interface {
	FindLatest(ctx context.Context, roomID string, limit int64) ([]domain.ChatMessage, error)
	FindBefore(ctx context.Context, roomID string, cursor domain.PageCursor, limit int64) ([]domain.ChatMessage, error)
}

// RoomWatcher calls onChange whenever something was written to the room.
// WatchRoom returns after the watch is established and stops when ctx is done.
type RoomWatcher interface {
	WatchRoom(ctx context.Context, roomID string, onChange func()) error
}

// ReadMarker read receipt writes; both return the number of messages that changed
type ReadMarker interface {
	MarkAllRead(ctx context.Context, roomID, uid string) (int64, error)
	MarkRead(ctx context.Context, roomID, uid string, ids []string) (int64, error)
}

// MessageSender persists outgoing messages
type MessageSender interface {
	Send(ctx context.Context, msg domain.OutgoingMessage) (*domain.ChatMessage, error)
	PersistSystem(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error)
}

// RoomCreator creates the room of a first contact
type RoomCreator interface {
	CreatePairRoom(ctx context.Context, pending domain.PendingRoom) (*domain.ChatRoom, error)
}

// PresenceSignal tells the fan-out which room the viewer is looking at
type PresenceSignal interface {
	SetActiveRoom(ctx context.Context, uid, roomID string) error
	ClearActiveRoom(ctx context.Context, uid string) error
}

// Deps everything a RoomSession talks to
type Deps struct {
	Source   MessageSource
	Watcher  RoomWatcher
	Marker   ReadMarker
	Sender   MessageSender
	Rooms    RoomCreator
	Presence PresenceSignal

	WindowSize int64
	PageSize   int64
}
