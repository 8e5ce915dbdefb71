package app

import (
	"context"

	"chat_sync_service/internal/chat/repository"
)

// RoomWatcher live tail trigger on the room pub/sub channel
type RoomWatcher struct {
	pubSub repository.PubSub
}

// NewRoomWatcher create RoomWatcher
func NewRoomWatcher(pubSub repository.PubSub) *RoomWatcher {
	return &RoomWatcher{pubSub: pubSub}
}

// WatchRoom every notice on the room channel triggers onChange
func (w *RoomWatcher) WatchRoom(ctx context.Context, roomID string, onChange func()) error {
	return w.pubSub.Subscribe(ctx, repository.RoomChannel(roomID), func([]byte) {
		onChange()
	})
}
