package app

import (
	"context"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
)

// RoomListUseCase inbox of a viewer
type RoomListUseCase struct {
	roomRepo repository.RoomRepository
}

// NewRoomListUseCase init room list use case
func NewRoomListUseCase(r repository.RoomRepository) *RoomListUseCase {
	return &RoomListUseCase{roomRepo: r}
}

// Summaries rooms visible to uid, newest first, and the total unread count
func (uc *RoomListUseCase) Summaries(ctx context.Context, uid string) ([]domain.RoomSummary, int, error) {
	rooms, err := uc.roomRepo.FindVisibleTo(ctx, uid)
	if err != nil {
		return nil, 0, err
	}

	total := 0
	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		unread := r.UnreadFor(uid)
		total += unread
		out = append(out, domain.RoomSummary{
			RoomID:              r.ID,
			PeerID:              r.Peer(uid),
			PostID:              r.PostID,
			LastMessage:         r.LastMessage,
			LastMessageSenderID: r.LastMessageSenderID,
			Unread:              unread,
			UpdatedAt:           r.UpdatedAt,
		})
	}
	return out, total, nil
}
