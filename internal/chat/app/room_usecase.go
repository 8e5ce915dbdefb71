package app

import (
	"context"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// RoomUseCase - 1對1 聊天室
type RoomUseCase struct {
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
}

// NewRoomUseCase init room use case
func NewRoomUseCase(r repository.RoomRepository, m repository.MessageRepository) *RoomUseCase {
	return &RoomUseCase{
		roomRepo: r,
		msgRepo:  m,
	}
}

// CreatePairRoom create the room of two participants, or return the existing one
func (uc *RoomUseCase) CreatePairRoom(ctx context.Context, pending domain.PendingRoom) (*domain.ChatRoom, error) {
	a, b := pending.Participants[0], pending.Participants[1]
	if a == "" || b == "" || a == b {
		return nil, domain.ErrInvalidPair
	}

	now := time.Now().UTC()
	room := &domain.ChatRoom{
		ID:           pending.RoomID(),
		Participants: []string{a, b},
		PostID:       pending.PostID,
		UnreadCount:  map[string]int{},
		VisibleTo:    []string{a, b},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := uc.roomRepo.CreateRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	if !created {
		return uc.roomRepo.FindByID(ctx, room.ID)
	}
	logger.Log.Info("room created", zap.String("room_id", room.ID), zap.String("post_id", room.PostID))
	return room, nil
}

// FindRoom room by id, uid must be a participant
func (uc *RoomUseCase) FindRoom(ctx context.Context, roomID, uid string) (*domain.ChatRoom, error) {
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(uid) {
		return nil, domain.ErrNotParticipant
	}
	return room, nil
}

// HideRoom remove the room from uid's inbox. Once nobody sees the room any
// more it is deleted together with its messages.
func (uc *RoomUseCase) HideRoom(ctx context.Context, roomID, uid string) error {
	if _, err := uc.FindRoom(ctx, roomID, uid); err != nil {
		return err
	}

	room, err := uc.roomRepo.HideRoom(ctx, roomID, uid)
	if err != nil {
		return err
	}
	if len(room.VisibleTo) > 0 {
		return nil
	}

	if err := uc.msgRepo.DeleteRoomMessages(ctx, roomID); err != nil {
		return err
	}
	if err := uc.roomRepo.DeleteRoom(ctx, roomID); err != nil {
		return err
	}
	logger.Log.Info("room deleted", zap.String("room_id", roomID))
	return nil
}
