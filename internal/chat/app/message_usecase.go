package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	decrementAttempts = 3
	decrementBackoff  = 50 * time.Millisecond
)

// MessageUseCase 負責處理聊天訊息
type MessageUseCase struct {
	roomRepo repository.RoomRepository
	msgRepo  repository.MessageRepository
	pubSub   repository.PubSub
	events   repository.EventPublisher

	backoff time.Duration
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	pubSub repository.PubSub,
	events repository.EventPublisher,
) *MessageUseCase {
	return &MessageUseCase{
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		pubSub:   pubSub,
		events:   events,
		backoff:  decrementBackoff,
	}
}

// Send insert a message from msg.SenderID to the other participant
func (uc *MessageUseCase) Send(ctx context.Context, msg domain.OutgoingMessage) (*domain.ChatMessage, error) {
	if strings.TrimSpace(msg.Body) == "" && msg.ImageURL == "" {
		return nil, domain.ErrEmptyMessage
	}

	// 1. 檢查房間與身分
	room, err := uc.roomRepo.FindByID(ctx, msg.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(msg.SenderID) {
		return nil, domain.ErrNotParticipant
	}

	// 2. 建立訊息, sender 一開始就算已讀
	newMsg := &domain.ChatMessage{
		ID:         uuid.New().String(),
		RoomID:     msg.RoomID,
		Body:       msg.Body,
		SenderID:   msg.SenderID,
		ReceiverID: room.Peer(msg.SenderID),
		CreatedAt:  time.Now().UTC(),
		IsReadBy:   []string{msg.SenderID},
		ImageURL:   msg.ImageURL,
	}
	if err := uc.msgRepo.InsertMessage(ctx, newMsg); err != nil {
		return nil, err
	}

	uc.inserted(ctx, newMsg)
	return newMsg, nil
}

// PersistSystem store a system message that was shown locally before the room existed.
// created_at is stamped now so it orders after everything already in the room.
func (uc *MessageUseCase) PersistSystem(ctx context.Context, msg domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.SenderID = domain.SystemSender
	msg.ReceiverID = domain.SystemSender
	msg.CreatedAt = time.Now().UTC()
	msg.IsReadBy = []string{}

	if err := uc.msgRepo.InsertMessage(ctx, &msg); err != nil {
		return nil, err
	}

	uc.inserted(ctx, &msg)
	return &msg, nil
}

// inserted 通知房間內的 live tail, 並送出事件給 fan-out
func (uc *MessageUseCase) inserted(ctx context.Context, msg *domain.ChatMessage) {
	notice := domain.RoomChangeNotice{RoomID: msg.RoomID, MessageID: msg.ID, Kind: domain.ChangeInserted}
	if err := uc.pubSub.Publish(ctx, repository.RoomChannel(msg.RoomID), notice); err != nil {
		logger.Log.Error("publish room change", zap.String("room_id", msg.RoomID), zap.Error(err))
	}

	if err := uc.events.PublishMessageCreated(ctx, domain.NewMessageCreatedEvent(*msg)); err != nil {
		logger.Log.Error("publish message created",
			zap.String("room_id", msg.RoomID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
	}
}

// FindLatest newest messages of a room
func (uc *MessageUseCase) FindLatest(ctx context.Context, roomID string, limit int64) ([]domain.ChatMessage, error) {
	return uc.msgRepo.FindLatest(ctx, roomID, limit)
}

// FindBefore messages older than cursor
func (uc *MessageUseCase) FindBefore(ctx context.Context, roomID string, cursor domain.PageCursor, limit int64) ([]domain.ChatMessage, error) {
	return uc.msgRepo.FindBefore(ctx, roomID, cursor, limit)
}

// MarkAllRead mark every unread message of the room addressed to uid.
// When nothing is unread a counter left behind by an earlier failed decrement
// is put back to zero.
func (uc *MessageUseCase) MarkAllRead(ctx context.Context, roomID, uid string) (int64, error) {
	// the counter is read before the messages so a message arriving in between
	// changes it and the reset below does not match
	observed := 0
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	switch {
	case err == nil:
		observed = room.UnreadCount[domain.SanitizeUID(uid)]
	case !errors.Is(err, domain.ErrRoomNotFound):
		logger.Log.Warn("read unread counter", zap.String("room_id", roomID), zap.Error(err))
	}

	unread, err := uc.msgRepo.FindUnread(ctx, roomID, uid)
	if err != nil {
		return 0, err
	}
	if len(unread) == 0 {
		uc.resetUnread(ctx, roomID, uid, observed)
		return 0, nil
	}

	ids := make([]string, 0, len(unread))
	for _, m := range unread {
		ids = append(ids, m.ID)
	}
	return uc.MarkRead(ctx, roomID, uid, ids)
}

// MarkRead - 已讀. The room counter drops by the number of messages that actually changed.
func (uc *MessageUseCase) MarkRead(ctx context.Context, roomID, uid string, ids []string) (int64, error) {
	n, err := uc.msgRepo.MarkRead(ctx, roomID, uid, ids)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if err := uc.decrementUnread(ctx, roomID, uid, n); err != nil {
		return n, err
	}
	uc.publishRead(ctx, roomID)
	return n, nil
}

func (uc *MessageUseCase) decrementUnread(ctx context.Context, roomID, uid string, n int64) error {
	var err error
	for attempt := 1; attempt <= decrementAttempts; attempt++ {
		if err = uc.roomRepo.DecrementUnread(ctx, roomID, uid, n); err == nil {
			return nil
		}
		logger.Log.Warn("decrement unread failed",
			zap.String("room_id", roomID), zap.Int("attempt", attempt), zap.Error(err))
		if attempt == decrementAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (uc *MessageUseCase) resetUnread(ctx context.Context, roomID, uid string, observed int) {
	if observed <= 0 {
		return
	}
	reset, err := uc.roomRepo.ResetUnread(ctx, roomID, uid, observed)
	if err != nil {
		logger.Log.Warn("reset unread counter", zap.String("room_id", roomID), zap.Error(err))
		return
	}
	if reset {
		logger.Log.Info("unread counter repaired",
			zap.String("room_id", roomID), zap.String("uid", uid), zap.Int("was", observed))
		uc.publishRead(ctx, roomID)
	}
}

func (uc *MessageUseCase) publishRead(ctx context.Context, roomID string) {
	notice := domain.RoomChangeNotice{RoomID: roomID, Kind: domain.ChangeRead}
	if err := uc.pubSub.Publish(ctx, repository.RoomChannel(roomID), notice); err != nil {
		logger.Log.Error("publish room change", zap.String("room_id", roomID), zap.Error(err))
	}
}
