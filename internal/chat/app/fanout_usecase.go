package app

import (
	"context"
	"errors"
	"strings"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

const (
	// DefaultPushTitle title when the sender has no nickname
	DefaultPushTitle = "New message"
	// DefaultBodyLimit push body cap in runes
	DefaultBodyLimit = 100
)

// Notifier delivers a push notification, best effort
type Notifier interface {
	Notify(ctx context.Context, n domain.PushNotification) error
}

// PresenceReader which room a user has open
type PresenceReader interface {
	ActiveRoom(ctx context.Context, uid string) (string, error)
}

// FanoutSettings push content setting
type FanoutSettings struct {
	DeepLinkBase string
	BodyLimit    int
}

// RoomFanoutService applies a created message to its room document and notifies the receiver
type RoomFanoutService struct {
	roomRepo repository.RoomRepository
	users    repository.UserRepository
	presence PresenceReader
	ledger   repository.FanoutLedger
	pubSub   repository.PubSub
	notifier Notifier
	settings FanoutSettings
}

// NewRoomFanoutService create RoomFanoutService
func NewRoomFanoutService(
	roomRepo repository.RoomRepository,
	users repository.UserRepository,
	presence PresenceReader,
	ledger repository.FanoutLedger,
	pubSub repository.PubSub,
	notifier Notifier,
	settings FanoutSettings,
) *RoomFanoutService {
	if settings.BodyLimit <= 0 {
		settings.BodyLimit = DefaultBodyLimit
	}
	return &RoomFanoutService{
		roomRepo: roomRepo,
		users:    users,
		presence: presence,
		ledger:   ledger,
		pubSub:   pubSub,
		notifier: notifier,
		settings: settings,
	}
}

// ShouldFanout synthetic and incomplete messages never touch the room
func ShouldFanout(evt domain.MessageCreatedEvent) bool {
	if evt.SenderID == "" || evt.ReceiverID == "" {
		return false
	}
	if domain.IsSyntheticUser(evt.SenderID) || domain.IsSyntheticUser(evt.ReceiverID) {
		return false
	}
	return strings.TrimSpace(evt.Body) != "" || evt.ImageURL != ""
}

// Handle one message-created event. A returned error means the room update did
// not happen and the event should be delivered again.
func (s *RoomFanoutService) Handle(ctx context.Context, evt domain.MessageCreatedEvent) error {
	if !ShouldFanout(evt) {
		logger.Log.Debug("fanout skipped", zap.String("message_id", evt.MessageID))
		return nil
	}

	claimed, err := s.ledger.Claim(ctx, evt.MessageID)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Log.Info("fanout duplicate", zap.String("message_id", evt.MessageID))
		return nil
	}

	if err := s.roomRepo.ApplyMessage(ctx, evt); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			logger.Log.Warn("fanout room gone", zap.String("room_id", evt.RoomID), zap.String("message_id", evt.MessageID))
			return nil
		}
		if rErr := s.ledger.Release(ctx, evt.MessageID); rErr != nil {
			logger.Log.Error("fanout release claim", zap.String("message_id", evt.MessageID), zap.Error(rErr))
		}
		return err
	}

	notice := domain.RoomUpdatedNotice{RoomID: evt.RoomID, LastMessage: evt.Preview(), SenderID: evt.SenderID}
	for _, uid := range []string{evt.SenderID, evt.ReceiverID} {
		if err := s.pubSub.Publish(ctx, repository.UserChannel(uid), notice); err != nil {
			logger.Log.Warn("publish room updated", zap.String("uid", uid), zap.Error(err))
		}
	}

	if err := s.notify(ctx, evt); err != nil {
		logger.Log.Warn("push notification failed",
			zap.String("room_id", evt.RoomID),
			zap.String("receiver_id", evt.ReceiverID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *RoomFanoutService) notify(ctx context.Context, evt domain.MessageCreatedEvent) error {
	receiver, err := s.users.FindProfile(ctx, evt.ReceiverID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if receiver.PushToken == "" {
		return nil
	}

	active, err := s.presence.ActiveRoom(ctx, evt.ReceiverID)
	if err != nil {
		logger.Log.Warn("read presence", zap.String("uid", evt.ReceiverID), zap.Error(err))
	}
	if active == evt.RoomID {
		logger.Log.Debug("push suppressed, receiver in room", zap.String("room_id", evt.RoomID))
		return nil
	}

	return s.notifier.Notify(ctx, s.BuildNotification(ctx, evt, receiver.PushToken))
}

// BuildNotification push content of evt for the given device token
func (s *RoomFanoutService) BuildNotification(ctx context.Context, evt domain.MessageCreatedEvent, token string) domain.PushNotification {
	title := DefaultPushTitle
	if sender, err := s.users.FindProfile(ctx, evt.SenderID); err == nil && sender.Nickname != "" {
		title = sender.Nickname
	}
	return domain.PushNotification{
		To:    token,
		Title: title,
		Body:  domain.Truncate(evt.Preview(), s.settings.BodyLimit),
		URL:   s.settings.DeepLinkBase + evt.RoomID,
	}
}
