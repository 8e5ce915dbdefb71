package app

import (
	"context"

	"chat_sync_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
)

// MockRoomRepository Mock RoomRepository
type MockRoomRepository struct {
	mock.Mock
}

// CreateRoom mock create room
func (m *MockRoomRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) (bool, error) {
	args := m.Called(ctx, room)
	return args.Bool(0), args.Error(1)
}

// FindByID mock find room by room id
func (m *MockRoomRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// ApplyMessage mock fan-out update
func (m *MockRoomRepository) ApplyMessage(ctx context.Context, evt domain.MessageCreatedEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

// DecrementUnread mock counter decrement
func (m *MockRoomRepository) DecrementUnread(ctx context.Context, roomID, uid string, n int64) error {
	args := m.Called(ctx, roomID, uid, n)
	return args.Error(0)
}

// ResetUnread mock conditional counter reset
func (m *MockRoomRepository) ResetUnread(ctx context.Context, roomID, uid string, observed int) (bool, error) {
	args := m.Called(ctx, roomID, uid, observed)
	return args.Bool(0), args.Error(1)
}

// HideRoom mock hide
func (m *MockRoomRepository) HideRoom(ctx context.Context, roomID, uid string) (*domain.ChatRoom, error) {
	args := m.Called(ctx, roomID, uid)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindVisibleTo mock inbox query
func (m *MockRoomRepository) FindVisibleTo(ctx context.Context, uid string) ([]domain.ChatRoom, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatRoom), args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteRoom mock delete
func (m *MockRoomRepository) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// InsertMessage mock insert msg
func (m *MockMessageRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindLatest mock newest page
func (m *MockMessageRepository) FindLatest(ctx context.Context, roomID string, limit int64) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindBefore mock older page
func (m *MockMessageRepository) FindBefore(ctx context.Context, roomID string, cursor domain.PageCursor, limit int64) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, cursor, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindUnread mock unread query
func (m *MockMessageRepository) FindUnread(ctx context.Context, roomID, uid string) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, uid)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ChatMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock read receipt
func (m *MockMessageRepository) MarkRead(ctx context.Context, roomID, uid string, ids []string) (int64, error) {
	args := m.Called(ctx, roomID, uid, ids)
	return args.Get(0).(int64), args.Error(1)
}

// DeleteRoomMessages mock delete
func (m *MockMessageRepository) DeleteRoomMessages(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

// MockRedisPubSub Mock PubSub
type MockRedisPubSub struct {
	mock.Mock
}

// Publish mock publisher
func (m *MockRedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(channel, message)
	return args.Error(0)
}

// Subscribe mock subscriber
func (m *MockRedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	args := m.Called(channel)
	return args.Error(0)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// PublishMessageCreated mock event
func (m *MockEventPublisher) PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}

// MockUserRepository Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

// FindProfile mock profile
func (m *MockUserRepository) FindProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	args := m.Called(uid)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPresence Mock PresenceReader
type MockPresence struct {
	mock.Mock
}

// ActiveRoom mock presence
func (m *MockPresence) ActiveRoom(ctx context.Context, uid string) (string, error) {
	args := m.Called(uid)
	return args.String(0), args.Error(1)
}

// MockLedger Mock FanoutLedger
type MockLedger struct {
	mock.Mock
}

// Claim mock claim
func (m *MockLedger) Claim(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(messageID)
	return args.Bool(0), args.Error(1)
}

// Release mock release
func (m *MockLedger) Release(ctx context.Context, messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

// MockNotifier Mock Notifier
type MockNotifier struct {
	mock.Mock
}

// Notify mock push
func (m *MockNotifier) Notify(ctx context.Context, n domain.PushNotification) error {
	args := m.Called(n)
	return args.Error(0)
}

// MockEventHandler Mock EventHandler
type MockEventHandler struct {
	mock.Mock
}

// Handle mock fan-out
func (m *MockEventHandler) Handle(ctx context.Context, evt domain.MessageCreatedEvent) error {
	args := m.Called(evt)
	return args.Error(0)
}

// MockMessageReader Mock kafka reader
type MockMessageReader struct {
	mock.Mock
}

// FetchMessage mock fetch
func (m *MockMessageReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	args := m.Called()
	return args.Get(0).(kafka.Message), args.Error(1)
}

// CommitMessages mock commit
func (m *MockMessageReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(len(msgs))
	return args.Error(0)
}

// MockDelivery Mock amqp delivery
type MockDelivery struct {
	mock.Mock
}

// Ack mock ack
func (m *MockDelivery) Ack(multiple bool) error {
	args := m.Called(multiple)
	return args.Error(0)
}

// Nack mock nack
func (m *MockDelivery) Nack(multiple, requeue bool) error {
	args := m.Called(multiple, requeue)
	return args.Error(0)
}
