package domain

import (
	"time"
	"unicode/utf8"

	"chat_sync_service/pkg"
)

const (
	// SystemSender sentinel sender/receiver of system event messages
	SystemSender = "system"
	// ReviewSender sentinel sender/receiver of review messages
	ReviewSender = "review"
)

// ChatMessage 表示一則聊天訊息. Immutable after insert except IsReadBy,
// which only grows.
type ChatMessage struct {
	ID         string    `bson:"_id" json:"id"`
	RoomID     string    `bson:"room_id" json:"room_id"`
	Body       string    `bson:"body" json:"body"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	ReceiverID string    `bson:"receiver_id" json:"receiver_id"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	IsReadBy   []string  `bson:"is_read_by" json:"is_read_by"`
	ImageURL   string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// IsReadByUser reports whether uid has read the message
func (m ChatMessage) IsReadByUser(uid string) bool {
	return pkg.Contains(m.IsReadBy, uid)
}

// Before reports whether m sorts strictly before c in (created_at, _id) order
func (m ChatMessage) Before(c PageCursor) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID < c.ID
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

// PageCursor position of a message in a room's history. Messages written in the
// same millisecond share created_at, so the id breaks the tie.
type PageCursor struct {
	CreatedAt time.Time
	ID        string
}

// CursorOf cursor pointing at m
func CursorOf(m ChatMessage) PageCursor {
	return PageCursor{CreatedAt: m.CreatedAt, ID: m.ID}
}

// IsZero no position yet
func (c PageCursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID == ""
}

// IsSynthetic reports whether the message was written on behalf of a sentinel sender
func (m ChatMessage) IsSynthetic() bool {
	return IsSyntheticUser(m.SenderID) || IsSyntheticUser(m.ReceiverID)
}

// IsSyntheticUser check uid is one of the sentinel senders
func IsSyntheticUser(uid string) bool {
	return uid == SystemSender || uid == ReviewSender
}

// OutgoingMessage a message a viewer asks to send
type OutgoingMessage struct {
	RoomID   string
	SenderID string
	Body     string
	ImageURL string
}

// MessageCreatedEvent is published once per inserted message and drives the fan-out.
type MessageCreatedEvent struct {
	MessageID  string    `json:"message_id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Body       string    `json:"body"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewMessageCreatedEvent build the event for an inserted message
func NewMessageCreatedEvent(m ChatMessage) MessageCreatedEvent {
	return MessageCreatedEvent{
		MessageID:  m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		ImageURL:   m.ImageURL,
		CreatedAt:  m.CreatedAt,
	}
}

// Preview is the text stored as the room's last message
func (e MessageCreatedEvent) Preview() string {
	if e.Body == "" && e.ImageURL != "" {
		return ImagePreview
	}
	return e.Body
}

// ImagePreview last message text of an image-only message
const ImagePreview = "[image]"

// Truncate cuts s to at most limit runes, appending an ellipsis when it was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit]) + "..."
}
