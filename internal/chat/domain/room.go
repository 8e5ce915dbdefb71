package domain

import (
	"sort"
	"strings"
	"time"

	"chat_sync_service/pkg"
)

// ChatRoom one document per unordered participant pair
type ChatRoom struct {
	ID                  string         `bson:"_id" json:"id"`
	Participants        []string       `bson:"participants" json:"participants"`
	PostID              string         `bson:"post_id,omitempty" json:"post_id,omitempty"`
	LastMessage         string         `bson:"last_message" json:"last_message"`
	LastMessageSenderID string         `bson:"last_message_sender_id" json:"last_message_sender_id"`
	UnreadCount         map[string]int `bson:"unread_count" json:"unread_count"`
	UpdatedAt           time.Time      `bson:"updated_at" json:"updated_at"`
	VisibleTo           []string       `bson:"visible_to" json:"visible_to"`
	CreatedAt           time.Time      `bson:"created_at" json:"created_at"`
}

// UnreadFor read the counter of uid, keyed by its sanitized form
func (r ChatRoom) UnreadFor(uid string) int {
	n := r.UnreadCount[SanitizeUID(uid)]
	if n < 0 {
		return 0
	}
	return n
}

// Peer return the other participant
func (r ChatRoom) Peer(uid string) string {
	for _, p := range r.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// HasParticipant check uid is part of the room
func (r ChatRoom) HasParticipant(uid string) bool {
	return pkg.Contains(r.Participants, uid)
}

// IsVisibleTo the room is in uid's inbox
func (r ChatRoom) IsVisibleTo(uid string) bool {
	return pkg.Contains(r.VisibleTo, uid)
}

// SanitizeUID strips '.' so the uid can be used as a key inside unread_count.
// A dot would otherwise be read as a nested field path. Every writer and reader
// of unread_count goes through this function.
func SanitizeUID(uid string) string {
	return strings.ReplaceAll(uid, ".", "")
}

// UnreadField is the document field path of uid's counter
func UnreadField(uid string) string {
	return "unread_count." + SanitizeUID(uid)
}

// PairRoomID deterministic room id of two participants
func PairRoomID(uidA, uidB string) string {
	pair := []string{uidA, uidB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// PendingRoom describes a room that the viewer is about to start from a post
type PendingRoom struct {
	Participants [2]string `json:"participants"`
	PostID       string    `json:"post_id,omitempty"`
}

// RoomID id the room will have once created
func (p PendingRoom) RoomID() string {
	return PairRoomID(p.Participants[0], p.Participants[1])
}

// RoomSummary one inbox row for a viewer
type RoomSummary struct {
	RoomID              string    `json:"room_id"`
	PeerID              string    `json:"peer_id"`
	PostID              string    `json:"post_id,omitempty"`
	LastMessage         string    `json:"last_message"`
	LastMessageSenderID string    `json:"last_message_sender_id"`
	Unread              int       `json:"unread"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// UserProfile the fields of a user document the fan-out needs
type UserProfile struct {
	ID        string `bson:"_id"`
	Nickname  string `bson:"nickname"`
	PushToken string `bson:"push_token"`
}

// PushNotification a notification for one device token
type PushNotification struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}
