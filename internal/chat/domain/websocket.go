package domain

import "encoding/json"

// Action websocket request action
type Action string

const (
	// EnterRoom websocket action enter_room (room focus)
	EnterRoom Action = "enter_room"
	// LeaveRoom websocket action leave_room (room closed)
	LeaveRoom Action = "leave_room"
	// PauseRoom websocket action pause_room (app went to background)
	PauseRoom Action = "pause_room"
	// ResumeRoom websocket action resume_room (foreground again)
	ResumeRoom Action = "resume_room"
	// LoadOlder websocket action load_older
	LoadOlder Action = "load_older"
	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// HideRoom websocket action hide_room (leave the conversation)
	HideRoom Action = "hide_room"
	// GetUnread websocket action get_unread
	GetUnread Action = "get_unread"

	// NotifyMessages server push of the current message view
	NotifyMessages Action = "messages"
	// NotifyRoomUpdated server push after a fan-out touched one of the viewer's rooms
	NotifyRoomUpdated Action = "room_updated"
)

// WSRequest websocket Request
type WSRequest struct {
	Action        string          `json:"action"`
	RoomID        string          `json:"room_id"`
	PeerID        string          `json:"peer_id"`
	PostID        string          `json:"post_id"`
	Content       string          `json:"content"`
	ImageURL      string          `json:"image_url"`
	SystemMessage json.RawMessage `json:"system_message,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// RoomChangeNotice published on a room channel whenever a message of the room changed
type RoomChangeNotice struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id,omitempty"`
	Kind      string `json:"kind"`
}

const (
	// ChangeInserted a message was added to the room
	ChangeInserted = "inserted"
	// ChangeRead read receipts of the room changed
	ChangeRead = "read"
)

// RoomUpdatedNotice published on a user channel by the fan-out
type RoomUpdatedNotice struct {
	RoomID      string `json:"room_id"`
	LastMessage string `json:"last_message"`
	SenderID    string `json:"sender_id"`
}
