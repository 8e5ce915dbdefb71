package domain

import (
	"encoding/json"
	"time"
)

// MessageKind display variant of a message, decided once when the message is read in
type MessageKind string

const (
	// KindPlain text message
	KindPlain MessageKind = "plain"
	// KindImage message with an image url
	KindImage MessageKind = "image"
	// KindSystem system event, e.g. the post was closed
	KindSystem MessageKind = "system"
	// KindReview review request / review result
	KindReview MessageKind = "review"
)

// SystemPayload body of a system message, JSON encoded in ChatMessage.Body
type SystemPayload struct {
	Type    string   `json:"type"`
	PostID  string   `json:"postId,omitempty"`
	Title   string   `json:"title,omitempty"`
	Text    string   `json:"text,omitempty"`
	Action  string   `json:"action,omitempty"`
	Targets []string `json:"targets,omitempty"`
}

// ReviewPayload body of a review message
type ReviewPayload struct {
	ReviewID   string `json:"reviewId,omitempty"`
	PostID     string `json:"postId,omitempty"`
	ReviewerID string `json:"reviewerId,omitempty"`
	Rating     int    `json:"rating,omitempty"`
	Content    string `json:"content,omitempty"`
}

// DisplayMessage render-ready message
type DisplayMessage struct {
	ID         string         `json:"id"`
	Kind       MessageKind    `json:"kind"`
	Body       string         `json:"body,omitempty"`
	ImageURL   string         `json:"image_url,omitempty"`
	SenderID   string         `json:"sender_id"`
	ReceiverID string         `json:"receiver_id"`
	CreatedAt  time.Time      `json:"created_at"`
	Mine       bool           `json:"mine"`
	Received   bool           `json:"received"`
	ShowRead   bool           `json:"show_read"`
	Local      bool           `json:"local,omitempty"`
	System     *SystemPayload `json:"system,omitempty"`
	Review     *ReviewPayload `json:"review,omitempty"`
}

// Classify turns a stored message into its display variant for viewer.
// A synthetic body that is not valid JSON yields a nil payload, never an error.
func Classify(m ChatMessage, viewer string) DisplayMessage {
	d := DisplayMessage{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		CreatedAt:  m.CreatedAt,
		Mine:       m.SenderID == viewer,
		Received:   m.IsReadByUser(m.ReceiverID),
	}
	d.ShowRead = d.Mine

	switch {
	case m.SenderID == SystemSender && m.ReceiverID == SystemSender:
		d.Kind = KindSystem
		var p SystemPayload
		if err := json.Unmarshal([]byte(m.Body), &p); err == nil {
			d.System = &p
		}
	case m.SenderID == ReviewSender && m.ReceiverID == ReviewSender:
		d.Kind = KindReview
		var p ReviewPayload
		if err := json.Unmarshal([]byte(m.Body), &p); err == nil {
			d.Review = &p
		}
	case m.ImageURL != "":
		d.Kind = KindImage
		d.ImageURL = m.ImageURL
		d.Body = m.Body
	default:
		d.Kind = KindPlain
		d.Body = m.Body
	}
	return d
}
