package session

import "chat_sync_service/internal/chat/domain"

// Merge history, live window and locally buffered messages, oldest first.
// The three inputs are expected to be disjoint; nothing is deduplicated here.
func Merge(history, tail, local []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history)+len(tail)+len(local))
	out = append(out, history...)
	out = append(out, tail...)
	return append(out, local...)
}

// View merged messages as the viewer sees them, newest first
func View(history, tail, local []domain.ChatMessage, viewer string) []domain.DisplayMessage {
	merged := Merge(history, tail, local)
	firstLocal := len(history) + len(tail)

	out := make([]domain.DisplayMessage, len(merged))
	for i, m := range merged {
		d := domain.Classify(m, viewer)
		d.Local = i >= firstLocal
		out[len(merged)-1-i] = d
	}
	return out
}
