package session

import (
	"testing"
	"time"

	"chat_sync_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func msgAt(id string, minute int) domain.ChatMessage {
	return domain.ChatMessage{
		ID:         id,
		SenderID:   "alice",
		ReceiverID: "bob",
		Body:       id,
		CreatedAt:  baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func TestMerge_Order(t *testing.T) {
	history := []domain.ChatMessage{msgAt("h1", 1), msgAt("h2", 2)}
	tail := []domain.ChatMessage{msgAt("t1", 3)}
	local := []domain.ChatMessage{msgAt("l1", 4)}

	merged := Merge(history, tail, local)
	assert.Equal(t, []string{"h1", "h2", "t1", "l1"}, []string{merged[0].ID, merged[1].ID, merged[2].ID, merged[3].ID})
}

func TestView_NewestFirstWithLocalFlag(t *testing.T) {
	history := []domain.ChatMessage{msgAt("h1", 1)}
	tail := []domain.ChatMessage{msgAt("t1", 2)}
	local := []domain.ChatMessage{msgAt("l1", 3)}

	view := View(history, tail, local, "alice")
	assert.Equal(t, []string{"l1", "t1", "h1"}, displayIDs(view))
	assert.True(t, view[0].Local)
	assert.False(t, view[1].Local)
	assert.True(t, view[1].Mine)
}

func TestView_Empty(t *testing.T) {
	assert.Empty(t, View(nil, nil, nil, "alice"))
}
