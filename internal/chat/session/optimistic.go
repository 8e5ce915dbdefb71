package session

import (
	"sync"

	"chat_sync_service/internal/chat/domain"
)

// OptimisticBuffer messages shown before they exist in the store
type OptimisticBuffer struct {
	mu    sync.Mutex
	items []domain.ChatMessage
}

// Add append a local message
func (b *OptimisticBuffer) Add(m domain.ChatMessage) {
	b.mu.Lock()
	b.items = append(b.items, m)
	b.mu.Unlock()
}

// Items copy of the buffered messages
func (b *OptimisticBuffer) Items() []domain.ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.ChatMessage(nil), b.items...)
}

// Clear drop every buffered message
func (b *OptimisticBuffer) Clear() {
	b.mu.Lock()
	b.items = nil
	b.mu.Unlock()
}

// Len number of buffered messages
func (b *OptimisticBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
