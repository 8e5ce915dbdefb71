package session

import (
	"context"
	"sync"
	"sync/atomic"

	"chat_sync_service/internal/chat/domain"
)

// HistoryPager loads pages older than the live window on request
type HistoryPager struct {
	source   MessageSource
	pageSize int64
	inFlight atomic.Bool

	mu         sync.Mutex
	gen        uint64
	roomID     string
	older      []domain.ChatMessage
	tailCursor domain.PageCursor
	hasMore    bool
}

// NewHistoryPager create HistoryPager
func NewHistoryPager(source MessageSource, pageSize int64) *HistoryPager {
	return &HistoryPager{
		source:   source,
		pageSize: pageSize,
	}
}

// Reset forget everything loaded for the previous room
func (p *HistoryPager) Reset(roomID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.roomID = roomID
	p.older = nil
	p.tailCursor = domain.PageCursor{}
	p.hasMore = roomID != ""
}

// SetTailCursor cursor of the live window, used while no history is loaded
func (p *HistoryPager) SetTailCursor(c domain.PageCursor) {
	p.mu.Lock()
	p.tailCursor = c
	p.mu.Unlock()
}

// Spill appends the messages that slid out of the live window between prev
// and next, keeping history and window contiguous without overlap.
func (p *HistoryPager) Spill(prev, next []domain.ChatMessage) {
	if len(prev) == 0 || len(next) == 0 {
		return
	}
	inNext := make(map[string]struct{}, len(next))
	for _, m := range next {
		inNext[m.ID] = struct{}{}
	}
	first := domain.CursorOf(next[0])

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range prev {
		if _, ok := inNext[m.ID]; ok {
			continue
		}
		if !m.Before(first) {
			continue
		}
		p.older = append(p.older, m)
	}
}

// LoadOlder fetch one page before the cursor and prepend it.
// Returns (0, nil) when another load is running, history is exhausted, or
// nothing has been loaded yet to page from.
func (p *HistoryPager) LoadOlder(ctx context.Context) (int, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer p.inFlight.Store(false)

	p.mu.Lock()
	cursor := p.cursorLocked()
	if !p.hasMore || p.roomID == "" || cursor.IsZero() {
		p.mu.Unlock()
		return 0, nil
	}
	gen, roomID := p.gen, p.roomID
	p.mu.Unlock()

	page, err := p.source.FindBefore(ctx, roomID, cursor, p.pageSize)
	if err != nil {
		return 0, err
	}
	reverse(page)

	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != p.gen {
		return 0, nil
	}
	p.older = append(page, p.older...)
	if int64(len(page)) < p.pageSize {
		p.hasMore = false
	}
	return len(page), nil
}

// Loading reports whether a page request is outstanding
func (p *HistoryPager) Loading() bool {
	return p.inFlight.Load()
}

// HasMore false once a short page came back
func (p *HistoryPager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasMore
}

// Older copy of the loaded history, oldest first
func (p *HistoryPager) Older() []domain.ChatMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.ChatMessage(nil), p.older...)
}

// Cursor position of the oldest loaded message
func (p *HistoryPager) Cursor() domain.PageCursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursorLocked()
}

func (p *HistoryPager) cursorLocked() domain.PageCursor {
	if len(p.older) > 0 {
		return domain.CursorOf(p.older[0])
	}
	return p.tailCursor
}
