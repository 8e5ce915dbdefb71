package session

import (
	"context"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// WindowFunc receives every window the live tail emits, oldest message first.
// gen identifies the subscription that produced it.
type WindowFunc func(gen uint64, roomID string, window []domain.ChatMessage)

// LiveTail keeps the newest windowSize messages of one room up to date
type LiveTail struct {
	source     MessageSource
	watcher    RoomWatcher
	windowSize int64
	emit       WindowFunc

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	roomID  string
	window  []domain.ChatMessage
	cursor  domain.PageCursor
	loading bool
}

// NewLiveTail create LiveTail
func NewLiveTail(source MessageSource, watcher RoomWatcher, windowSize int64, emit WindowFunc) *LiveTail {
	return &LiveTail{
		source:     source,
		watcher:    watcher,
		windowSize: windowSize,
		emit:       emit,
	}
}

// Start tears down the previous subscription and follows roomID instead.
// The returned generation tags every emission of the new subscription.
func (t *LiveTail) Start(ctx context.Context, roomID string) uint64 {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	gen := t.gen
	subCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.roomID = roomID
	t.window = nil
	t.cursor = domain.PageCursor{}
	t.loading = true
	t.mu.Unlock()

	go t.run(subCtx, gen, roomID)
	return gen
}

// Stop cancel the current subscription; results still in flight are dropped
func (t *LiveTail) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
	t.roomID = ""
	t.window = nil
	t.cursor = domain.PageCursor{}
	t.loading = false
}

func (t *LiveTail) run(ctx context.Context, gen uint64, roomID string) {
	changed := make(chan struct{}, 1)
	err := t.watcher.WatchRoom(ctx, roomID, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.Error("live tail subscribe failed", zap.String("room_id", roomID), zap.Error(err))
		}
		t.stopLoading(gen)
		return
	}

	t.refresh(ctx, gen, roomID)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			t.refresh(ctx, gen, roomID)
		}
	}
}

func (t *LiveTail) refresh(ctx context.Context, gen uint64, roomID string) {
	msgs, err := t.source.FindLatest(ctx, roomID, t.windowSize)
	if err != nil {
		if ctx.Err() == nil {
			logger.Log.Error("live tail fetch failed", zap.String("room_id", roomID), zap.Error(err))
		}
		t.stopLoading(gen)
		return
	}
	reverse(msgs)

	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	t.window = msgs
	if len(msgs) > 0 {
		t.cursor = domain.CursorOf(msgs[0])
	}
	t.loading = false
	t.mu.Unlock()

	t.emit(gen, roomID, msgs)
}

func (t *LiveTail) stopLoading(gen uint64) {
	t.mu.Lock()
	if gen == t.gen {
		t.loading = false
	}
	t.mu.Unlock()
}

// IsLoading true from Start until the first window (or failure) of that subscription
func (t *LiveTail) IsLoading() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loading
}

// Window copy of the current window, oldest first
func (t *LiveTail) Window() []domain.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.ChatMessage(nil), t.window...)
}

// Cursor position of the oldest message in the window, zero when empty
func (t *LiveTail) Cursor() domain.PageCursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// RoomID room currently followed
func (t *LiveTail) RoomID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roomID
}

func reverse(msgs []domain.ChatMessage) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
