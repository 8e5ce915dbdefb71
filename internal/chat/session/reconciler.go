package session

import (
	"context"
	"sync"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"go.uber.org/zap"
)

// ReadReconciler marks what the viewer has seen as read.
// The first non-empty window after entering a room clears the whole backlog in
// one bulk call; later windows only mark their unread delta.
type ReadReconciler struct {
	marker ReadMarker
	viewer string

	mu     sync.Mutex
	gen    uint64
	roomID string
	state  domain.ReadSyncState
	paused bool
}

// NewReadReconciler create ReadReconciler
func NewReadReconciler(marker ReadMarker, viewer string) *ReadReconciler {
	return &ReadReconciler{marker: marker, viewer: viewer}
}

// Enter a new room mount starts unsynced
func (r *ReadReconciler) Enter(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.roomID = roomID
	r.state = domain.ReadUnsynced
	r.paused = false
}

// Leave stop reconciling
func (r *ReadReconciler) Leave() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.roomID = ""
	r.state = domain.ReadUnsynced
}

// Pause ignore windows while the viewer is not looking
func (r *ReadReconciler) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

// Resume runs the bulk sync again if it has not succeeded yet
func (r *ReadReconciler) Resume(ctx context.Context) {
	r.mu.Lock()
	r.paused = false
	roomID, gen, state := r.roomID, r.gen, r.state
	r.mu.Unlock()

	if roomID == "" || state == domain.ReadSynced {
		return
	}
	r.bulk(ctx, roomID, gen)
}

// State current sync state
func (r *ReadReconciler) State() domain.ReadSyncState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// OnWindow handle one live tail emission of roomID
func (r *ReadReconciler) OnWindow(ctx context.Context, roomID string, window []domain.ChatMessage) {
	if len(window) == 0 {
		return
	}
	r.mu.Lock()
	if roomID != r.roomID || r.paused {
		r.mu.Unlock()
		return
	}
	gen, state := r.gen, r.state
	r.mu.Unlock()

	if state == domain.ReadUnsynced {
		r.bulk(ctx, roomID, gen)
		return
	}

	ids := r.unreadDelta(window)
	if len(ids) == 0 {
		return
	}
	if _, err := r.marker.MarkRead(ctx, roomID, r.viewer, ids); err != nil {
		logger.Log.Warn("mark read failed",
			zap.String("room_id", roomID),
			zap.String("uid", r.viewer),
			zap.Int("count", len(ids)),
			zap.Error(err),
		)
	}
}

func (r *ReadReconciler) bulk(ctx context.Context, roomID string, gen uint64) {
	n, err := r.marker.MarkAllRead(ctx, roomID, r.viewer)
	if err != nil {
		logger.Log.Warn("bulk mark read failed, retry on next window",
			zap.String("room_id", roomID),
			zap.String("uid", r.viewer),
			zap.Error(err),
		)
		return
	}
	logger.Log.Debug("bulk mark read", zap.String("room_id", roomID), zap.Int64("modified", n))

	r.mu.Lock()
	if gen == r.gen {
		r.state = domain.ReadSynced
	}
	r.mu.Unlock()
}

// unreadDelta ids addressed to the viewer that the viewer has not read
func (r *ReadReconciler) unreadDelta(window []domain.ChatMessage) []string {
	var ids []string
	for _, m := range window {
		if m.ReceiverID == r.viewer && !m.IsReadByUser(r.viewer) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
