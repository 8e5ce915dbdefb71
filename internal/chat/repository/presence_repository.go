package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chat_sync_service/pkg/database"
)

// PresenceRepository which room a user currently has open on their device
type PresenceRepository interface {
	SetActiveRoom(ctx context.Context, uid, roomID string) error
	ClearActiveRoom(ctx context.Context, uid string) error
	// ActiveRoom returns "" when the user has no room open
	ActiveRoom(ctx context.Context, uid string) (string, error)
}

type presenceRepository struct {
	store database.RedisRepository[string]
	ttl   time.Duration
}

// NewPresenceRepository presence on redis. Entries expire after ttl so a
// dropped connection does not mute notifications forever.
func NewPresenceRepository(store database.RedisRepository[string], ttl time.Duration) PresenceRepository {
	return &presenceRepository{store: store, ttl: ttl}
}

func presenceKey(uid string) string {
	return fmt.Sprintf("chat:presence:%s", uid)
}

func (p *presenceRepository) SetActiveRoom(ctx context.Context, uid, roomID string) error {
	return p.store.Set(ctx, presenceKey(uid), roomID, p.ttl)
}

func (p *presenceRepository) ClearActiveRoom(ctx context.Context, uid string) error {
	return p.store.Del(ctx, presenceKey(uid))
}

func (p *presenceRepository) ActiveRoom(ctx context.Context, uid string) (string, error) {
	roomID, err := p.store.Get(ctx, presenceKey(uid))
	if errors.Is(err, database.ErrNil) {
		return "", nil
	}
	return roomID, err
}
