package repository

import (
	"context"
	"fmt"
	"time"

	"chat_sync_service/pkg/database"
)

// FanoutLedger remembers which message events were already applied to their room
type FanoutLedger interface {
	// Claim returns false when messageID was claimed before
	Claim(ctx context.Context, messageID string) (bool, error)
	// Release forget a claim so a redelivered event is applied again
	Release(ctx context.Context, messageID string) error
}

type redisFanoutLedger struct {
	store database.RedisRepository[int64]
	ttl   time.Duration
}

// NewRedisFanoutLedger ledger on redis SETNX
func NewRedisFanoutLedger(store database.RedisRepository[int64], ttl time.Duration) FanoutLedger {
	return &redisFanoutLedger{store: store, ttl: ttl}
}

func ledgerKey(messageID string) string {
	return fmt.Sprintf("fanout:msg:%s", messageID)
}

func (l *redisFanoutLedger) Claim(ctx context.Context, messageID string) (bool, error) {
	return l.store.SetNX(ctx, ledgerKey(messageID), time.Now().Unix(), l.ttl)
}

func (l *redisFanoutLedger) Release(ctx context.Context, messageID string) error {
	return l.store.Del(ctx, ledgerKey(messageID))
}
