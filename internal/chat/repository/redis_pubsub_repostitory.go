package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"chat_sync_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RoomChannel change channel of one room, every insert into the room publishes here
func RoomChannel(roomID string) string {
	return fmt.Sprintf("chat:room:%s", roomID)
}

// UserChannel per-user channel, the fan-out publishes room updates here
func UserChannel(uid string) string {
	return fmt.Sprintf("chat:user:%s", uid)
}

// PubSub definition pub/sub
type PubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe returns once the subscription is confirmed; handler runs on a
	// single goroutine until ctx is cancelled.
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client redis.UniversalClient
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client redis.UniversalClient) *RedisPubSub {
	return &RedisPubSub{
		client: client,
	}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Debug("sub close", zap.String("channel", channel))
				return
			}
		}
	}()
	return nil
}
