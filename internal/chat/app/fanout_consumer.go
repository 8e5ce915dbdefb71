package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventHandler handles one message-created event
type EventHandler interface {
	Handle(ctx context.Context, evt domain.MessageCreatedEvent) error
}

// MessageReader subset of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// FanoutConsumer 消費 message-created 事件並交給 fan-out
type FanoutConsumer struct {
	reader        MessageReader
	handler       EventHandler
	retryCount    int
	retryInterval time.Duration
}

// NewFanoutConsumer 建構 FanoutConsumer 實例
func NewFanoutConsumer(reader MessageReader, handler EventHandler, retryCount int, retryInterval time.Duration) *FanoutConsumer {
	if retryCount <= 0 {
		retryCount = 1
	}
	return &FanoutConsumer{
		reader:        reader,
		handler:       handler,
		retryCount:    retryCount,
		retryInterval: retryInterval,
	}
}

// StartConsumer 開始消費訊息, returns when ctx is cancelled or the reader fails
func (c *FanoutConsumer) StartConsumer(ctx context.Context) error {
	logger.Log.Info("fanout consumer started")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				logger.Log.Info("fanout consumer stopped")
				return nil
			}
			return err
		}

		c.process(ctx, m)

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			logger.Log.Error("commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// process 解析並處理一筆事件, retrying room update failures
func (c *FanoutConsumer) process(ctx context.Context, m kafka.Message) {
	var evt domain.MessageCreatedEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		logger.Log.Error("解析 message created 事件失敗", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}

	for attempt := 1; attempt <= c.retryCount; attempt++ {
		err := c.handler.Handle(ctx, evt)
		if err == nil {
			return
		}
		logger.Log.Warn("fanout failed",
			zap.String("message_id", evt.MessageID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == c.retryCount {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.retryInterval):
		}
	}
	logger.Log.Error("fanout dropped after retries", zap.String("message_id", evt.MessageID), zap.String("room_id", evt.RoomID))
}
