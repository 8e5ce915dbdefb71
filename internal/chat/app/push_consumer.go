package app

import (
	"context"
	"encoding/json"
	"time"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/logger"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PushConsumer 從 RabbitMQ 取出推播並送到 push gateway
type PushConsumer struct {
	rabbitChannel *amqp.Channel
	notifier      Notifier
	queueName     string
	retryDelay    time.Duration
}

// NewPushConsumer 建構 PushConsumer 實例
func NewPushConsumer(rabbitChannel *amqp.Channel, notifier Notifier, queueName string, retryDelay time.Duration) *PushConsumer {
	return &PushConsumer{
		rabbitChannel: rabbitChannel,
		notifier:      notifier,
		queueName:     queueName,
		retryDelay:    retryDelay,
	}
}

// StartConsumer 開始消費推播訊息
func (c *PushConsumer) StartConsumer(ctx context.Context) error {
	msgs, err := c.rabbitChannel.Consume(
		c.queueName,
		"",    // consumer tag，留空由系統分配
		false, // autoAck 為 false，使用手動確認
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		return err
	}

	logger.Log.Info("push consumer started", zap.String("queue", c.queueName))
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				logger.Log.Info("RabbitMQ 消費 channel 已關閉")
				return nil
			}
			c.handle(ctx, d)
		case <-ctx.Done():
			logger.Log.Info("push consumer stopped")
			return nil
		}
	}
}

// Delivery subset of amqp.Delivery used to settle a message
type Delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *PushConsumer) handle(ctx context.Context, d amqp.Delivery) {
	c.settle(ctx, d.Body, d.Redelivered, d)
}

// settle 處理一筆推播; malformed bodies are dropped, gateway failures are requeued once
func (c *PushConsumer) settle(ctx context.Context, body []byte, redelivered bool, d Delivery) {
	var n domain.PushNotification
	if err := json.Unmarshal(body, &n); err != nil {
		logger.Log.Error("解析推播訊息失敗", zap.Error(err))
		if err := d.Nack(false, false); err != nil {
			logger.Log.Error("Nack 訊息失敗", zap.Error(err))
		}
		return
	}

	if err := c.notifier.Notify(ctx, n); err != nil {
		logger.Log.Warn("push send failed", zap.String("url", n.URL), zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(c.retryDelay):
		}
		if err := d.Nack(false, !redelivered); err != nil {
			logger.Log.Error("Nack 訊息失敗", zap.Error(err))
		}
		return
	}

	if err := d.Ack(false); err != nil {
		logger.Log.Error("確認訊息失敗", zap.Error(err))
	}
}
