package repository

import (
	"context"
	"encoding/json"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/pkg/database"

	"github.com/streadway/amqp"
)

// PushQueue hands notifications to the push consumer over RabbitMQ
type PushQueue interface {
	Enqueue(ctx context.Context, n domain.PushNotification) error
}

type rabbitPushQueue struct {
	rabbit    database.RabbitRepo
	queueName string
}

// NewRabbitPushQueue create PushQueue. The queue must already be declared.
func NewRabbitPushQueue(rabbit database.RabbitRepo, queueName string) PushQueue {
	return &rabbitPushQueue{rabbit: rabbit, queueName: queueName}
}

func (q *rabbitPushQueue) Enqueue(_ context.Context, n domain.PushNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return q.rabbit.Publish(
		"",          // 預設 exchange
		q.queueName, // queue 名稱
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
		},
	)
}
