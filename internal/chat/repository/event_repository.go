package repository

import (
	"context"
	"encoding/json"

	"chat_sync_service/internal/chat/domain"

	"github.com/segmentio/kafka-go"
)

// EventPublisher emits message-created events for the fan-out worker
type EventPublisher interface {
	PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error
}

// KafkaWriter subset of *kafka.Writer used here
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaEventPublisher struct {
	writer KafkaWriter
}

// NewKafkaEventPublisher create EventPublisher on a kafka writer
func NewKafkaEventPublisher(w KafkaWriter) EventPublisher {
	return &kafkaEventPublisher{writer: w}
}

// PublishMessageCreated keyed by room id so events of one room stay ordered on one partition
func (p *kafkaEventPublisher) PublishMessageCreated(ctx context.Context, evt domain.MessageCreatedEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.RoomID),
		Value: data,
	})
}
