package app

import (
	"context"

	"chat_sync_service/internal/chat/domain"
	"chat_sync_service/internal/chat/repository"
	"chat_sync_service/pkg/push"
)

// GatewayNotifier sends straight to the push gateway
type GatewayNotifier struct {
	gateway *push.Gateway
}

// NewGatewayNotifier create GatewayNotifier
func NewGatewayNotifier(g *push.Gateway) *GatewayNotifier {
	return &GatewayNotifier{gateway: g}
}

// Notify send one push
func (n *GatewayNotifier) Notify(ctx context.Context, p domain.PushNotification) error {
	return n.gateway.Send(ctx, push.Message{
		To:    p.To,
		Title: p.Title,
		Body:  p.Body,
		Data:  map[string]string{"url": p.URL},
		Sound: "default",
	})
}

// QueueNotifier hands pushes to the RabbitMQ push queue
type QueueNotifier struct {
	queue repository.PushQueue
}

// NewQueueNotifier create QueueNotifier
func NewQueueNotifier(q repository.PushQueue) *QueueNotifier {
	return &QueueNotifier{queue: q}
}

// Notify enqueue one push
func (n *QueueNotifier) Notify(ctx context.Context, p domain.PushNotification) error {
	return n.queue.Enqueue(ctx, p)
}
