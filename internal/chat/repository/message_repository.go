package repository

import (
	"context"
	"fmt"

	"chat_sync_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository per-room append-only message store
type MessageRepository interface {
	// InsertMessage 寫入一筆訊息; inserting the same id twice is a no-op
	InsertMessage(ctx context.Context, msg *domain.ChatMessage) error
	// FindLatest the newest limit messages of a room, newest first
	FindLatest(ctx context.Context, roomID string, limit int64) ([]domain.ChatMessage, error)
	// FindBefore messages strictly older than cursor in (created_at, _id) order, newest first
	FindBefore(ctx context.Context, roomID string, cursor domain.PageCursor, limit int64) ([]domain.ChatMessage, error)
	// FindUnread every message of the room addressed to uid that uid has not read
	FindUnread(ctx context.Context, roomID, uid string) ([]domain.ChatMessage, error)
	// MarkRead add uid to is_read_by of the given ids; returns the number of messages changed
	MarkRead(ctx context.Context, roomID, uid string, ids []string) (int64, error)
	// DeleteRoomMessages drop every message of a room
	DeleteRoomMessages(ctx context.Context, roomID string) error
}

type chatMessageRepository struct {
	coll *mongo.Collection
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	r := &chatMessageRepository{
		coll: db.Collection("chat_messages"),
	}
	_, _ = r.coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
	return r
}

func (r *chatMessageRepository) InsertMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.IsReadBy == nil {
		msg.IsReadBy = []string{}
	}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": msg.ID},
		bson.M{"$setOnInsert": msg},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *chatMessageRepository) FindLatest(ctx context.Context, roomID string, limit int64) ([]domain.ChatMessage, error) {
	return r.find(ctx, bson.M{"room_id": roomID}, limit)
}

func (r *chatMessageRepository) FindBefore(ctx context.Context, roomID string, cursor domain.PageCursor, limit int64) ([]domain.ChatMessage, error) {
	return r.find(ctx, bson.M{
		"room_id": roomID,
		"$or": bson.A{
			bson.M{"created_at": bson.M{"$lt": cursor.CreatedAt}},
			bson.M{"created_at": cursor.CreatedAt, "_id": bson.M{"$lt": cursor.ID}},
		},
	}, limit)
}

func (r *chatMessageRepository) find(ctx context.Context, filter bson.M, limit int64) ([]domain.ChatMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	messages := []domain.ChatMessage{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return messages, nil
}

func (r *chatMessageRepository) FindUnread(ctx context.Context, roomID, uid string) ([]domain.ChatMessage, error) {
	filter := bson.M{
		"room_id":     roomID,
		"receiver_id": uid,
		"is_read_by":  bson.M{"$ne": uid},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "created_at": 1})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	messages := []domain.ChatMessage{}
	if err := cur.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return messages, nil
}

func (r *chatMessageRepository) MarkRead(ctx context.Context, roomID, uid string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	// is_read_by $ne 讓重複標記不會被計入 modified
	filter := bson.M{
		"_id":        bson.M{"$in": ids},
		"room_id":    roomID,
		"is_read_by": bson.M{"$ne": uid},
	}
	update := bson.M{"$addToSet": bson.M{"is_read_by": uid}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *chatMessageRepository) DeleteRoomMessages(ctx context.Context, roomID string) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"room_id": roomID})
	return err
}
