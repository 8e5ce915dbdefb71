package repository

import (
	"context"
	"errors"
	"fmt"

	"chat_sync_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRepository definition chat room.
// Counters and visible_to are only ever changed with $inc / $addToSet / $pull,
// never by writing the whole document back.
type RoomRepository interface {
	// CreateRoom insert the room if it does not exist; created reports whether this call inserted it
	CreateRoom(ctx context.Context, room *domain.ChatRoom) (created bool, err error)
	FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error)
	// ApplyMessage update summary fields, bump the receiver counter and revive the room for the receiver
	ApplyMessage(ctx context.Context, evt domain.MessageCreatedEvent) error
	// DecrementUnread lower uid's counter by n. The stored value may dip below
	// zero while an increment is still in flight; readers clamp it.
	DecrementUnread(ctx context.Context, roomID, uid string, n int64) error
	// ResetUnread set uid's counter to zero only if it still holds observed.
	// Reports whether the write happened.
	ResetUnread(ctx context.Context, roomID, uid string, observed int) (bool, error)
	// HideRoom remove uid from visible_to and return the room afterwards
	HideRoom(ctx context.Context, roomID, uid string) (*domain.ChatRoom, error)
	FindVisibleTo(ctx context.Context, uid string) ([]domain.ChatRoom, error)
	DeleteRoom(ctx context.Context, roomID string) error
}

type chatRepository struct {
	roomsColl *mongo.Collection
}

// NewMongoChatRepository create new mongo chat room repository
func NewMongoChatRepository(db *mongo.Database) RoomRepository {
	r := &chatRepository{
		roomsColl: db.Collection("chat_rooms"),
	}
	_, _ = r.roomsColl.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "visible_to", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	return r
}

// CreateRoom create room
func (r *chatRepository) CreateRoom(ctx context.Context, room *domain.ChatRoom) (bool, error) {
	if room.UnreadCount == nil {
		room.UnreadCount = map[string]int{}
	}
	if room.VisibleTo == nil {
		room.VisibleTo = []string{}
	}
	res, err := r.roomsColl.UpdateOne(ctx,
		bson.M{"_id": room.ID},
		bson.M{"$setOnInsert": room},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

// FindByID find room by id
func (r *chatRepository) FindByID(ctx context.Context, roomID string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.roomsColl.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// ApplyMessage fan-out room update, one atomic write
func (r *chatRepository) ApplyMessage(ctx context.Context, evt domain.MessageCreatedEvent) error {
	update := bson.M{
		"$set": bson.M{
			"last_message":           evt.Preview(),
			"last_message_sender_id": evt.SenderID,
			"updated_at":             evt.CreatedAt,
		},
		"$inc":      bson.M{domain.UnreadField(evt.ReceiverID): 1},
		"$addToSet": bson.M{"visible_to": evt.ReceiverID},
	}
	res, err := r.roomsColl.UpdateOne(ctx, bson.M{"_id": evt.RoomID}, update)
	if err != nil {
		return fmt.Errorf("apply message %s: %w", evt.MessageID, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

// DecrementUnread plain $inc so it commutes with the increment of ApplyMessage
func (r *chatRepository) DecrementUnread(ctx context.Context, roomID, uid string, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := r.roomsColl.UpdateOne(ctx,
		bson.M{"_id": roomID},
		bson.M{"$inc": bson.M{domain.UnreadField(uid): -n}},
	)
	return err
}

func (r *chatRepository) ResetUnread(ctx context.Context, roomID, uid string, observed int) (bool, error) {
	field := domain.UnreadField(uid)
	res, err := r.roomsColl.UpdateOne(ctx,
		bson.M{"_id": roomID, field: observed},
		bson.M{"$set": bson.M{field: 0}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// HideRoom 從 visible_to 移除 uid
func (r *chatRepository) HideRoom(ctx context.Context, roomID, uid string) (*domain.ChatRoom, error) {
	var room domain.ChatRoom
	err := r.roomsColl.FindOneAndUpdate(ctx,
		bson.M{"_id": roomID},
		bson.M{"$pull": bson.M{"visible_to": uid}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindVisibleTo rooms in uid's inbox, most recently updated first
func (r *chatRepository) FindVisibleTo(ctx context.Context, uid string) ([]domain.ChatRoom, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.roomsColl.Find(ctx, bson.M{"visible_to": uid}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rooms := []domain.ChatRoom{}
	if err := cur.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}
	return rooms, nil
}

// DeleteRoom delete room document
func (r *chatRepository) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := r.roomsColl.DeleteOne(ctx, bson.M{"_id": roomID})
	return err
}
