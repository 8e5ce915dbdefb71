package repository

import (
	"context"
	"errors"

	"chat_sync_service/internal/chat/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserRepository read side of the user documents owned by the member service
type UserRepository interface {
	// FindProfile returns domain.ErrUserNotFound when uid has no document
	FindProfile(ctx context.Context, uid string) (*domain.UserProfile, error)
}

type userRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository create UserRepository on the users collection
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &userRepository{coll: db.Collection("users")}
}

func (r *userRepository) FindProfile(ctx context.Context, uid string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	opts := options.FindOne().SetProjection(bson.M{"nickname": 1, "push_token": 1})
	err := r.coll.FindOne(ctx, bson.M{"_id": uid}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
