package userRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careline/database"
	"careline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// UserRepository is the read-only view into the account system's user
// records. The core only needs the device token a reminder push goes to.
type UserRepository interface {
	FCMToken(ctx context.Context, userID string) (string, error)
}

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	userColl *mongo.Collection
}

// NewMongoUserRepo constructs a new instance of MongoUserRepo.
func NewMongoUserRepo() UserRepository {
	db := database.MongoClient.Database("careline")
	return &MongoUserRepo{
		userColl: db.Collection("users"),
	}
}

func (repo *MongoUserRepo) FCMToken(ctx context.Context, userID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var doc struct {
		FCMToken string `bson:"fcm_token"`
	}
	if err := repo.userColl.FindOne(ctx, bson.M{"id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("error fetching user %s: %w", userID, err)
	}
	return doc.FCMToken, nil
}
