package reminderRepo

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the indexes the reminder store depends on. The
// unique (schedule_id, fire_at) index is the idempotency guard: a second
// tick creating the same occurrence hits a duplicate-key error.
func (repo *MongoReminderRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	scheduleIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "active", Value: 1}, {Key: "next_fire_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	}
	if _, err := repo.scheduleColl.Indexes().CreateMany(ctx, scheduleIndexes); err != nil {
		log.Printf("reminder repo: failed to create schedule indexes: %v", err)
	}

	occurrenceIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "schedule_id", Value: 1}, {Key: "fire_at", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_occurrence_per_fire"),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "failed", Value: 1}},
		},
	}
	if _, err := repo.occurrenceColl.Indexes().CreateMany(ctx, occurrenceIndexes); err != nil {
		log.Printf("reminder repo: failed to create occurrence indexes: %v", err)
	}
}
