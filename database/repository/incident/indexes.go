package incidentRepo

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates the indexes the incident store depends on. The
// partial unique index on user_id is what enforces "at most one live
// incident per user": a second insert races into a duplicate-key error
// instead of a second incident.
func (repo *MongoIncidentRepo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	incidentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"state": bson.M{"$in": liveStates}}).
				SetName("one_live_incident_per_user"),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "state", Value: 1}, {Key: "tier_notified_at", Value: 1}},
		},
	}
	if _, err := repo.incidentColl.Indexes().CreateMany(ctx, incidentIndexes); err != nil {
		log.Printf("incident repo: failed to create incident indexes: %v", err)
	}

	attemptIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "incident_id", Value: 1}, {Key: "attempt_number", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "occurrence_id", Value: 1}, {Key: "attempt_number", Value: 1}},
		},
	}
	if _, err := repo.attemptColl.Indexes().CreateMany(ctx, attemptIndexes); err != nil {
		log.Printf("incident repo: failed to create attempt indexes: %v", err)
	}
}
