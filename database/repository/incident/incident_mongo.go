package incidentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careline/database"
	"careline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoIncidentRepo implements IncidentRepository using MongoDB.
type MongoIncidentRepo struct {
	incidentColl *mongo.Collection
	attemptColl  *mongo.Collection
}

// NewMongoIncidentRepo constructs a new instance of MongoIncidentRepo.
func NewMongoIncidentRepo() IncidentRepository {
	db := database.MongoClient.Database("careline")
	repo := &MongoIncidentRepo{
		incidentColl: db.Collection("incidents"),
		attemptColl:  db.Collection("delivery_attempts"),
	}
	repo.ensureIndexes()
	return repo
}

var liveStates = []string{
	models.StateTriggered,
	models.StateTierNotifying,
	models.StateAcknowledged,
	models.StateEmergencyNotified,
}

func (repo *MongoIncidentRepo) CreateIfNoneActive(ctx context.Context, inc *models.Incident) (*models.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.incidentColl.InsertOne(ctx, inc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// The partial unique index on user_id already holds a live
			// incident for this user; hand that one back.
			existing, ferr := repo.findActiveByUser(ctx, inc.UserID)
			if ferr != nil {
				return nil, fmt.Errorf("fetching active incident for user %s: %w", inc.UserID, ferr)
			}
			return existing, models.ErrDuplicateSuppressed
		}
		return nil, fmt.Errorf("%w: inserting incident: %v", models.ErrPersistence, err)
	}
	return inc, nil
}

func (repo *MongoIncidentRepo) findActiveByUser(ctx context.Context, userID string) (*models.Incident, error) {
	var inc models.Incident
	filter := bson.M{"user_id": userID, "state": bson.M{"$in": liveStates}}
	if err := repo.incidentColl.FindOne(ctx, filter).Decode(&inc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &inc, nil
}

func (repo *MongoIncidentRepo) GetByID(ctx context.Context, id string) (*models.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var inc models.Incident
	if err := repo.incidentColl.FindOne(ctx, bson.M{"id": id}).Decode(&inc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching incident with id %s: %w", id, err)
	}
	return &inc, nil
}

func (repo *MongoIncidentRepo) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := repo.incidentColl.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing incidents for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var incidents []models.Incident
	if err := cursor.All(ctx, &incidents); err != nil {
		return nil, fmt.Errorf("error decoding incidents: %w", err)
	}
	return incidents, nil
}

func (repo *MongoIncidentRepo) MarkTierNotifying(ctx context.Context, id string, tier int, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Forward-only: a concurrent sweep that already escalated past this
	// tier makes the guarded update a no-op instead of a rewind.
	filter := bson.M{
		"id":           id,
		"state":        bson.M{"$in": []string{models.StateTriggered, models.StateTierNotifying}},
		"current_tier": bson.M{"$lt": tier},
	}
	update := bson.M{"$set": bson.M{
		"state":            models.StateTierNotifying,
		"current_tier":     tier,
		"tier_notified_at": at,
	}}
	res, err := repo.incidentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error escalating incident %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidState
	}
	return nil
}

func (repo *MongoIncidentRepo) MarkAcknowledged(ctx context.Context, id string, ack models.Acknowledgment) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// First write wins: the update only matches while no acknowledgment
	// is recorded yet.
	filter := bson.M{
		"id":             id,
		"state":          bson.M{"$in": []string{models.StateTriggered, models.StateTierNotifying, models.StateEmergencyNotified}},
		"acknowledgment": nil,
	}
	update := bson.M{"$set": bson.M{
		"state":          models.StateAcknowledged,
		"acknowledgment": ack,
	}}
	res, err := repo.incidentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error acknowledging incident %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidState
	}
	return nil
}

func (repo *MongoIncidentRepo) MarkEmergencyNotified(ctx context.Context, id string, tier int, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":    id,
		"state": bson.M{"$in": []string{models.StateTriggered, models.StateTierNotifying}},
	}
	update := bson.M{"$set": bson.M{
		"state":            models.StateEmergencyNotified,
		"current_tier":     tier,
		"tier_notified_at": at,
	}}
	res, err := repo.incidentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error marking incident %s emergency-notified: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidState
	}
	return nil
}

func (repo *MongoIncidentRepo) MarkResolved(ctx context.Context, id string, resolver string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":    id,
		"state": bson.M{"$nin": []string{models.StateResolved, models.StateMerged}},
	}
	update := bson.M{"$set": bson.M{
		"state":     models.StateResolved,
		"closed_at": at,
	}}
	res, err := repo.incidentColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error resolving incident %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidState
	}
	return nil
}

func (repo *MongoIncidentRepo) StaleNotifying(ctx context.Context, cutoff time.Time) ([]models.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"state":            bson.M{"$in": []string{models.StateTriggered, models.StateTierNotifying}},
		"tier_notified_at": bson.M{"$lte": cutoff},
	}
	cursor, err := repo.incidentColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding stale incidents: %w", err)
	}
	defer cursor.Close(ctx)

	var incidents []models.Incident
	if err := cursor.All(ctx, &incidents); err != nil {
		return nil, fmt.Errorf("error decoding stale incidents: %w", err)
	}
	return incidents, nil
}

func (repo *MongoIncidentRepo) AppendAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Draw the next attempt_number from the incident's counter so the
	// per-incident log stays gap-free even under concurrent senders.
	var updated models.Incident
	err := repo.incidentColl.FindOneAndUpdate(
		ctx,
		bson.M{"id": attempt.IncidentID},
		bson.M{"$inc": bson.M{"attempt_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrNotFound
		}
		return fmt.Errorf("error reserving attempt number for incident %s: %w", attempt.IncidentID, err)
	}

	attempt.AttemptNumber = updated.AttemptCount
	if attempt.ID == "" {
		attempt.ID = uuid.New().String()
	}
	if _, err := repo.attemptColl.InsertOne(ctx, attempt); err != nil {
		return fmt.Errorf("error appending delivery attempt: %w", err)
	}
	return nil
}

func (repo *MongoIncidentRepo) Attempts(ctx context.Context, incidentID string) ([]models.DeliveryAttempt, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.M{"attempt_number": 1})
	cursor, err := repo.attemptColl.Find(ctx, bson.M{"incident_id": incidentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching attempts for incident %s: %w", incidentID, err)
	}
	defer cursor.Close(ctx)

	var attempts []models.DeliveryAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("error decoding attempts: %w", err)
	}
	return attempts, nil
}
