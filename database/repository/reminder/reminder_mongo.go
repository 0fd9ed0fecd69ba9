package reminderRepo

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

// MongoReminderRepo implements ReminderRepository using MongoDB.
type MongoReminderRepo struct {
	scheduleColl   *mongo.Collection
	occurrenceColl *mongo.Collection
	attemptColl    *mongo.Collection
}

// NewMongoReminderRepo constructs a new instance of MongoReminderRepo.
func NewMongoReminderRepo() ReminderRepository {
	db := database.MongoClient.Database("careline")
	repo := &MongoReminderRepo{
		scheduleColl:   db.Collection("reminder_schedules"),
		occurrenceColl: db.Collection("reminder_occurrences"),
		attemptColl:    db.Collection("delivery_attempts"),
	}
	repo.ensureIndexes()
	return repo
}

func (repo *MongoReminderRepo) CreateSchedule(ctx context.Context, s *models.ReminderSchedule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.scheduleColl.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("%w: inserting schedule: %v", models.ErrPersistence, err)
	}
	return nil
}

func (repo *MongoReminderRepo) GetSchedule(ctx context.Context, id string) (*models.ReminderSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var s models.ReminderSchedule
	if err := repo.scheduleColl.FindOne(ctx, bson.M{"id": id}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching schedule with id %s: %w", id, err)
	}
	return &s, nil
}

func (repo *MongoReminderRepo) ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ReminderSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := repo.scheduleColl.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing schedules for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var schedules []models.ReminderSchedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("error decoding schedules: %w", err)
	}
	return schedules, nil
}

func (repo *MongoReminderRepo) DueSchedules(ctx context.Context, before time.Time) ([]models.ReminderSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"active": true, "next_fire_at": bson.M{"$lte": before}}
	cursor, err := repo.scheduleColl.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error scanning due schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var due []models.ReminderSchedule
	if err := cursor.All(ctx, &due); err != nil {
		return nil, fmt.Errorf("error decoding due schedules: %w", err)
	}
	return due, nil
}

func (repo *MongoReminderRepo) AdvanceNextFire(ctx context.Context, id string, from, to time.Time, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Guarded on the previous next_fire_at: an overlapping tick that
	// already advanced the schedule turns this into a no-op.
	filter := bson.M{"id": id, "next_fire_at": from}
	update := bson.M{"$set": bson.M{"next_fire_at": to, "active": active}}
	res, err := repo.scheduleColl.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error advancing schedule %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidState
	}
	return nil
}

func (repo *MongoReminderRepo) Snooze(ctx context.Context, id string, by time.Duration) (*models.ReminderSchedule, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var updated models.ReminderSchedule
	err := repo.scheduleColl.FindOneAndUpdate(
		ctx,
		bson.M{"id": id, "active": true},
		bson.A{bson.M{"$set": bson.M{
			"next_fire_at": bson.M{"$add": bson.A{"$next_fire_at", by.Milliseconds()}},
		}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error snoozing schedule %s: %w", id, err)
	}
	return &updated, nil
}

func (repo *MongoReminderRepo) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.scheduleColl.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return fmt.Errorf("error deactivating schedule %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (repo *MongoReminderRepo) CreateOccurrence(ctx context.Context, occ *models.ReminderOccurrence) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.occurrenceColl.InsertOne(ctx, occ); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Another tick already created this fire; skip silently.
			return false, nil
		}
		return false, fmt.Errorf("%w: inserting occurrence: %v", models.ErrPersistence, err)
	}
	return true, nil
}

func (repo *MongoReminderRepo) GetOccurrence(ctx context.Context, id string) (*models.ReminderOccurrence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var occ models.ReminderOccurrence
	if err := repo.occurrenceColl.FindOne(ctx, bson.M{"id": id}).Decode(&occ); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching occurrence with id %s: %w", id, err)
	}
	return &occ, nil
}

func (repo *MongoReminderRepo) MarkOccurrenceDelivered(ctx context.Context, id string) error {
	return repo.setOccurrenceFlag(ctx, id, "delivered")
}

func (repo *MongoReminderRepo) MarkOccurrenceFailed(ctx context.Context, id string) error {
	return repo.setOccurrenceFlag(ctx, id, "failed")
}

func (repo *MongoReminderRepo) AckOccurrence(ctx context.Context, id string) error {
	return repo.setOccurrenceFlag(ctx, id, "acknowledged")
}

func (repo *MongoReminderRepo) setOccurrenceFlag(ctx context.Context, id, field string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := repo.occurrenceColl.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{field: true}})
	if err != nil {
		return fmt.Errorf("error setting %s on occurrence %s: %w", field, id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (repo *MongoReminderRepo) FailedOccurrences(ctx context.Context, userID string, skip, limit int64) ([]models.ReminderOccurrence, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.M{"fire_at": -1}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := repo.occurrenceColl.Find(ctx, bson.M{"user_id": userID, "failed": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing failed occurrences for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var occurrences []models.ReminderOccurrence
	if err := cursor.All(ctx, &occurrences); err != nil {
		return nil, fmt.Errorf("error decoding occurrences: %w", err)
	}
	return occurrences, nil
}

func (repo *MongoReminderRepo) AppendAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var updated models.ReminderOccurrence
	err := repo.occurrenceColl.FindOneAndUpdate(
		ctx,
		bson.M{"id": attempt.OccurrenceID},
		bson.M{"$inc": bson.M{"attempt_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.ErrNotFound
		}
		return fmt.Errorf("error reserving attempt number for occurrence %s: %w", attempt.OccurrenceID, err)
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
