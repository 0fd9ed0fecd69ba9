package contactRepo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"careline/config"
	"careline/database"
	"careline/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoContactRepo implements ContactRepository using MongoDB.
type MongoContactRepo struct {
	contactColl *mongo.Collection
}

// NewMongoContactRepo constructs a new instance of MongoContactRepo.
func NewMongoContactRepo() ContactRepository {
	db := database.MongoClient.Database("careline")
	return &MongoContactRepo{
		contactColl: db.Collection("contacts"),
	}
}

func (repo *MongoContactRepo) TiersFor(ctx context.Context, userID string) ([]models.ContactTier, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.contactColl.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("error fetching contacts for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var contacts []models.Contact
	if err := cursor.All(ctx, &contacts); err != nil {
		return nil, fmt.Errorf("error decoding contacts: %w", err)
	}

	return BuildTiers(contacts), nil
}

// BuildTiers groups contacts into escalation order and appends the
// emergency-service fallback so the last tier is never empty.
func BuildTiers(contacts []models.Contact) []models.ContactTier {
	byTier := map[string][]models.Contact{}
	for _, c := range contacts {
		byTier[c.Tier] = append(byTier[c.Tier], c)
	}

	var tiers []models.ContactTier
	for _, name := range []string{models.TierPrimary, models.TierSecondary} {
		group := byTier[name]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Priority < group[j].Priority })
		tiers = append(tiers, models.ContactTier{Name: name, Contacts: group})
	}

	emergency := byTier[models.TierEmergencyService]
	if len(emergency) == 0 {
		emergency = []models.Contact{fallbackHospital()}
	}
	tiers = append(tiers, models.ContactTier{Name: models.TierEmergencyService, Contacts: emergency})

	return tiers
}

// fallbackHospital is the nearest-hospital tier used when a user has no
// care-giving hospital configured.
func fallbackHospital() models.Contact {
	return models.Contact{
		ID:   "fallback-hospital",
		Name: "Nearest hospital dispatch",
		Tier: models.TierEmergencyService,
		Channels: []models.ContactChannel{
			{Channel: models.ChannelEmergency, Target: config.AppConfig.FallbackHospitalURL},
		},
	}
}
