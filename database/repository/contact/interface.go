package contactRepo

import (
	"context"

	"careline/models"
)

// ContactRepository is the read path into the user's escalation list.
// Contact CRUD happens in the companion app, outside the core.
type ContactRepository interface {
	// TiersFor returns the user's contact tiers in escalation order. The
	// emergency-service tier is always present, even for users with zero
	// configured contacts.
	TiersFor(ctx context.Context, userID string) ([]models.ContactTier, error)
}
