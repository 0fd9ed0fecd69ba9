package incidentRepo

import (
	"context"
	"time"

	"careline/models"
)

// IncidentRepository is the durable store for incidents and their
// append-only delivery-attempt log. It is the single source of truth
// for crash recovery: the escalation engine keeps no state of its own.
type IncidentRepository interface {
	// CreateIfNoneActive atomically inserts the incident unless the user
	// already has a non-terminal one. When suppressed, the existing
	// incident is returned together with models.ErrDuplicateSuppressed.
	CreateIfNoneActive(ctx context.Context, inc *models.Incident) (*models.Incident, error)

	GetByID(ctx context.Context, id string) (*models.Incident, error)
	ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.Incident, error)

	// MarkTierNotifying advances the incident to the given tier. Guarded:
	// only TRIGGERED or TIER_NOTIFYING incidents move, and only forward.
	MarkTierNotifying(ctx context.Context, id string, tier int, at time.Time) error

	// MarkAcknowledged records the first acknowledgment. Later acks are
	// no-ops returning models.ErrInvalidState so callers can log them.
	MarkAcknowledged(ctx context.Context, id string, ack models.Acknowledgment) error

	// MarkEmergencyNotified records that the emergency-service tier was
	// reached and notified.
	MarkEmergencyNotified(ctx context.Context, id string, tier int, at time.Time) error

	// MarkResolved is the terminal transition. Resolving an already
	// terminal incident returns models.ErrInvalidState.
	MarkResolved(ctx context.Context, id string, resolver string, at time.Time) error

	// StaleNotifying returns live incidents whose current tier was
	// notified before the cutoff, for the tier-timeout sweep.
	StaleNotifying(ctx context.Context, cutoff time.Time) ([]models.Incident, error)

	// AppendAttempt assigns the next attempt_number for the incident and
	// appends the record. The log is append-only and gap-free.
	AppendAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error

	// Attempts returns the full attempt history, ordered by attempt_number.
	Attempts(ctx context.Context, incidentID string) ([]models.DeliveryAttempt, error)
}
