package reminderRepo

import (
	"context"
	"time"

	"careline/models"
)

// ReminderRepository is the durable store for schedules and their
// occurrences. Occurrence creation is idempotent on the
// (schedule_id, fire_at) key via a unique index.
type ReminderRepository interface {
	CreateSchedule(ctx context.Context, s *models.ReminderSchedule) error
	GetSchedule(ctx context.Context, id string) (*models.ReminderSchedule, error)
	ListByUser(ctx context.Context, userID string, skip, limit int64) ([]models.ReminderSchedule, error)

	// DueSchedules returns active schedules with next_fire_at <= before.
	DueSchedules(ctx context.Context, before time.Time) ([]models.ReminderSchedule, error)

	// AdvanceNextFire moves next_fire_at forward after a fire. Guarded on
	// the previous value so overlapping scheduler ticks cannot double
	// advance. Setting active false deactivates one-off schedules.
	AdvanceNextFire(ctx context.Context, id string, from, to time.Time, active bool) error

	// Snooze postpones the next fire of an active schedule.
	Snooze(ctx context.Context, id string, by time.Duration) (*models.ReminderSchedule, error)

	// Deactivate cancels a schedule, preserving its occurrence history.
	Deactivate(ctx context.Context, id string) error

	// CreateOccurrence inserts an occurrence; created is false when one
	// already exists for the dedup key.
	CreateOccurrence(ctx context.Context, occ *models.ReminderOccurrence) (created bool, err error)

	GetOccurrence(ctx context.Context, id string) (*models.ReminderOccurrence, error)
	MarkOccurrenceDelivered(ctx context.Context, id string) error
	MarkOccurrenceFailed(ctx context.Context, id string) error
	AckOccurrence(ctx context.Context, id string) error

	// FailedOccurrences lists permanently failed fires for caregiver
	// visibility.
	FailedOccurrences(ctx context.Context, userID string, skip, limit int64) ([]models.ReminderOccurrence, error)

	// AppendAttempt assigns the next attempt_number for the occurrence
	// and appends the record to the shared delivery-attempt log.
	AppendAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
}
