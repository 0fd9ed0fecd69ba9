package models

import (
	"fmt"
	"strings"
	"time"
)

// Reminder schedule kinds.
const (
	KindOneOff   = "one_off"
	KindInterval = "interval"
	KindWeekly   = "weekly"
)

// Reminder categories, as surfaced to the user.
const (
	CategoryMedication  = "medication"
	CategoryTask        = "task"
	CategoryAppointment = "appointment"
)

const maxReminderWords = 50

// ReminderRule is a tagged variant over the supported recurrence kinds.
// Only the fields for the schedule's Kind are meaningful.
type ReminderRule struct {
	// one_off: the single fire time.
	FireAt *time.Time `bson:"fire_at,omitempty" json:"fire_at,omitempty"`

	// interval: fire every N seconds.
	EverySeconds int64 `bson:"every_seconds,omitempty" json:"every_seconds,omitempty"`

	// weekly: fire on the listed weekdays at TimeOfDay in Timezone.
	Days      []time.Weekday `bson:"days,omitempty" json:"days,omitempty"`
	TimeOfDay string         `bson:"time_of_day,omitempty" json:"time_of_day,omitempty"` // "15:04"
	Timezone  string         `bson:"timezone,omitempty" json:"timezone,omitempty"`       // IANA name, e.g. "Europe/Berlin"
}

// ReminderSchedule is the durable definition of a reminder. Cancelling
// deactivates it instead of deleting, so occurrence history survives.
type ReminderSchedule struct {
	ID         string       `bson:"id" json:"id"`
	UserID     string       `bson:"user_id" json:"user_id"`
	Kind       string       `bson:"kind" json:"kind"`
	Rule       ReminderRule `bson:"rule" json:"rule"`
	Category   string       `bson:"category" json:"category"`
	Text       string       `bson:"text" json:"text"`
	NextFireAt time.Time    `bson:"next_fire_at" json:"next_fire_at"`
	Active     bool         `bson:"active" json:"active"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
}

// ReminderOccurrence is one concrete firing of a schedule. The pair
// (schedule_id, fire_at) is the idempotent delivery key.
type ReminderOccurrence struct {
	ID           string    `bson:"id" json:"id"`
	ScheduleID   string    `bson:"schedule_id" json:"schedule_id"`
	UserID       string    `bson:"user_id" json:"user_id"` // denormalized from the schedule for caregiver queries
	FireAt       time.Time `bson:"fire_at" json:"fire_at"`
	Delivered    bool      `bson:"delivered" json:"delivered"`
	Failed       bool      `bson:"failed" json:"failed"`
	Acknowledged bool      `bson:"acknowledged" json:"acknowledged"`
	AttemptCount int       `bson:"attempt_count" json:"attempt_count"` // highest attempt_number issued so far
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// ValidateSchedule checks a schedule definition as submitted through the
// ingress API. Invalid rules are rejected with 422 by the handler.
func ValidateSchedule(s *ReminderSchedule, now time.Time) error {
	switch s.Category {
	case CategoryMedication, CategoryTask, CategoryAppointment:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidRule, s.Category)
	}

	if words := len(strings.Fields(s.Text)); words == 0 || words > maxReminderWords {
		return fmt.Errorf("%w: reminder text must be 1-%d words", ErrInvalidRule, maxReminderWords)
	}

	switch s.Kind {
	case KindOneOff:
		if s.Rule.FireAt == nil {
			return fmt.Errorf("%w: one-off schedule needs fire_at", ErrInvalidRule)
		}
		if !s.Rule.FireAt.After(now.Add(time.Minute)) {
			return fmt.Errorf("%w: fire time must be at least 1 minute ahead", ErrInvalidRule)
		}
	case KindInterval:
		if s.Rule.EverySeconds < 60 {
			return fmt.Errorf("%w: interval must be at least 60 seconds", ErrInvalidRule)
		}
	case KindWeekly:
		if len(s.Rule.Days) == 0 {
			return fmt.Errorf("%w: weekly schedule needs at least one weekday", ErrInvalidRule)
		}
		for _, d := range s.Rule.Days {
			if d < time.Sunday || d > time.Saturday {
				return fmt.Errorf("%w: invalid weekday %d", ErrInvalidRule, d)
			}
		}
		if _, err := time.Parse("15:04", s.Rule.TimeOfDay); err != nil {
			return fmt.Errorf("%w: time_of_day must be HH:MM, got %q", ErrInvalidRule, s.Rule.TimeOfDay)
		}
		if _, err := time.LoadLocation(s.Rule.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidRule, s.Rule.Timezone)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, s.Kind)
	}
	return nil
}
