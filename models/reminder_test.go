package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validOneOff(now time.Time) *ReminderSchedule {
	fireAt := now.Add(time.Hour)
	return &ReminderSchedule{
		Kind:     KindOneOff,
		Rule:     ReminderRule{FireAt: &fireAt},
		Category: CategoryMedication,
		Text:     "Take evening pills",
	}
}

func TestValidateSchedule(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("valid one-off", func(t *testing.T) {
		assert.NoError(t, ValidateSchedule(validOneOff(now), now))
	})

	t.Run("one-off missing fire time", func(t *testing.T) {
		s := validOneOff(now)
		s.Rule.FireAt = nil
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("one-off too soon", func(t *testing.T) {
		s := validOneOff(now)
		soon := now.Add(30 * time.Second)
		s.Rule.FireAt = &soon
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("interval below minimum", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = KindInterval
		s.Rule = ReminderRule{EverySeconds: 30}
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("valid interval", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = KindInterval
		s.Rule = ReminderRule{EverySeconds: 3600}
		assert.NoError(t, ValidateSchedule(s, now))
	})

	t.Run("valid weekly", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = KindWeekly
		s.Rule = ReminderRule{
			Days:      []time.Weekday{time.Monday, time.Friday},
			TimeOfDay: "08:30",
			Timezone:  "Europe/Berlin",
		}
		assert.NoError(t, ValidateSchedule(s, now))
	})

	t.Run("weekly without days", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = KindWeekly
		s.Rule = ReminderRule{TimeOfDay: "08:30", Timezone: "UTC"}
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("weekly bad time of day", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = KindWeekly
		s.Rule = ReminderRule{Days: []time.Weekday{time.Monday}, TimeOfDay: "25:99", Timezone: "UTC"}
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("weekly unknown timezone", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = KindWeekly
		s.Rule = ReminderRule{Days: []time.Weekday{time.Monday}, TimeOfDay: "08:30", Timezone: "Mars/Olympus"}
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("unknown kind", func(t *testing.T) {
		s := validOneOff(now)
		s.Kind = "hourly"
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("unknown category", func(t *testing.T) {
		s := validOneOff(now)
		s.Category = "chore"
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("empty text", func(t *testing.T) {
		s := validOneOff(now)
		s.Text = "   "
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})

	t.Run("text over word limit", func(t *testing.T) {
		s := validOneOff(now)
		s.Text = strings.Repeat("word ", 51)
		assert.ErrorIs(t, ValidateSchedule(s, now), ErrInvalidRule)
	})
}
