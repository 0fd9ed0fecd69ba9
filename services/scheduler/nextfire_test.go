package scheduler

import (
	"testing"
	"time"

	"careline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextFire_OneOff(t *testing.T) {
	fireAt := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	sched := &models.ReminderSchedule{
		Kind: models.KindOneOff,
		Rule: models.ReminderRule{FireAt: &fireAt},
	}

	next, active := NextFire(sched, fireAt.Add(-time.Hour))
	assert.True(t, active)
	assert.Equal(t, fireAt, next)

	// Once the fire time has passed the schedule is done.
	_, active = NextFire(sched, fireAt)
	assert.False(t, active)
	_, active = NextFire(sched, fireAt.Add(time.Hour))
	assert.False(t, active)
}

func TestNextFire_IntervalSkipsMissedSlots(t *testing.T) {
	scheduled := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	sched := &models.ReminderSchedule{
		Kind:       models.KindInterval,
		Rule:       models.ReminderRule{EverySeconds: 3600},
		NextFireAt: scheduled,
	}

	// Normal advance by one step.
	next, active := NextFire(sched, scheduled)
	assert.True(t, active)
	assert.Equal(t, scheduled.Add(time.Hour), next)

	// After 3.5 hours of downtime the next fire lands on the grid, not
	// 3.5 hours late.
	next, _ = NextFire(sched, scheduled.Add(3*time.Hour+30*time.Minute))
	assert.Equal(t, scheduled.Add(4*time.Hour), next)
}

func TestNextFire_WeeklyPicksNextConfiguredDay(t *testing.T) {
	sched := &models.ReminderSchedule{
		Kind: models.KindWeekly,
		Rule: models.ReminderRule{
			Days:      []time.Weekday{time.Monday, time.Thursday},
			TimeOfDay: "09:30",
			Timezone:  "UTC",
		},
	}

	// Tuesday 2026-06-02 -> Thursday 2026-06-04 09:30.
	after := time.Date(2026, 6, 2, 12, 0, 0, 0, time.UTC)
	next, active := NextFire(sched, after)
	assert.True(t, active)
	assert.Equal(t, time.Date(2026, 6, 4, 9, 30, 0, 0, time.UTC), next)

	// Monday before 09:30 fires the same day.
	after = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	next, _ = NextFire(sched, after)
	assert.Equal(t, time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC), next)

	// Monday at exactly 09:30 rolls to Thursday.
	after = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)
	next, _ = NextFire(sched, after)
	assert.Equal(t, time.Date(2026, 6, 4, 9, 30, 0, 0, time.UTC), next)
}

func TestNextFire_WeeklyKeepsWallClockAcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	sched := &models.ReminderSchedule{
		Kind: models.KindWeekly,
		Rule: models.ReminderRule{
			Days:      []time.Weekday{time.Sunday},
			TimeOfDay: "08:00",
			Timezone:  "Europe/Berlin",
		},
	}

	// Saturday 2026-03-28, the day before Europe switches to summer time.
	after := time.Date(2026, 3, 28, 12, 0, 0, 0, berlin)
	next, active := NextFire(sched, after)
	assert.True(t, active)

	// Sunday 08:00 local wall clock, in CEST now.
	assert.Equal(t, time.Date(2026, 3, 29, 8, 0, 0, 0, berlin).UTC(), next.UTC())
	assert.Equal(t, "08:00", next.In(berlin).Format("15:04"))

	// The following week is a plain 7-day hop in local time.
	following, _ := NextFire(sched, next)
	assert.Equal(t, time.Date(2026, 4, 5, 8, 0, 0, 0, berlin).UTC(), following.UTC())
	assert.Equal(t, 7*24*time.Hour, following.Sub(next))
}

func TestMostRecentDue_FiresOnlyLatestMissedSlot(t *testing.T) {
	scheduled := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	sched := &models.ReminderSchedule{
		Kind:       models.KindInterval,
		Rule:       models.ReminderRule{EverySeconds: 3600},
		NextFireAt: scheduled,
	}

	// Five slots missed: only the 12:00 slot still fires.
	now := scheduled.Add(4*time.Hour + 15*time.Minute)
	assert.Equal(t, scheduled.Add(4*time.Hour), MostRecentDue(sched, now))

	// Not yet due: the scheduled slot itself.
	assert.Equal(t, scheduled, MostRecentDue(sched, scheduled.Add(-time.Minute)))
}

func TestMostRecentDue_WeeklyAfterDowntime(t *testing.T) {
	sched := &models.ReminderSchedule{
		Kind: models.KindWeekly,
		Rule: models.ReminderRule{
			Days:      []time.Weekday{time.Monday, time.Wednesday},
			TimeOfDay: "09:00",
			Timezone:  "UTC",
		},
		// Monday 2026-06-01 09:00 was never fired.
		NextFireAt: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	// Recovering on Thursday: only Wednesday's slot fires.
	now := time.Date(2026, 6, 4, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC), MostRecentDue(sched, now))
}
