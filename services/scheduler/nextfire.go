package scheduler

import (
	"time"

	"careline/models"
)

// NextFire computes the first fire time of the schedule strictly after
// the given instant. active is false when the schedule has no further
// fires (one-off schedules after their fire).
func NextFire(s *models.ReminderSchedule, after time.Time) (next time.Time, active bool) {
	switch s.Kind {
	case models.KindOneOff:
		if s.Rule.FireAt != nil && s.Rule.FireAt.After(after) {
			return *s.Rule.FireAt, true
		}
		return time.Time{}, false
	case models.KindInterval:
		return nextInterval(s.NextFireAt, time.Duration(s.Rule.EverySeconds)*time.Second, after), true
	case models.KindWeekly:
		return nextWeekly(s.Rule, after), true
	}
	return time.Time{}, false
}

// MostRecentDue returns the latest scheduled slot at or before now. When
// downtime skipped several slots, this is the one occurrence that still
// fires; older missed slots are dropped rather than replayed, since a
// backlog of stale medication reminders is worse than none.
func MostRecentDue(s *models.ReminderSchedule, now time.Time) time.Time {
	scheduled := s.NextFireAt
	if !scheduled.Before(now) {
		return scheduled
	}

	switch s.Kind {
	case models.KindInterval:
		step := time.Duration(s.Rule.EverySeconds) * time.Second
		missed := now.Sub(scheduled) / step
		return scheduled.Add(missed * step)
	case models.KindWeekly:
		latest := scheduled
		for {
			candidate := nextWeekly(s.Rule, latest)
			if candidate.After(now) {
				return latest
			}
			latest = candidate
		}
	}
	return scheduled
}

// nextInterval advances scheduled by whole steps until it passes after.
func nextInterval(scheduled time.Time, step time.Duration, after time.Time) time.Time {
	if scheduled.After(after) {
		return scheduled
	}
	missed := after.Sub(scheduled)/step + 1
	return scheduled.Add(missed * step)
}

// nextWeekly finds the next matching weekday/time-of-day slot after the
// given instant, evaluated in the schedule's own time zone. Building the
// candidate with time.Date in that zone keeps the local wall-clock time
// stable across DST transitions.
func nextWeekly(rule models.ReminderRule, after time.Time) time.Time {
	loc, err := time.LoadLocation(rule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	tod, _ := time.Parse("15:04", rule.TimeOfDay)

	days := map[time.Weekday]bool{}
	for _, d := range rule.Days {
		days[d] = true
	}

	local := after.In(loc)
	for offset := 0; offset <= 7; offset++ {
		day := local.AddDate(0, 0, offset)
		candidate := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
		if days[candidate.Weekday()] && candidate.After(after) {
			return candidate
		}
	}
	// Unreachable with at least one weekday configured.
	return after.AddDate(0, 0, 7)
}
