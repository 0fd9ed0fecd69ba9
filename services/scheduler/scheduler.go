package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	reminderRepo "careline/database/repository/reminder"
	"careline/models"
	"careline/services/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scheduler owns next_fire_at for every active schedule. On each tick it
// scans schedules due within the window, creates one occurrence per due
// schedule (idempotent on schedule_id + fire_at) and hands delivery to
// the task queue, then advances the schedule. Overlapping ticks are
// safe: occurrence creation and the guarded advance are both no-ops the
// second time.
type Scheduler struct {
	Reminders  reminderRepo.ReminderRepository
	Enqueuer   tasks.Enqueuer
	TickWindow time.Duration
	Logger     *zap.Logger
	Clock      func() time.Time // defaults to time.Now
}

func (s *Scheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Tick runs one scan. Individual schedule failures are logged and left
// for the next tick; one bad schedule must not starve the rest.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()
	due, err := s.Reminders.DueSchedules(ctx, now.Add(s.TickWindow))
	if err != nil {
		return fmt.Errorf("scanning due schedules: %w", err)
	}

	for _, sched := range due {
		sched := sched
		if err := s.fire(ctx, &sched, now); err != nil {
			s.Logger.Error("scheduler: failed to fire schedule",
				zap.String("scheduleId", sched.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (s *Scheduler) fire(ctx context.Context, sched *models.ReminderSchedule, now time.Time) error {
	fireAt := MostRecentDue(sched, now)

	// The occurrence id is derived from the dedup key, so a re-fired
	// slot enqueues under the same task id and the queue drops the
	// duplicate while the first task is still pending.
	occ := &models.ReminderOccurrence{
		ID:         occurrenceID(sched.ID, fireAt),
		ScheduleID: sched.ID,
		UserID:     sched.UserID,
		FireAt:     fireAt,
		CreatedAt:  now,
	}
	created, err := s.Reminders.CreateOccurrence(ctx, occ)
	if err != nil {
		return fmt.Errorf("creating occurrence: %w", err)
	}
	if !created {
		// A previous tick already fired this slot. The task-id dedup only
		// holds while the task is pending, so re-enqueueing a settled
		// occurrence would notify the user a second time.
		existing, gerr := s.Reminders.GetOccurrence(ctx, occ.ID)
		if gerr != nil {
			return fmt.Errorf("loading occurrence %s: %w", occ.ID, gerr)
		}
		if existing.Delivered || existing.Failed {
			return s.advance(ctx, sched, fireAt, now)
		}
	}

	payload := models.ReminderPayload{
		OccurrenceID: occ.ID,
		ScheduleID:   sched.ID,
		UserID:       sched.UserID,
		Category:     sched.Category,
		Title:        reminderTitle(sched.Category),
		Body:         sched.Text,
		FireDate:     fireAt.Format(time.RFC3339),
	}
	if err := s.Enqueuer.EnqueueReminder(ctx, payload, fireAt); err != nil {
		// The occurrence exists but is not queued. Leave next_fire_at
		// alone so the next tick retries the enqueue.
		return fmt.Errorf("enqueueing occurrence %s: %w", occ.ID, err)
	}
	s.Logger.Info("scheduler: occurrence enqueued",
		zap.String("scheduleId", sched.ID),
		zap.String("occurrenceId", occ.ID),
		zap.Time("fireAt", fireAt))

	return s.advance(ctx, sched, fireAt, now)
}

func (s *Scheduler) advance(ctx context.Context, sched *models.ReminderSchedule, fireAt, now time.Time) error {
	after := fireAt
	if now.After(after) {
		after = now
	}
	next, active := NextFire(sched, after)
	if !active {
		// One-off: keep next_fire_at as the historical fire time.
		next = sched.NextFireAt
	}
	if err := s.Reminders.AdvanceNextFire(ctx, sched.ID, sched.NextFireAt, next, active); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			// An overlapping tick advanced it first.
			return nil
		}
		return fmt.Errorf("advancing schedule: %w", err)
	}
	return nil
}

// occurrenceID derives a stable id from the (schedule, fire time)
// dedup key.
func occurrenceID(scheduleID string, fireAt time.Time) string {
	key := scheduleID + "|" + fireAt.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

func reminderTitle(category string) string {
	switch category {
	case models.CategoryMedication:
		return "Medication reminder"
	case models.CategoryAppointment:
		return "Appointment reminder"
	default:
		return "Reminder"
	}
}
