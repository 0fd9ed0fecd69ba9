package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"careline/models"

	"github.com/hibiken/asynq"
)

// Enqueuer hands work to the background worker. The escalation engine
// and reminder scheduler depend on this interface, not on asynq.
type Enqueuer interface {
	EnqueueDelivery(ctx context.Context, payload models.DeliveryPayload) error
	EnqueueReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error
}

// AsynqEnqueuer is the production Enqueuer backed by an asynq client.
type AsynqEnqueuer struct {
	Client *asynq.Client
}

func (e *AsynqEnqueuer) EnqueueDelivery(ctx context.Context, payload models.DeliveryPayload) error {
	task, opts, err := NewDeliveryTask(payload)
	if err != nil {
		return fmt.Errorf("building delivery task: %w", err)
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueueing delivery task: %w", err)
	}
	return nil
}

func (e *AsynqEnqueuer) EnqueueReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error {
	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return fmt.Errorf("building reminder task: %w", err)
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// The occurrence is already queued; idempotent by design of
			// the task id.
			return nil
		}
		return fmt.Errorf("enqueueing reminder task: %w", err)
	}
	return nil
}
