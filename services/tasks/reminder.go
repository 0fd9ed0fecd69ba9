package tasks

import (
	"encoding/json"
	"time"

	"careline/models"

	"github.com/hibiken/asynq"
)

const TypeReminderSend = "reminder:send"

// NewReminderTask builds the timed task that fires a reminder
// occurrence at fireAt.
func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderSend, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		// Dedup on the occurrence so a re-enqueued fire collapses onto
		// the pending task instead of notifying twice. Send retries live
		// in the dispatcher; the asynq budget covers store errors hit
		// before dispatch.
		asynq.TaskID(TypeReminderSend + ":" + payload.OccurrenceID),
		asynq.MaxRetry(3),
	}

	return task, opts, nil
}
