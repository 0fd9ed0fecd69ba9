package tasks

import (
	"encoding/json"

	"careline/models"

	"github.com/hibiken/asynq"
)

const TypeDeliverySend = "delivery:send"

// NewDeliveryTask builds the task for one outbound SOS notification.
// SOS deliveries run on a dedicated critical queue and are processed
// immediately.
func NewDeliveryTask(payload models.DeliveryPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeDeliverySend, b)
	// The dispatcher owns retry/backoff and records every attempt, so
	// asynq must not add its own retries on top.
	opts := []asynq.Option{asynq.Queue("critical"), asynq.MaxRetry(0)}

	return task, opts, nil
}
