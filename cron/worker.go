package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"careline/config"
	incidentRepo "careline/database/repository/incident"
	reminderRepo "careline/database/repository/reminder"
	userRepo "careline/database/repository/user"
	"careline/models"
	"careline/services/dispatch"
	"careline/services/escalation"
	"careline/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// WorkerDeps bundles what the background worker needs to process
// delivery and reminder tasks.
type WorkerDeps struct {
	Dispatcher dispatch.Dispatcher
	Engine     escalation.Engine
	Incidents  incidentRepo.IncidentRepository
	Reminders  reminderRepo.ReminderRepository
	Users      userRepo.UserRepository
}

// InitWorker runs the async worker in background. SOS deliveries run on
// the critical queue so a flood of reminders never delays an alert.
func InitWorker(deps WorkerDeps) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeDeliverySend, handleDeliveryTask(deps))
	mux.HandleFunc(tasks.TypeReminderSend, handleReminderTask(deps))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[Worker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

// handleDeliveryTask sends one SOS notification and feeds the terminal
// outcome back into the escalation engine.
func handleDeliveryTask(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.DeliveryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[DeliveryHandler] Invalid payload: %v", err)
			return err
		}

		proto := models.DeliveryAttempt{
			IncidentID: p.IncidentID,
			Target:     p.Target,
			Channel:    p.Channel,
		}
		outcome := deps.Dispatcher.Send(ctx, proto, dispatch.Payload{
			Title: p.Title,
			Body:  p.Body,
			Data: map[string]string{
				"type":       "sos",
				"incidentId": p.IncidentID,
			},
		}, deps.Incidents)

		deps.Engine.OnDeliveryOutcome(ctx, p.IncidentID, p.Target, outcome.Status)
		return nil
	}
}

// handleReminderTask delivers one reminder occurrence to the user's
// device. Permanent failure marks the occurrence failed for caregiver
// visibility; the schedule advances regardless.
func handleReminderTask(deps WorkerDeps) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[ReminderHandler] Invalid payload: %v", err)
			return fmt.Errorf("reminder payload: %v: %w", err, asynq.SkipRetry)
		}

		// The scheduler re-fires an occurrence whose enqueue or advance
		// failed; a settled occurrence must not reach the user twice.
		occ, err := deps.Reminders.GetOccurrence(ctx, p.OccurrenceID)
		if err != nil {
			log.Printf("[ReminderHandler] Occurrence lookup failed for %s: %v", p.OccurrenceID, err)
			return err
		}
		if occ.Delivered || occ.Failed {
			log.Printf("[ReminderHandler] Occurrence %s already settled, skipping", p.OccurrenceID)
			return nil
		}

		token, err := deps.Users.FCMToken(ctx, p.UserID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			// A store blip must not flag the occurrence failed; leave it
			// unsettled so the task retries.
			log.Printf("[ReminderHandler] Token lookup failed for user %s: %v", p.UserID, err)
			return err
		}

		proto := models.DeliveryAttempt{
			OccurrenceID: p.OccurrenceID,
			Target:       token,
			Channel:      models.ChannelPush,
		}
		outcome := deps.Dispatcher.Send(ctx, proto, dispatch.Payload{
			Title: p.Title,
			Body:  p.Body,
			Data: map[string]string{
				"type":         "reminder",
				"occurrenceId": p.OccurrenceID,
				"scheduleId":   p.ScheduleID,
				"category":     p.Category,
				"fireDate":     p.FireDate,
			},
		}, deps.Reminders)

		if outcome.Status == models.AttemptSent {
			if err := deps.Reminders.MarkOccurrenceDelivered(ctx, p.OccurrenceID); err != nil {
				log.Printf("[ReminderHandler] Failed to mark occurrence %s delivered: %v", p.OccurrenceID, err)
			}
		} else {
			if err := deps.Reminders.MarkOccurrenceFailed(ctx, p.OccurrenceID); err != nil {
				log.Printf("[ReminderHandler] Failed to mark occurrence %s failed: %v", p.OccurrenceID, err)
			}
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[Worker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
