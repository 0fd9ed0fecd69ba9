package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	incidentRepo "careline/database/repository/incident"
	reminderRepo "careline/database/repository/reminder"
	"careline/models"
	"careline/services/dispatch"
	"careline/services/escalation"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedDispatcher returns a canned outcome and records what it sent.
type fixedDispatcher struct {
	outcome dispatch.Outcome
	sent    []models.DeliveryAttempt
	payload dispatch.Payload
}

func (d *fixedDispatcher) Send(ctx context.Context, proto models.DeliveryAttempt, payload dispatch.Payload, rec dispatch.Recorder) dispatch.Outcome {
	d.sent = append(d.sent, proto)
	d.payload = payload
	return d.outcome
}

// outcomeEngine records delivery outcomes fed back by the worker.
type outcomeEngine struct {
	escalation.Engine
	outcomes []string
}

func (e *outcomeEngine) OnDeliveryOutcome(ctx context.Context, incidentID, target, status string) {
	e.outcomes = append(e.outcomes, incidentID+"|"+target+"|"+status)
}

// flagReminders records delivered/failed marks and serves a canned
// occurrence lookup.
type flagReminders struct {
	reminderRepo.ReminderRepository
	occ       *models.ReminderOccurrence
	lookupErr error
	delivered []string
	failed    []string
}

func (r *flagReminders) GetOccurrence(ctx context.Context, id string) (*models.ReminderOccurrence, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	if r.occ != nil {
		return r.occ, nil
	}
	return &models.ReminderOccurrence{ID: id}, nil
}

func (r *flagReminders) MarkOccurrenceDelivered(ctx context.Context, id string) error {
	r.delivered = append(r.delivered, id)
	return nil
}

func (r *flagReminders) MarkOccurrenceFailed(ctx context.Context, id string) error {
	r.failed = append(r.failed, id)
	return nil
}

// tokenUsers serves one FCM token.
type tokenUsers struct {
	token string
	err   error
}

func (u *tokenUsers) FCMToken(ctx context.Context, userID string) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if u.token == "" {
		return "", models.ErrNotFound
	}
	return u.token, nil
}

type noopIncidents struct {
	incidentRepo.IncidentRepository
}

func deliveryTask(t *testing.T, p models.DeliveryPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask("delivery:send", raw)
}

func reminderTask(t *testing.T, p models.ReminderPayload) *asynq.Task {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	return asynq.NewTask("reminder:send", raw)
}

func TestHandleDeliveryTask_FeedsOutcomeToEngine(t *testing.T) {
	disp := &fixedDispatcher{outcome: dispatch.Outcome{Status: models.AttemptSent, ProviderRef: "ref-1"}}
	engine := &outcomeEngine{}
	deps := WorkerDeps{
		Dispatcher: disp,
		Engine:     engine,
		Incidents:  &noopIncidents{},
	}

	task := deliveryTask(t, models.DeliveryPayload{
		IncidentID: "inc-1",
		UserID:     "user-1",
		Contact:    "Daughter",
		Channel:    models.ChannelSMS,
		Target:     "+15550001111",
		Title:      "SOS Alert",
		Body:       "help",
	})
	require.NoError(t, handleDeliveryTask(deps)(context.Background(), task))

	require.Len(t, disp.sent, 1)
	assert.Equal(t, "inc-1", disp.sent[0].IncidentID)
	assert.Equal(t, models.ChannelSMS, disp.sent[0].Channel)
	assert.Equal(t, "sos", disp.payload.Data["type"])

	require.Len(t, engine.outcomes, 1)
	assert.Equal(t, "inc-1|+15550001111|sent", engine.outcomes[0])
}

func TestHandleDeliveryTask_InvalidPayload(t *testing.T) {
	deps := WorkerDeps{Dispatcher: &fixedDispatcher{}, Engine: &outcomeEngine{}}
	task := asynq.NewTask("delivery:send", []byte("not json"))
	assert.Error(t, handleDeliveryTask(deps)(context.Background(), task))
}

func TestHandleReminderTask_MarksDelivered(t *testing.T) {
	disp := &fixedDispatcher{outcome: dispatch.Outcome{Status: models.AttemptSent}}
	reminders := &flagReminders{}
	deps := WorkerDeps{
		Dispatcher: disp,
		Reminders:  reminders,
		Users:      &tokenUsers{token: "fcm-token-1"},
	}

	task := reminderTask(t, models.ReminderPayload{
		OccurrenceID: "occ-1",
		ScheduleID:   "s1",
		UserID:       "user-1",
		Category:     models.CategoryMedication,
		Title:        "Medication reminder",
		Body:         "Take morning pills",
	})
	require.NoError(t, handleReminderTask(deps)(context.Background(), task))

	require.Len(t, disp.sent, 1)
	assert.Equal(t, "occ-1", disp.sent[0].OccurrenceID)
	assert.Equal(t, "fcm-token-1", disp.sent[0].Target)
	assert.Equal(t, models.ChannelPush, disp.sent[0].Channel)
	assert.Equal(t, "reminder", disp.payload.Data["type"])

	assert.Equal(t, []string{"occ-1"}, reminders.delivered)
	assert.Empty(t, reminders.failed)
}

func TestHandleReminderTask_MarksFailed(t *testing.T) {
	disp := &fixedDispatcher{outcome: dispatch.Outcome{Status: models.AttemptFailed}}
	reminders := &flagReminders{}
	deps := WorkerDeps{
		Dispatcher: disp,
		Reminders:  reminders,
		Users:      &tokenUsers{}, // no device token registered
	}

	task := reminderTask(t, models.ReminderPayload{OccurrenceID: "occ-1", UserID: "user-1"})
	require.NoError(t, handleReminderTask(deps)(context.Background(), task))

	assert.Equal(t, []string{"occ-1"}, reminders.failed)
	assert.Empty(t, reminders.delivered)
}

func TestHandleReminderTask_SettledOccurrenceSkipped(t *testing.T) {
	disp := &fixedDispatcher{outcome: dispatch.Outcome{Status: models.AttemptSent}}
	reminders := &flagReminders{occ: &models.ReminderOccurrence{ID: "occ-1", Delivered: true}}
	deps := WorkerDeps{
		Dispatcher: disp,
		Reminders:  reminders,
		Users:      &tokenUsers{token: "fcm-token-1"},
	}

	// A re-fired slot whose earlier task already delivered must not
	// notify the user again.
	task := reminderTask(t, models.ReminderPayload{OccurrenceID: "occ-1", UserID: "user-1"})
	require.NoError(t, handleReminderTask(deps)(context.Background(), task))

	assert.Empty(t, disp.sent)
	assert.Empty(t, reminders.delivered)
	assert.Empty(t, reminders.failed)
}

func TestHandleReminderTask_OccurrenceLookupErrorRetried(t *testing.T) {
	disp := &fixedDispatcher{}
	reminders := &flagReminders{lookupErr: errors.New("connection reset")}
	deps := WorkerDeps{
		Dispatcher: disp,
		Reminders:  reminders,
		Users:      &tokenUsers{token: "fcm-token-1"},
	}

	task := reminderTask(t, models.ReminderPayload{OccurrenceID: "occ-1", UserID: "user-1"})
	assert.Error(t, handleReminderTask(deps)(context.Background(), task))
	assert.Empty(t, disp.sent)
	assert.Empty(t, reminders.failed)
}

func TestHandleReminderTask_TokenLookupErrorLeavesOccurrenceUnsettled(t *testing.T) {
	disp := &fixedDispatcher{}
	reminders := &flagReminders{}
	deps := WorkerDeps{
		Dispatcher: disp,
		Reminders:  reminders,
		Users:      &tokenUsers{err: errors.New("connection reset")},
	}

	// A store blip is not a delivery failure; the task error triggers a
	// retry instead of flagging the occurrence for caregivers.
	task := reminderTask(t, models.ReminderPayload{OccurrenceID: "occ-1", UserID: "user-1"})
	assert.Error(t, handleReminderTask(deps)(context.Background(), task))
	assert.Empty(t, disp.sent)
	assert.Empty(t, reminders.failed)
	assert.Empty(t, reminders.delivered)
}
