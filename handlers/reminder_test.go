package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	reminderRepo "careline/database/repository/reminder"
	"careline/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReminders stubs the repository methods the handlers touch.
type fakeReminders struct {
	reminderRepo.ReminderRepository
	created    *models.ReminderSchedule
	snoozeErr  error
	snoozed    time.Duration
	deactErr   error
	ackErr     error
	failedList []models.ReminderOccurrence
}

func (f *fakeReminders) CreateSchedule(ctx context.Context, s *models.ReminderSchedule) error {
	f.created = s
	return nil
}

func (f *fakeReminders) Snooze(ctx context.Context, id string, by time.Duration) (*models.ReminderSchedule, error) {
	if f.snoozeErr != nil {
		return nil, f.snoozeErr
	}
	f.snoozed = by
	return &models.ReminderSchedule{ID: id, NextFireAt: time.Now().Add(by)}, nil
}

func (f *fakeReminders) Deactivate(ctx context.Context, id string) error { return f.deactErr }

func (f *fakeReminders) AckOccurrence(ctx context.Context, id string) error { return f.ackErr }

func (f *fakeReminders) FailedOccurrences(ctx context.Context, userID string, skip, limit int64) ([]models.ReminderOccurrence, error) {
	return f.failedList, nil
}

func TestCreateHandler_SeedsNextFire(t *testing.T) {
	repo := &fakeReminders{}
	h := NewReminderHandler(repo)

	fireAt := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	w := performJSON(t, h.CreateHandler, http.MethodPost, "/api/reminders", gin.H{
		"user_id":  "user-1",
		"kind":     models.KindOneOff,
		"rule":     gin.H{"fire_at": fireAt.Format(time.RFC3339)},
		"category": models.CategoryMedication,
		"text":     "Take morning pills",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.True(t, repo.created.Active)
	assert.True(t, repo.created.NextFireAt.Equal(fireAt))
	assert.NotEmpty(t, decodeBody(t, w)["schedule_id"])
}

func TestCreateHandler_IntervalNextFireOneStepOut(t *testing.T) {
	repo := &fakeReminders{}
	h := NewReminderHandler(repo)

	before := time.Now()
	w := performJSON(t, h.CreateHandler, http.MethodPost, "/api/reminders", gin.H{
		"user_id":  "user-1",
		"kind":     models.KindInterval,
		"rule":     gin.H{"every_seconds": 3600},
		"category": models.CategoryTask,
		"text":     "Drink a glass of water",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.WithinDuration(t, before.Add(time.Hour), repo.created.NextFireAt, 5*time.Second)
}

func TestCreateHandler_InvalidRuleIs422(t *testing.T) {
	h := NewReminderHandler(&fakeReminders{})

	tests := []struct {
		name string
		body gin.H
	}{
		{"past one-off", gin.H{
			"user_id": "u1", "kind": models.KindOneOff, "category": models.CategoryTask, "text": "x",
			"rule": gin.H{"fire_at": time.Now().Add(-time.Hour).Format(time.RFC3339)},
		}},
		{"interval too short", gin.H{
			"user_id": "u1", "kind": models.KindInterval, "category": models.CategoryTask, "text": "x",
			"rule": gin.H{"every_seconds": 10},
		}},
		{"weekly without days", gin.H{
			"user_id": "u1", "kind": models.KindWeekly, "category": models.CategoryTask, "text": "x",
			"rule": gin.H{"time_of_day": "09:00", "timezone": "UTC"},
		}},
		{"unknown kind", gin.H{
			"user_id": "u1", "kind": "lunar", "category": models.CategoryTask, "text": "x",
			"rule": gin.H{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performJSON(t, h.CreateHandler, http.MethodPost, "/api/reminders", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		})
	}
}

func performWithParam(t *testing.T, handler gin.HandlerFunc, method, path, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: id}}
	handler(c)
	return w
}

func TestSnoozeHandler(t *testing.T) {
	repo := &fakeReminders{}
	h := NewReminderHandler(repo)

	w := performWithParam(t, h.SnoozeHandler, http.MethodPost, "/api/reminders/s1/snooze", "s1", gin.H{"minutes": 15})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 15*time.Minute, repo.snoozed)

	// Bounds: zero and beyond 24h are rejected.
	w = performWithParam(t, h.SnoozeHandler, http.MethodPost, "/api/reminders/s1/snooze", "s1", gin.H{"minutes": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = performWithParam(t, h.SnoozeHandler, http.MethodPost, "/api/reminders/s1/snooze", "s1", gin.H{"minutes": 2000})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Inactive or unknown schedules are a 404.
	h = NewReminderHandler(&fakeReminders{snoozeErr: models.ErrNotFound})
	w = performWithParam(t, h.SnoozeHandler, http.MethodPost, "/api/reminders/s1/snooze", "s1", gin.H{"minutes": 15})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCancelHandler(t *testing.T) {
	h := NewReminderHandler(&fakeReminders{})
	w := performWithParam(t, h.CancelHandler, http.MethodDelete, "/api/reminders/s1", "s1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["active"])

	h = NewReminderHandler(&fakeReminders{deactErr: models.ErrNotFound})
	w = performWithParam(t, h.CancelHandler, http.MethodDelete, "/api/reminders/nope", "nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReminderAckHandler(t *testing.T) {
	h := NewReminderHandler(&fakeReminders{})
	w := performJSON(t, h.AckHandler, http.MethodPost, "/api/reminders/ack", gin.H{
		"occurrence_id": "occ-1", "actor": "user-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["acknowledged"])

	h = NewReminderHandler(&fakeReminders{ackErr: models.ErrNotFound})
	w = performJSON(t, h.AckHandler, http.MethodPost, "/api/reminders/ack", gin.H{
		"occurrence_id": "occ-x", "actor": "user-1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
