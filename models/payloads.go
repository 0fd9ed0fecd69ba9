package models

// ReminderPayload is the asynq task payload for a reminder occurrence fire.
type ReminderPayload struct {
	OccurrenceID string `json:"occurrenceId"`
	ScheduleID   string `json:"scheduleId"`
	UserID       string `json:"userId"`
	Category     string `json:"category"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	FireDate     string `json:"fireDate"`
}

// DeliveryPayload is the asynq task payload for one outbound SOS
// notification to a single contact channel.
type DeliveryPayload struct {
	IncidentID string `json:"incidentId"`
	UserID     string `json:"userId"`
	Contact    string `json:"contact"`
	Channel    string `json:"channel"`
	Target     string `json:"target"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}
