package models

import "time"

// Incident states. TRIGGERED through EMERGENCY_SERVICES_NOTIFIED are
// live; RESOLVED and MERGED are terminal and immutable.
const (
	StateTriggered         = "TRIGGERED"
	StateTierNotifying     = "TIER_NOTIFYING"
	StateAcknowledged      = "ACKNOWLEDGED"
	StateEmergencyNotified = "EMERGENCY_SERVICES_NOTIFIED"
	StateResolved          = "RESOLVED"
	StateMerged            = "MERGED"
)

// Trigger types accepted by the ingress API.
const (
	TriggerButton = "button"
	TriggerVoice  = "voice"
	TriggerAuto   = "auto"
)

// Delivery attempt statuses.
const (
	AttemptPending      = "pending"
	AttemptSent         = "sent"
	AttemptDelivered    = "delivered"
	AttemptFailed       = "failed"
	AttemptAcknowledged = "acknowledged"
)

// IsTerminalState reports whether a state admits no further transitions.
func IsTerminalState(state string) bool {
	return state == StateResolved || state == StateMerged
}

// Acknowledgment records who confirmed an incident and when. First
// write wins; later acks are kept as delivery attempts only.
type Acknowledgment struct {
	By string    `bson:"by" json:"by"`
	At time.Time `bson:"at" json:"at"`
}

// Incident represents one SOS episode from trigger to resolution.
type Incident struct {
	ID             string          `bson:"id" json:"id"`
	UserID         string          `bson:"user_id" json:"user_id"`
	TriggerType    string          `bson:"trigger_type" json:"trigger_type"`
	State          string          `bson:"state" json:"state"`
	CurrentTier    int             `bson:"current_tier" json:"current_tier"` // index into the user's tier list
	TierNotifiedAt time.Time       `bson:"tier_notified_at" json:"tier_notified_at"`
	Location       *Location       `bson:"location,omitempty" json:"location,omitempty"`
	Vitals         *VitalSigns     `bson:"vitals,omitempty" json:"vitals,omitempty"`
	Acknowledgment *Acknowledgment `bson:"acknowledgment,omitempty" json:"acknowledgment,omitempty"`
	AttemptCount   int             `bson:"attempt_count" json:"attempt_count"` // highest attempt_number issued so far
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	ClosedAt       *time.Time      `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
}

// DeliveryAttempt is one append-only log entry for an outbound send.
// Attempts are never mutated; retries append new records, so the full
// history of an incident or occurrence can be replayed.
type DeliveryAttempt struct {
	ID            string    `bson:"id" json:"id"`
	IncidentID    string    `bson:"incident_id,omitempty" json:"incident_id,omitempty"`
	OccurrenceID  string    `bson:"occurrence_id,omitempty" json:"occurrence_id,omitempty"`
	Target        string    `bson:"target" json:"target"`
	Channel       string    `bson:"channel" json:"channel"`
	AttemptNumber int       `bson:"attempt_number" json:"attempt_number"`
	Status        string    `bson:"status" json:"status"`
	ProviderRef   string    `bson:"provider_ref,omitempty" json:"provider_ref,omitempty"`
	At            time.Time `bson:"at" json:"at"`
}
