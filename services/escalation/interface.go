package escalation

import (
	"context"

	"careline/models"
)

// Engine drives the per-incident escalation state machine. All state
// lives in the incident store; the engine itself is stateless apart
// from per-incident locks, so a restart recovers purely from the store
// plus the tier-timeout sweep.
type Engine interface {
	// RaiseIncident creates an incident for the trigger, or coalesces
	// onto the user's active one. coalesced is true when suppressed; the
	// returned incident is then the existing one.
	RaiseIncident(ctx context.Context, trigger Trigger) (incident *models.Incident, coalesced bool, err error)

	// OnDeliveryOutcome feeds a terminal dispatcher outcome back into the
	// state machine. Outcomes for terminal incidents are logged and
	// ignored.
	OnDeliveryOutcome(ctx context.Context, incidentID, target, status string)

	// Acknowledge records a contact's confirmation. The first ack halts
	// escalation; later acks are logged as attempts without changing
	// state. Acknowledging a terminal incident returns
	// models.ErrInvalidState.
	Acknowledge(ctx context.Context, incidentID, actor string) error

	// Resolve is the explicit terminal transition, from any live state.
	Resolve(ctx context.Context, incidentID, resolver string) error

	// SweepTimeouts escalates every live incident whose current tier has
	// been waiting longer than the configured tier timeout. Safe to run
	// concurrently with itself.
	SweepTimeouts(ctx context.Context) error
}

// Trigger is the canonical ingress event after normalization.
type Trigger struct {
	UserID      string
	TriggerType string // "button", "voice" or "auto"
	Location    *models.Location
	Vitals      *models.VitalSigns
}
