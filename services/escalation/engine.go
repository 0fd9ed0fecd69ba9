package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	contactRepo "careline/database/repository/contact"
	incidentRepo "careline/database/repository/incident"
	"careline/models"
	"careline/services/tasks"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultEngine is the production escalation engine.
type DefaultEngine struct {
	Incidents   incidentRepo.IncidentRepository
	Contacts    contactRepo.ContactRepository
	Enqueuer    tasks.Enqueuer
	TierTimeout time.Duration
	Logger      *zap.Logger
	Clock       func() time.Time // defaults to time.Now

	locks *keyedMutex
}

// NewDefaultEngine wires up the engine with its per-incident locks.
func NewDefaultEngine(
	incidents incidentRepo.IncidentRepository,
	contacts contactRepo.ContactRepository,
	enqueuer tasks.Enqueuer,
	tierTimeout time.Duration,
	logger *zap.Logger,
) *DefaultEngine {
	return &DefaultEngine{
		Incidents:   incidents,
		Contacts:    contacts,
		Enqueuer:    enqueuer,
		TierTimeout: tierTimeout,
		Logger:      logger,
		locks:       newKeyedMutex(),
	}
}

func (e *DefaultEngine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

func (e *DefaultEngine) RaiseIncident(ctx context.Context, trigger Trigger) (*models.Incident, bool, error) {
	now := e.now()
	inc := &models.Incident{
		ID:             uuid.New().String(),
		UserID:         trigger.UserID,
		TriggerType:    trigger.TriggerType,
		State:          models.StateTriggered,
		CurrentTier:    0,
		TierNotifiedAt: now, // lets the sweep re-drive tier 1 if we crash before notifying
		Location:       trigger.Location,
		Vitals:         trigger.Vitals,
		CreatedAt:      now,
	}

	stored, err := e.Incidents.CreateIfNoneActive(ctx, inc)
	if errors.Is(err, models.ErrDuplicateSuppressed) {
		e.Logger.Info("escalation: duplicate trigger coalesced",
			zap.String("userId", trigger.UserID),
			zap.String("incidentId", stored.ID))
		return stored, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("raising incident for user %s: %w", trigger.UserID, err)
	}

	// The incident is durable; tier-1 notification is driven now, and
	// re-driven by the sweep if anything below fails.
	if err := e.notifyTier(ctx, inc, 1); err != nil {
		e.Logger.Error("escalation: tier-1 notification failed, sweep will retry",
			zap.String("incidentId", inc.ID),
			zap.Error(err))
	}
	return inc, false, nil
}

// notifyTier advances the incident to the given tier and fans out one
// delivery task per contact channel. The entity lock covers only the
// state transition; enqueueing happens after release.
func (e *DefaultEngine) notifyTier(ctx context.Context, inc *models.Incident, tier int) error {
	tiers, err := e.Contacts.TiersFor(ctx, inc.UserID)
	if err != nil {
		return fmt.Errorf("loading contact tiers for user %s: %w", inc.UserID, err)
	}
	if tier > len(tiers) {
		// Nothing beyond the emergency-service tier. The incident stays
		// in EMERGENCY_SERVICES_NOTIFIED until resolved.
		return nil
	}
	target := tiers[tier-1]

	unlock := e.locks.Lock(inc.ID)
	if target.Name == models.TierEmergencyService {
		err = e.Incidents.MarkEmergencyNotified(ctx, inc.ID, tier, e.now())
	} else {
		err = e.Incidents.MarkTierNotifying(ctx, inc.ID, tier, e.now())
	}
	unlock()

	if errors.Is(err, models.ErrInvalidState) {
		// A concurrent sweep or outcome already moved the incident on.
		e.Logger.Debug("escalation: tier transition superseded",
			zap.String("incidentId", inc.ID),
			zap.Int("tier", tier))
		return nil
	}
	if err != nil {
		return fmt.Errorf("advancing incident %s to tier %d: %w", inc.ID, tier, err)
	}

	e.Logger.Info("escalation: notifying tier",
		zap.String("incidentId", inc.ID),
		zap.String("userId", inc.UserID),
		zap.Int("tier", tier),
		zap.String("tierName", target.Name),
		zap.Int("contacts", len(target.Contacts)))

	title, body := alertMessage(inc)
	g, gctx := errgroup.WithContext(ctx)
	for _, contact := range target.Contacts {
		for _, ch := range contact.Channels {
			payload := models.DeliveryPayload{
				IncidentID: inc.ID,
				UserID:     inc.UserID,
				Contact:    contact.Name,
				Channel:    ch.Channel,
				Target:     ch.Target,
				Title:      title,
				Body:       body,
			}
			g.Go(func() error {
				return e.Enqueuer.EnqueueDelivery(gctx, payload)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("enqueueing tier %d deliveries for incident %s: %w", tier, inc.ID, err)
	}
	return nil
}

func (e *DefaultEngine) OnDeliveryOutcome(ctx context.Context, incidentID, target, status string) {
	inc, escalate := e.evaluateOutcome(ctx, incidentID, status)
	if !escalate {
		return
	}

	e.Logger.Info("escalation: tier exhausted, escalating early",
		zap.String("incidentId", incidentID),
		zap.Int("fromTier", inc.CurrentTier),
		zap.Int("toTier", inc.CurrentTier+1))
	if err := e.notifyTier(ctx, inc, inc.CurrentTier+1); err != nil {
		e.Logger.Error("escalation: early tier escalation failed, sweep will retry",
			zap.String("incidentId", incidentID),
			zap.Error(err))
	}
}

// evaluateOutcome decides, under the entity lock, whether a failed
// outcome exhausted the current tier. The actual escalation happens
// after the lock is released.
func (e *DefaultEngine) evaluateOutcome(ctx context.Context, incidentID, status string) (*models.Incident, bool) {
	unlock := e.locks.Lock(incidentID)
	defer unlock()

	inc, err := e.Incidents.GetByID(ctx, incidentID)
	if err != nil {
		e.Logger.Error("escalation: outcome for unknown incident",
			zap.String("incidentId", incidentID),
			zap.Error(err))
		return nil, false
	}
	if models.IsTerminalState(inc.State) || inc.State == models.StateAcknowledged {
		// In-flight deliveries finishing after resolution or ack are
		// recorded in the attempt log but do not act on the machine.
		e.Logger.Info("escalation: ignoring outcome for settled incident",
			zap.String("incidentId", incidentID),
			zap.String("state", inc.State),
			zap.String("status", status))
		return nil, false
	}
	if status != models.AttemptFailed || inc.State != models.StateTierNotifying {
		return nil, false
	}

	// If every target in the current tier has terminally failed there is
	// no point waiting out the tier timeout.
	failedAll, err := e.tierFullyFailed(ctx, inc)
	if err != nil {
		e.Logger.Error("escalation: could not evaluate tier outcomes",
			zap.String("incidentId", incidentID),
			zap.Error(err))
		return nil, false
	}
	return inc, failedAll
}

// tierFullyFailed reports whether every contact channel in the current
// tier has at least one attempt and none succeeded. Only attempts made
// since the tier was notified count; a target shared between tiers
// must not carry an earlier tier's outcome into this one.
func (e *DefaultEngine) tierFullyFailed(ctx context.Context, inc *models.Incident) (bool, error) {
	tiers, err := e.Contacts.TiersFor(ctx, inc.UserID)
	if err != nil {
		return false, err
	}
	if inc.CurrentTier < 1 || inc.CurrentTier > len(tiers) {
		return false, nil
	}

	attempts, err := e.Incidents.Attempts(ctx, inc.ID)
	if err != nil {
		return false, err
	}
	outcomes := map[string]string{} // target -> best status seen
	for _, a := range attempts {
		if a.At.Before(inc.TierNotifiedAt) {
			continue
		}
		switch a.Status {
		case models.AttemptSent, models.AttemptDelivered, models.AttemptAcknowledged:
			outcomes[a.Target] = a.Status
		case models.AttemptFailed:
			if outcomes[a.Target] == "" {
				outcomes[a.Target] = models.AttemptFailed
			}
		}
	}

	for _, contact := range tiers[inc.CurrentTier-1].Contacts {
		for _, ch := range contact.Channels {
			if outcomes[ch.Target] != models.AttemptFailed {
				return false, nil
			}
		}
	}
	return true, nil
}

func (e *DefaultEngine) Acknowledge(ctx context.Context, incidentID, actor string) error {
	unlock := e.locks.Lock(incidentID)
	defer unlock()

	inc, err := e.Incidents.GetByID(ctx, incidentID)
	if err != nil {
		return fmt.Errorf("acknowledging incident %s: %w", incidentID, err)
	}
	if models.IsTerminalState(inc.State) {
		return models.ErrInvalidState
	}

	// Every ack lands in the audit log, including late ones.
	attempt := &models.DeliveryAttempt{
		IncidentID: incidentID,
		Target:     actor,
		Channel:    "ack",
		Status:     models.AttemptAcknowledged,
		At:         e.now(),
	}
	if err := e.Incidents.AppendAttempt(ctx, attempt); err != nil {
		e.Logger.Error("escalation: failed to record acknowledgment attempt",
			zap.String("incidentId", incidentID),
			zap.Error(err))
	}

	err = e.Incidents.MarkAcknowledged(ctx, incidentID, models.Acknowledgment{By: actor, At: e.now()})
	if errors.Is(err, models.ErrInvalidState) {
		// Someone acknowledged first; theirs won, ours is logged.
		e.Logger.Info("escalation: late acknowledgment recorded",
			zap.String("incidentId", incidentID),
			zap.String("actor", actor))
		return nil
	}
	if err != nil {
		return fmt.Errorf("acknowledging incident %s: %w", incidentID, err)
	}

	e.Logger.Info("escalation: incident acknowledged, escalation halted",
		zap.String("incidentId", incidentID),
		zap.String("actor", actor))
	return nil
}

func (e *DefaultEngine) Resolve(ctx context.Context, incidentID, resolver string) error {
	unlock := e.locks.Lock(incidentID)
	defer unlock()

	if err := e.Incidents.MarkResolved(ctx, incidentID, resolver, e.now()); err != nil {
		if errors.Is(err, models.ErrInvalidState) {
			return models.ErrInvalidState
		}
		return fmt.Errorf("resolving incident %s: %w", incidentID, err)
	}
	e.Logger.Info("escalation: incident resolved",
		zap.String("incidentId", incidentID),
		zap.String("resolver", resolver))
	return nil
}

func (e *DefaultEngine) SweepTimeouts(ctx context.Context) error {
	cutoff := e.now().Add(-e.TierTimeout)
	stale, err := e.Incidents.StaleNotifying(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("scanning stale incidents: %w", err)
	}

	for _, inc := range stale {
		inc := inc
		if err := e.notifyTier(ctx, &inc, inc.CurrentTier+1); err != nil {
			e.Logger.Error("escalation: sweep escalation failed",
				zap.String("incidentId", inc.ID),
				zap.Error(err))
		}
	}
	return nil
}

// alertMessage renders the outbound SOS text from the incident.
func alertMessage(inc *models.Incident) (title, body string) {
	title = "SOS Alert"
	var b strings.Builder
	fmt.Fprintf(&b, "SOS alert for user %s (trigger: %s).", inc.UserID, inc.TriggerType)
	if inc.Location != nil {
		fmt.Fprintf(&b, " Location: %s.", inc.Location.String())
	} else {
		b.WriteString(" Location unavailable.")
	}
	if inc.Vitals != nil {
		fmt.Fprintf(&b, " Vitals: SpO2 %.1f, BP %s, pulse %d.",
			inc.Vitals.SpO2, inc.Vitals.BloodPressure, inc.Vitals.Pulse)
		if !inc.Vitals.Normal() {
			b.WriteString(" VITALS ABNORMAL.")
		}
	}
	return title, b.String()
}
