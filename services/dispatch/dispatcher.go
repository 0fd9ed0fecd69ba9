package dispatch

import (
	"context"
	"fmt"
	"time"

	"careline/models"

	"go.uber.org/zap"
)

// DefaultDispatcher is the production dispatcher. Channels are keyed by
// contact channel name ("push", "sms", "voice", "emergency_api").
type DefaultDispatcher struct {
	Channels    map[string]Channel
	MaxAttempts int
	BackoffBase time.Duration
	SendTimeout time.Duration
	Logger      *zap.Logger
	Clock       func() time.Time // defaults to time.Now
}

func (d *DefaultDispatcher) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// Send delivers the payload, retrying transient failures with
// exponential backoff (base, 2*base, 4*base, ...). It records one
// DeliveryAttempt per try and returns the terminal outcome. Callers
// must not hold entity locks across this call.
func (d *DefaultDispatcher) Send(ctx context.Context, proto models.DeliveryAttempt, payload Payload, rec Recorder) Outcome {
	ch, ok := d.Channels[proto.Channel]
	if !ok {
		d.Logger.Error("dispatch: unknown channel",
			zap.String("channel", proto.Channel),
			zap.String("target", proto.Target))
		d.record(ctx, proto, models.AttemptFailed, "", rec)
		return Outcome{Status: models.AttemptFailed, Attempts: 1}
	}

	var lastRef string
	for try := 1; try <= d.MaxAttempts; try++ {
		sendCtx, cancel := context.WithTimeout(ctx, d.SendTimeout)
		ref, err := ch.Send(sendCtx, proto.Target, payload)
		cancel()
		lastRef = ref

		if err == nil {
			d.record(ctx, proto, models.AttemptSent, ref, rec)
			return Outcome{Status: models.AttemptSent, ProviderRef: ref, Attempts: try}
		}

		d.record(ctx, proto, models.AttemptFailed, ref, rec)

		if IsPermanent(err) {
			d.Logger.Warn("dispatch: permanent delivery failure",
				zap.String("channel", ch.Name()),
				zap.String("target", proto.Target),
				zap.Error(err))
			return Outcome{Status: models.AttemptFailed, ProviderRef: ref, Attempts: try}
		}

		d.Logger.Warn("dispatch: transient delivery failure",
			zap.String("channel", ch.Name()),
			zap.String("target", proto.Target),
			zap.Int("attempt", try),
			zap.Error(err))

		if try == d.MaxAttempts {
			break
		}
		backoff := d.BackoffBase << (try - 1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return Outcome{Status: models.AttemptFailed, ProviderRef: ref, Attempts: try}
		}
	}

	return Outcome{Status: models.AttemptFailed, ProviderRef: lastRef, Attempts: d.MaxAttempts}
}

// record appends one attempt. A failed append is logged, never raised:
// losing an audit row must not abort a delivery in flight.
func (d *DefaultDispatcher) record(ctx context.Context, proto models.DeliveryAttempt, status, ref string, rec Recorder) {
	attempt := proto
	attempt.Status = status
	attempt.ProviderRef = ref
	attempt.At = d.now()
	if err := rec.AppendAttempt(ctx, &attempt); err != nil {
		d.Logger.Error("dispatch: failed to record delivery attempt",
			zap.String("target", proto.Target),
			zap.Error(fmt.Errorf("appending attempt: %w", err)))
	}
}
