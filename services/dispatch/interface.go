package dispatch

import (
	"context"
	"errors"

	"careline/models"
)

// Payload is the channel-agnostic message content for one outbound
// notification.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Outcome is the terminal result of a Send after all retries.
type Outcome struct {
	Status      string // models.AttemptSent or models.AttemptFailed
	ProviderRef string
	Attempts    int
}

// Channel is the capability interface every outbound provider
// implements. Implementations are selected by contact channel so the
// engine and scheduler stay channel-agnostic.
type Channel interface {
	Name() string
	// Send pushes one message to the target and returns a provider
	// reference for auditing. Wrap non-retryable failures with Permanent.
	Send(ctx context.Context, target string, payload Payload) (providerRef string, err error)
}

// Recorder appends delivery attempts to the durable log, assigning the
// next attempt_number. Implemented by the incident and reminder repos.
type Recorder interface {
	AppendAttempt(ctx context.Context, attempt *models.DeliveryAttempt) error
}

// Dispatcher sends one notification over one channel, retrying transient
// failures with exponential backoff. Every attempt, including retries,
// appends a DeliveryAttempt record.
type Dispatcher interface {
	// Send uses proto as the attempt template: its incident/occurrence
	// reference, target and channel identify what is being delivered.
	Send(ctx context.Context, proto models.DeliveryAttempt, payload Payload, rec Recorder) Outcome
}

// permanentError marks a failure that retrying cannot fix (bad token,
// unknown number, 4xx from a provider).
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so the dispatcher reports it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
