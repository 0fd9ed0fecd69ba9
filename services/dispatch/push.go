package dispatch

import (
	"context"
	"fmt"

	"careline/models"

	"firebase.google.com/go/v4/messaging"
)

// FCMSender is the subset of the Firebase messaging client the push
// channel needs.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushChannel delivers notifications to a device FCM token. SOS pushes
// go out with high-priority Android/APNS settings so they break through
// system throttling on sleeping devices.
type PushChannel struct {
	Client FCMSender
}

func (p *PushChannel) Name() string { return models.ChannelPush }

func (p *PushChannel) Send(ctx context.Context, target string, payload Payload) (string, error) {
	if target == "" {
		return "", Permanent(fmt.Errorf("push: empty FCM token"))
	}

	msg := &messaging.Message{
		Token: target,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	ref, err := p.Client.Send(ctx, msg)
	if err != nil {
		if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsInvalidArgument(err) {
			return "", Permanent(fmt.Errorf("push: failed to send FCM message: %w", err))
		}
		return "", fmt.Errorf("push: failed to send FCM message: %w", err)
	}
	return ref, nil
}
