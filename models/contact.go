package models

// Notification channels supported by the delivery dispatcher.
const (
	ChannelPush      = "push"
	ChannelSMS       = "sms"
	ChannelVoice     = "voice"
	ChannelEmergency = "emergency_api"
)

// Contact tiers, in escalation order. Tiers escalate sequentially;
// contacts within a tier are notified concurrently.
const (
	TierPrimary          = "primary"
	TierSecondary        = "secondary"
	TierEmergencyService = "emergency_service"
)

// ContactChannel is one reachable endpoint for a contact.
type ContactChannel struct {
	Channel string `bson:"channel" json:"channel"` // "push", "sms", "voice", "emergency_api"
	Target  string `bson:"target" json:"target"`   // FCM token, phone number or API endpoint
}

// Contact represents one notification target in a user's escalation list.
// Contact data is written by the companion app's CRUD screens; the core
// only ever reads it.
type Contact struct {
	ID       string           `bson:"id" json:"id"`
	UserID   string           `bson:"user_id" json:"user_id"`
	Name     string           `bson:"name" json:"name"`
	Channels []ContactChannel `bson:"channels" json:"channels"`
	Tier     string           `bson:"tier" json:"tier"`
	Priority int              `bson:"priority" json:"priority"` // ordering within a tier, for display only
}

// ContactTier groups the contacts notified together before escalating.
type ContactTier struct {
	Name     string
	Contacts []Contact
}
