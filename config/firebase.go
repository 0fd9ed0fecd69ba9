package config

// FirebaseServiceAccountKeyPath points at the JSON key used to
// authenticate the FCM client. Override via environment for deployments.
var FirebaseServiceAccountKeyPath = "config/firebase-service-account.json"
