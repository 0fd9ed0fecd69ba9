// File: utils/constants.go
package utils

import (
	"time"

	"careline/config"
)

// DedupKeyPrefix is the prefix used for Redis ingress dedup keys.
const DedupKeyPrefix = "ingress:"

// DedupKeyTTL is the time-to-live for ingress dedup entries. A blind
// client retry inside this window returns the original result instead
// of creating a second incident.
func DedupKeyTTL() time.Duration {
	if config.AppConfig.DedupWindowSeconds > 0 {
		return time.Duration(config.AppConfig.DedupWindowSeconds) * time.Second
	}
	return 5 * time.Minute
}
