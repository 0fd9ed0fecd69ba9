package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is a GPS fix attached to an incident. The fix comes from the
// device's location provider; the core tolerates its absence.
type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

// ParseLocation parses a "lat, lon" string as sent by the companion app
// and validates coordinate ranges.
func ParseLocation(raw string) (*Location, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("location must be \"lat, lon\", got %q", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", parts[0], err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", parts[1], err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}
	return &Location{Latitude: lat, Longitude: lon}, nil
}

// String renders the fix the way outbound alert messages expect it.
func (l *Location) String() string {
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}
