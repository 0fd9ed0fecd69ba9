package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVitalSignsValidate(t *testing.T) {
	tests := []struct {
		name    string
		bp      string
		wantErr bool
	}{
		{"normal", "120/80", false},
		{"high", "180/110", false},
		{"missing slash", "12080", true},
		{"too many parts", "120/80/60", true},
		{"non numeric", "abc/80", true},
		{"zero systolic", "0/80", true},
		{"negative diastolic", "120/-10", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &VitalSigns{SpO2: 97, BloodPressure: tt.bp, Pulse: 72}
			err := v.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVitalSignsNormal(t *testing.T) {
	assert.True(t, (&VitalSigns{SpO2: 97, Pulse: 72}).Normal())
	assert.False(t, (&VitalSigns{SpO2: 88, Pulse: 72}).Normal())
	assert.False(t, (&VitalSigns{SpO2: 97, Pulse: 45}).Normal())
	assert.False(t, (&VitalSigns{SpO2: 97, Pulse: 130}).Normal())

	// Boundary values.
	assert.False(t, (&VitalSigns{SpO2: 90, Pulse: 72}).Normal())
	assert.True(t, (&VitalSigns{SpO2: 90.1, Pulse: 60}).Normal())
	assert.True(t, (&VitalSigns{SpO2: 99, Pulse: 100}).Normal())
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("12.971599, 77.594566")
	require.NoError(t, err)
	assert.InDelta(t, 12.971599, loc.Latitude, 1e-9)
	assert.InDelta(t, 77.594566, loc.Longitude, 1e-9)
	assert.Equal(t, "12.971599, 77.594566", loc.String())

	// No space after the comma is fine too.
	loc, err = ParseLocation("-33.8688,151.2093")
	require.NoError(t, err)
	assert.InDelta(t, -33.8688, loc.Latitude, 1e-9)

	for _, raw := range []string{"", "12.97", "a, b", "91.0, 10.0", "45.0, 181.0"} {
		_, err := ParseLocation(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
