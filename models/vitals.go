package models

import (
	"fmt"
	"strconv"
	"strings"
)

// VitalSigns carries the device-reported vitals attached to an SOS
// trigger. They are forwarded verbatim to contacts and emergency
// services; the core only validates the format.
type VitalSigns struct {
	SpO2          float64 `bson:"spo2" json:"spo2"`
	BloodPressure string  `bson:"blood_pressure" json:"blood_pressure"` // "systolic/diastolic"
	Pulse         int     `bson:"pulse" json:"pulse"`
}

// Validate checks the blood pressure format ("120/80", positive integers).
func (v *VitalSigns) Validate() error {
	parts := strings.Split(v.BloodPressure, "/")
	if len(parts) != 2 {
		return fmt.Errorf("blood pressure must be \"systolic/diastolic\", got %q", v.BloodPressure)
	}
	systolic, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("invalid systolic value %q: %w", parts[0], err)
	}
	diastolic, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid diastolic value %q: %w", parts[1], err)
	}
	if systolic <= 0 || diastolic <= 0 {
		return fmt.Errorf("blood pressure values must be positive, got %d/%d", systolic, diastolic)
	}
	return nil
}

// Normal reports whether the vitals are within normal ranges. Abnormal
// vitals are highlighted in the alert message body.
func (v *VitalSigns) Normal() bool {
	return v.SpO2 > 90 && v.Pulse >= 60 && v.Pulse <= 100
}
