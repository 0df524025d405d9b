// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vikingbio

import "fmt"

// AnomalyType represents different types of frame anomalies
type AnomalyType int

const (
	AnomalyFanRange AnomalyType = iota
	AnomalyErrorCode
	AnomalyLowTemp
)

// ValidationError represents a frame validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateData detects values a healthy burner should never report.
// Returns a slice of validation errors (empty if the data is plausible).
func ValidateData(d Data) []ValidationError {
	errors := []ValidationError{}

	if d.FanSpeed > MaxFanSpeed {
		errors = append(errors, ValidationError{
			Type:    AnomalyFanRange,
			Message: fmt.Sprintf("fan speed %d%% exceeds %d%%", d.FanSpeed, MaxFanSpeed),
			Details: map[string]interface{}{"fan_speed": d.FanSpeed},
		})
	}

	if d.ErrorCode != 0 {
		errors = append(errors, ValidationError{
			Type:    AnomalyErrorCode,
			Message: fmt.Sprintf("burner reports error code 0x%02X", d.ErrorCode),
			Details: map[string]interface{}{"error_code": d.ErrorCode},
		})
	}

	if d.Temperature < AmbientTemperature {
		errors = append(errors, ValidationError{
			Type:    AnomalyLowTemp,
			Message: fmt.Sprintf("temperature %d°C below ambient (%d°C)", d.Temperature, AmbientTemperature),
			Details: map[string]interface{}{"temperature": d.Temperature},
		})
	}

	return errors
}
