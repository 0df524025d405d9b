// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package burner models the observable behavior of a Viking Bio 20 pellet
// burner: combustion on/off, fan duty and boiler temperature.
package burner

import (
	"fmt"

	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

// Behavioral constants. These are fixtures the bridge firmware is tested
// against and must not be tuned.
const (
	AmbientTemperature       = vikingbio.AmbientTemperature
	DefaultTargetTemperature = 75
	MaxTemperature           = 0xFFFF

	IgnitionProbability   = 0.10
	ExtinguishProbability = 0.05

	IgnitionFanSpeed = 30
	FanRampCeiling   = 80
	FanRampStepMin   = 5
	FanRampStepMax   = 15
	FanBandLow       = 70
	FanBandHigh      = 90
	FanJitter        = 5

	ExtinguishTempDrop = 10
	HeatStepMin        = 1
	HeatStepMax        = 3
	CoolStepMin        = 1
	CoolStepMax        = 2
)

// State is the burner's physical state
type State struct {
	FlameOn           bool
	FanSpeed          int // percent of maximum fan duty, 0-100
	Temperature       int // degrees Celsius, never below ambient
	TargetTemperature int // fixed at construction
}

// NewState returns a cold, idle burner heading for target
func NewState(target int) State {
	return State{
		FlameOn:           false,
		FanSpeed:          0,
		Temperature:       AmbientTemperature,
		TargetTemperature: target,
	}
}

// ValidateTarget checks that a target temperature is reachable and encodable
func ValidateTarget(target int) error {
	if target < AmbientTemperature || target > MaxTemperature {
		return fmt.Errorf("target temperature %d out of range [%d, %d]", target, AmbientTemperature, MaxTemperature)
	}
	return nil
}

// Data converts the state into a wire status report
func (s State) Data() vikingbio.Data {
	return vikingbio.Data{
		FlameDetected: s.FlameOn,
		FanSpeed:      uint8(s.FanSpeed),
		Temperature:   uint16(s.Temperature),
	}
}

// String implements fmt.Stringer
func (s State) String() string {
	return fmt.Sprintf("flame=%s fan=%d%% temp=%d°C", vikingbio.FormatFlame(s.FlameOn), s.FanSpeed, s.Temperature)
}
