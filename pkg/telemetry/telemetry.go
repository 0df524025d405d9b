// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package telemetry mirrors simulated burner samples to MQTT so dashboards
// can follow what the simulator is feeding the bridge.
package telemetry

import (
	"encoding/json"
	"time"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/simulator"
	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

// DefaultTopicPrefix is used when no prefix is configured
const DefaultTopicPrefix = "vikingsim"

// Topic suffixes
const (
	TopicState        = "/state"
	TopicAvailability = "/availability"
)

// Availability payloads
const (
	Online  = "online"
	Offline = "offline"
)

// Publisher publishes simulator samples. It implements simulator.Observer.
type Publisher interface {
	// Observe publishes one sample.
	// Returns error if publishing fails (should not stop the simulator).
	Observe(sample simulator.Sample) error

	// Close publishes offline availability and disconnects.
	Close() error
}

// Payload represents the MQTT message payload structure
type Payload struct {
	Burner BurnerPayload `json:"burner"`
}

// BurnerPayload contains one sample
type BurnerPayload struct {
	Timestamp   string `json:"timestamp"`
	Tick        uint64 `json:"tick"`
	Flame       bool   `json:"flame"`
	FanSpeed    int    `json:"fan_speed"`
	Temperature int    `json:"temperature"`
	Target      int    `json:"target_temperature"`
	Event       string `json:"event,omitempty"`
	Protocol    string `json:"protocol"`
	Raw         string `json:"raw"`
}

// FormatPayload creates the JSON payload for a sample
func FormatPayload(sample simulator.Sample) ([]byte, error) {
	payload := Payload{
		Burner: BurnerPayload{
			Timestamp:   sample.Time.UTC().Format(time.RFC3339Nano),
			Tick:        sample.Tick,
			Flame:       sample.State.FlameOn,
			FanSpeed:    sample.State.FanSpeed,
			Temperature: sample.State.Temperature,
			Target:      sample.State.TargetTemperature,
			Protocol:    string(sample.Protocol),
			Raw:         vikingbio.FormatRaw(sample.Protocol, sample.Frame),
		},
	}
	if sample.Event != burner.EventNone {
		payload.Burner.Event = sample.Event.String()
	}
	return json.Marshal(payload)
}
