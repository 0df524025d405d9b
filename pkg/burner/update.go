// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package burner

import "math/rand"

// Source supplies uniform randomness. *rand.Rand satisfies it.
type Source interface {
	// Float64 returns a value in [0.0, 1.0)
	Float64() float64
	// Intn returns a value in [0, n)
	Intn(n int) int
}

// NewSource returns a deterministic source for the given seed
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Event is the discrete combustion transition taken during a tick
type Event int

const (
	EventNone Event = iota
	EventIgnition
	EventExtinguish
)

// String implements fmt.Stringer
func (e Event) String() string {
	switch e {
	case EventNone:
		return "none"
	case EventIgnition:
		return "ignition"
	case EventExtinguish:
		return "extinguish"
	default:
		return "unknown"
	}
}

// Step advances the burner by one tick. It is Transition followed by Ramp,
// so a tick that ignites also starts ramping the fan.
func Step(s State, src Source) (State, Event) {
	s, ev := Transition(s, src)
	return Ramp(s, src), ev
}

// Transition applies the discrete ignition and extinguish rules.
// At most one draw is consumed.
func Transition(s State, src Source) (State, Event) {
	if !s.FlameOn {
		if src.Float64() < IgnitionProbability {
			s.FlameOn = true
			s.FanSpeed = IgnitionFanSpeed
			return s, EventIgnition
		}
		return s, EventNone
	}

	if src.Float64() < ExtinguishProbability {
		s.FlameOn = false
		s.FanSpeed = 0
		s.Temperature = max(AmbientTemperature, s.Temperature-ExtinguishTempDrop)
		return s, EventExtinguish
	}
	return s, EventNone
}

// Ramp applies the continuous fan and thermal approximations
func Ramp(s State, src Source) State {
	if s.FlameOn {
		if s.FanSpeed < FanRampCeiling {
			s.FanSpeed = min(FanRampCeiling, s.FanSpeed+drawInt(src, FanRampStepMin, FanRampStepMax))
		} else {
			s.FanSpeed = clamp(s.FanSpeed+drawInt(src, -FanJitter, FanJitter), FanBandLow, FanBandHigh)
		}

		if s.Temperature < s.TargetTemperature {
			s.Temperature = min(s.TargetTemperature, s.Temperature+drawInt(src, HeatStepMin, HeatStepMax))
		}
		return s
	}

	if s.Temperature > AmbientTemperature {
		s.Temperature = max(AmbientTemperature, s.Temperature-drawInt(src, CoolStepMin, CoolStepMax))
	}
	return s
}

// drawInt returns a uniform integer in [lo, hi]
func drawInt(src Source, lo, hi int) int {
	return lo + src.Intn(hi-lo+1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
