// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package vikingbio

import (
	"fmt"
	"time"
)

// Statistics tracks frame statistics and error rates
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames     uint64
	ValidFrames     uint64
	DecodeErrors    uint64
	AnomalousFrames uint64
	FanRange        uint64
	ErrorCodes      uint64
	LowTemp         uint64
	Ignitions       uint64
	Extinguishes    uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec

	lastFlame *bool
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update updates statistics based on a frame and its errors
func (s *Statistics) Update(frame *Frame, decodeErr error, validationErrors []ValidationError) {
	s.TotalFrames++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.DecodeErrors++
		return
	}

	if len(validationErrors) > 0 {
		s.AnomalousFrames++
		for _, err := range validationErrors {
			switch err.Type {
			case AnomalyFanRange:
				s.FanRange++
			case AnomalyErrorCode:
				s.ErrorCodes++
			case AnomalyLowTemp:
				s.LowTemp++
			}
		}
	} else {
		s.ValidFrames++
	}

	if frame == nil {
		return
	}

	// Flame transitions
	flame := frame.Data.FlameDetected
	if s.lastFlame != nil && *s.lastFlame != flame {
		if flame {
			s.Ignitions++
		} else {
			s.Extinguishes++
		}
	}
	s.lastFlame = &flame
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.DecodeErrors+s.AnomalousFrames) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()
	return fmt.Sprintf("frames=%d valid=%d decode_errors=%d anomalous=%d ignitions=%d extinguishes=%d rate=%.2f/s",
		s.TotalFrames, s.ValidFrames, s.DecodeErrors, s.AnomalousFrames, s.Ignitions, s.Extinguishes, s.FrameRate)
}
