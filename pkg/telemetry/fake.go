// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import "github.com/Thermoquad/vikingsim/pkg/simulator"

// FakePublisher records published samples for test assertions
type FakePublisher struct {
	// Samples contains all samples that were published.
	Samples []simulator.Sample

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// PublishError, if set, will be returned by Observe.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakePublisher creates a FakePublisher for testing
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Observe records the sample
func (f *FakePublisher) Observe(sample simulator.Sample) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(sample)
	if err != nil {
		return err
	}
	f.Samples = append(f.Samples, sample)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// Close marks the publisher as closed
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}
