// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/Thermoquad/vikingsim/pkg/simulator"
)

// Config holds MQTT connection settings
type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// RealPublisher publishes to an actual MQTT broker
type RealPublisher struct {
	client paho.Client
	prefix string
	logger *slog.Logger
}

// NewRealPublisher creates a publisher connected to the given broker
func NewRealPublisher(cfg Config, logger *slog.Logger) (*RealPublisher, error) {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "vikingsim"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	p := &RealPublisher{
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
	}

	p.client = paho.NewClient(p.clientOptions(cfg))
	if err := connect(p.client, connectTimeout); err != nil {
		return nil, err
	}

	return p, nil
}

// connectTimeout bounds the initial connection attempt
const connectTimeout = 10 * time.Second

func (p *RealPublisher) clientOptions(cfg Config) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(cfg.TopicPrefix+TopicAvailability, Offline, 1, true).
		SetOnConnectHandler(func(c paho.Client) {
			p.logger.Info("MQTT connected", "broker", cfg.Broker)
			c.Publish(p.prefix+TopicAvailability, 1, true, Online)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.logger.Warn("MQTT connection lost", "err", err)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return opts
}

// connect waits for the first connection. On failure the client is
// disconnected so connect-retry does not keep dialing in the background.
func connect(client paho.Client, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

// Observe publishes a sample to <prefix>/state
func (p *RealPublisher) Observe(sample simulator.Sample) error {
	payload, err := FormatPayload(sample)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), retained so late subscribers see the last state
	token := p.client.Publish(p.prefix+TopicState, 0, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close publishes offline availability and disconnects from the broker
func (p *RealPublisher) Close() error {
	token := p.client.Publish(p.prefix+TopicAvailability, 1, true, Offline)
	token.WaitTimeout(2 * time.Second)
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
