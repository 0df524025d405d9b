// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Thermoquad/vikingsim/pkg/burner"
	"github.com/Thermoquad/vikingsim/pkg/telemetry"
	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

// maxIntervalSeconds keeps the interval representable as a time.Duration
const maxIntervalSeconds = float64(math.MaxInt64 / int64(time.Second))

// Config is the optional YAML configuration. Command-line flags that are
// explicitly set take precedence over file values.
type Config struct {
	Serial struct {
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
	} `yaml:"serial"`
	WebSocket struct {
		URL         string `yaml:"url"`
		Username    string `yaml:"username"`
		NoSSLVerify bool   `yaml:"no_ssl_verify"`
	} `yaml:"websocket"`
	Simulation struct {
		Protocol          string  `yaml:"protocol"`
		Interval          float64 `yaml:"interval"` // seconds
		TargetTemperature int     `yaml:"target_temperature"`
		Seed              *int64  `yaml:"seed"`
		Count             uint64  `yaml:"count"`
	} `yaml:"simulation"`
	MQTT struct {
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Record struct {
		Path string `yaml:"path"`
	} `yaml:"record"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func loadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Serial.Baud == 0 {
		c.Serial.Baud = vikingbio.DefaultBaudRate
	}
	if c.Simulation.Protocol == "" {
		c.Simulation.Protocol = string(vikingbio.ProtocolBinary)
	}
	if c.Simulation.Interval == 0 {
		c.Simulation.Interval = 2.0
	}
	if c.Simulation.TargetTemperature == 0 {
		c.Simulation.TargetTemperature = burner.DefaultTargetTemperature
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = telemetry.DefaultTopicPrefix
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// applyFlags overlays flags that were set on the command line
func (c *Config) applyFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("baudrate") {
		c.Serial.Baud = baudRate
	}
	if flags.Changed("url") {
		c.WebSocket.URL = wsURL
	}
	if flags.Changed("username") {
		c.WebSocket.Username = wsUsername
	}
	if flags.Changed("no-ssl-verify") {
		c.WebSocket.NoSSLVerify = wsNoSSLVerify
	}
	if flags.Changed("protocol") {
		c.Simulation.Protocol = protocolName
	}
	if flags.Changed("interval") {
		c.Simulation.Interval = intervalSeconds
	}
	if flags.Changed("target") {
		c.Simulation.TargetTemperature = targetTemperature
	}
	if flags.Changed("seed") {
		seed := simSeed
		c.Simulation.Seed = &seed
	}
	if flags.Changed("count") {
		c.Simulation.Count = simCount
	}
	if flags.Changed("mqtt-broker") {
		c.MQTT.Broker = mqttBroker
	}
	if flags.Changed("mqtt-topic-prefix") {
		c.MQTT.TopicPrefix = mqttTopicPrefix
	}
	if flags.Changed("record") {
		c.Record.Path = recordPath
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
}

func (c *Config) validate() error {
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if _, err := vikingbio.ParseProtocol(c.Simulation.Protocol); err != nil {
		return fmt.Errorf("simulation.protocol: %w", err)
	}
	if math.IsNaN(c.Simulation.Interval) || c.Simulation.Interval > maxIntervalSeconds || c.interval() <= 0 {
		return fmt.Errorf("simulation.interval must be a positive number of seconds, got %g", c.Simulation.Interval)
	}
	if err := burner.ValidateTarget(c.Simulation.TargetTemperature); err != nil {
		return fmt.Errorf("simulation.target_temperature: %w", err)
	}
	return nil
}

// protocol returns the configured protocol; validate has already checked it
func (c *Config) protocol() vikingbio.Protocol {
	p, _ := vikingbio.ParseProtocol(c.Simulation.Protocol)
	return p
}

func (c *Config) interval() time.Duration {
	return time.Duration(c.Simulation.Interval * float64(time.Second))
}

// resolveConfig loads the config file and applies flags and the optional
// positional port argument
func resolveConfig(cmd *cobra.Command, args []string) (*Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.applyFlags(cmd)
	if len(args) > 0 && args[0] != "" {
		cfg.Serial.Port = args[0]
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
