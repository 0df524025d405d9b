// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/vikingsim/pkg/vikingbio"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Serial.Baud != 9600 {
		t.Errorf("baud = %d, want 9600", cfg.Serial.Baud)
	}
	if cfg.protocol() != vikingbio.ProtocolBinary {
		t.Errorf("protocol = %s, want binary", cfg.protocol())
	}
	if cfg.interval() != 2*time.Second {
		t.Errorf("interval = %v, want 2s", cfg.interval())
	}
	if cfg.Simulation.TargetTemperature != 75 {
		t.Errorf("target = %d, want 75", cfg.Simulation.TargetTemperature)
	}
	if cfg.Simulation.Seed != nil {
		t.Errorf("seed = %d, want unset", *cfg.Simulation.Seed)
	}
	if cfg.MQTT.TopicPrefix != "vikingsim" {
		t.Errorf("topic prefix = %q", cfg.MQTT.TopicPrefix)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	data := `
serial:
  port: /dev/ttyUSB1
  baud: 19200
simulation:
  protocol: text
  interval: 0.5
  target_temperature: 90
  seed: 42
  count: 10
mqtt:
  broker: tcp://localhost:1883
  topic_prefix: boiler
record:
  path: runs.db
log:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Serial.Port != "/dev/ttyUSB1" || cfg.Serial.Baud != 19200 {
		t.Errorf("serial = %+v", cfg.Serial)
	}
	if cfg.protocol() != vikingbio.ProtocolText {
		t.Errorf("protocol = %s, want text", cfg.protocol())
	}
	if cfg.interval() != 500*time.Millisecond {
		t.Errorf("interval = %v, want 500ms", cfg.interval())
	}
	if cfg.Simulation.TargetTemperature != 90 {
		t.Errorf("target = %d, want 90", cfg.Simulation.TargetTemperature)
	}
	if cfg.Simulation.Seed == nil || *cfg.Simulation.Seed != 42 {
		t.Errorf("seed = %v, want 42", cfg.Simulation.Seed)
	}
	if cfg.Simulation.Count != 10 {
		t.Errorf("count = %d, want 10", cfg.Simulation.Count)
	}
	if cfg.MQTT.Broker != "tcp://localhost:1883" || cfg.MQTT.TopicPrefix != "boiler" {
		t.Errorf("mqtt = %+v", cfg.MQTT)
	}
	if cfg.Record.Path != "runs.db" {
		t.Errorf("record path = %q", cfg.Record.Path)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("serial: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"unknown protocol", func(c *Config) { c.Simulation.Protocol = "hex" }, "protocol"},
		{"negative interval", func(c *Config) { c.Simulation.Interval = -1 }, "interval"},
		{"interval rounds to zero", func(c *Config) { c.Simulation.Interval = 1e-10 }, "interval"},
		{"interval not a number", func(c *Config) { c.Simulation.Interval = math.NaN() }, "interval"},
		{"interval infinite", func(c *Config) { c.Simulation.Interval = math.Inf(1) }, "interval"},
		{"interval overflows duration", func(c *Config) { c.Simulation.Interval = 1e12 }, "interval"},
		{"negative baud", func(c *Config) { c.Serial.Baud = -9600 }, "baud"},
		{"target below ambient", func(c *Config) { c.Simulation.TargetTemperature = 10 }, "target_temperature"},
		{"target too high", func(c *Config) { c.Simulation.TargetTemperature = 70000 }, "target_temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig("")
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(cfg)
			err = cfg.validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestConfig_ApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	addSerialFlags(cmd)
	cmd.Flags().StringVarP(&protocolName, "protocol", "p", "binary", "")
	cmd.Flags().Float64VarP(&intervalSeconds, "interval", "i", 2.0, "")
	cmd.Flags().Int64Var(&simSeed, "seed", 0, "")

	if err := cmd.ParseFlags([]string{"-b", "115200", "--protocol", "TEXT", "--seed", "0"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Interval = 3.0
	cfg.applyFlags(cmd)

	if cfg.Serial.Baud != 115200 {
		t.Errorf("baud = %d, want 115200", cfg.Serial.Baud)
	}
	if cfg.protocol() != vikingbio.ProtocolText {
		t.Errorf("protocol = %s, want text", cfg.protocol())
	}
	// Unset flags keep file values
	if cfg.Simulation.Interval != 3.0 {
		t.Errorf("interval = %g, want 3", cfg.Simulation.Interval)
	}
	// An explicit zero seed is still a seed
	if cfg.Simulation.Seed == nil || *cfg.Simulation.Seed != 0 {
		t.Errorf("seed = %v, want 0", cfg.Simulation.Seed)
	}
}

func TestNewLogger(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Log.Format = "json"
	cfg.Log.Level = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "tick", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "shown" || entry["tick"] != float64(3) {
		t.Errorf("entry = %v", entry)
	}
}
