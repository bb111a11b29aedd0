package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

const testConfigYAML = `
settings:
  logLevel: debug
  mode: continuous

server:
  path: /opt/vna/bin/vnaserver
  controlPort: 5025
  streamPort: 5026
  startupTimeout: 30s
  sweepTimeout: 2m

acquisition:
  startFreq: 1000000
  stopFreq: 3000000000
  points: 201
  power: -10
  averages: 1
  bandwidths: [50000, 10000, 1000]
  sweepsPerBandwidth: 5
  calibrationPath: /opt/vna/cal/fixture.cal

storage:
  dataDirectory: data

export:
  csvPath: sweeps.csv
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Settings.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %q", config.Settings.LogLevel)
	}
	if config.Mode() != sweep.ModeContinuous {
		t.Errorf("Expected continuous mode, got %s", config.Mode())
	}
	if config.Server.ControlPort != 5025 {
		t.Errorf("Expected control port 5025, got %d", config.Server.ControlPort)
	}
	if time.Duration(config.Server.StartupTimeout) != 30*time.Second {
		t.Errorf("Expected 30s startup timeout, got %s", time.Duration(config.Server.StartupTimeout))
	}
	if time.Duration(config.Server.SweepTimeout) != 2*time.Minute {
		t.Errorf("Expected 2m sweep timeout, got %s", time.Duration(config.Server.SweepTimeout))
	}
	if len(config.Acquisition.Bandwidths) != 3 {
		t.Errorf("Expected 3 bandwidths, got %v", config.Acquisition.Bandwidths)
	}
	if config.Export.CSVPath != "sweeps.csv" {
		t.Errorf("Expected CSV path, got %q", config.Export.CSVPath)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestConfigValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		t.Helper()
		config, err := LoadConfig(writeConfig(t, testConfigYAML))
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		return config
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown mode", func(c *Config) { c.Settings.Mode = "batch" }},
		{"missing server path", func(c *Config) { c.Server.Path = "" }},
		{"invalid control port", func(c *Config) { c.Server.ControlPort = 0 }},
		{"invalid stream port", func(c *Config) { c.Server.StreamPort = 70000 }},
		{"port clash", func(c *Config) { c.Server.StreamPort = c.Server.ControlPort }},
		{"bad acquisition", func(c *Config) { c.Acquisition.Points = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			config := base(t)
			tc.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestDefaultMode(t *testing.T) {
	config := Config{}
	if config.Mode() != sweep.ModeContinuous {
		t.Errorf("Expected default mode continuous, got %s", config.Mode())
	}
}

func TestDurationYAML(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`750ms`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if time.Duration(d) != 750*time.Millisecond {
		t.Errorf("Expected 750ms, got %s", time.Duration(d))
	}

	if err := yaml.Unmarshal([]byte(`not-a-duration`), &d); err == nil {
		t.Error("Expected error for invalid duration")
	}

	out, err := yaml.Marshal(&d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != "750ms\n" {
		t.Errorf("Expected '750ms', got %q", string(out))
	}
}
