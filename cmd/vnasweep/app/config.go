package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

// Duration is a yaml-parsable time.Duration ("500ms", "2m", "30s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	duration, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("app.Duration: failed to parse: %s", err)
	}

	*d = Duration(duration)
	return nil
}

func (d *Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(*d).String(), nil
}

// Config represents the main application configuration
type Config struct {
	Settings    Settings      `yaml:"settings"`
	Server      ServerConfig  `yaml:"server"`
	Acquisition sweep.Config  `yaml:"acquisition"`
	Storage     StorageConfig `yaml:"storage"`
	Export      ExportConfig  `yaml:"export"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
	Mode     string `yaml:"mode"` // "single" or "continuous"
}

// ServerConfig describes the vendor headless server process
type ServerConfig struct {
	Path           string   `yaml:"path"`        // server binary
	ControlPort    int      `yaml:"controlPort"` // passed to the binary as --port
	StreamPort     int      `yaml:"streamPort"`  // calibrated streaming endpoint
	StartupTimeout Duration `yaml:"startupTimeout"`
	SweepTimeout   Duration `yaml:"sweepTimeout"` // per-sweep (single) / per-bandwidth (continuous) bound
}

// StorageConfig represents storage settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
}

// ExportConfig represents result export settings
type ExportConfig struct {
	CSVPath string `yaml:"csvPath"` // empty disables CSV export
}

func (c *Config) Validate() error {
	switch c.Settings.Mode {
	case "", string(sweep.ModeContinuous), string(sweep.ModeSingle):
	default:
		return fmt.Errorf("app.Config: unknown mode '%s'", c.Settings.Mode)
	}

	if c.Server.Path == "" {
		return fmt.Errorf("app.Config: server binary path is required")
	}
	if c.Server.ControlPort <= 0 || c.Server.ControlPort > 65535 {
		return fmt.Errorf("app.Config: invalid control port: %d", c.Server.ControlPort)
	}
	if c.Server.StreamPort <= 0 || c.Server.StreamPort > 65535 {
		return fmt.Errorf("app.Config: invalid stream port: %d", c.Server.StreamPort)
	}
	if c.Server.StreamPort == c.Server.ControlPort {
		return fmt.Errorf("app.Config: stream and control ports must differ: %d", c.Server.StreamPort)
	}

	return c.Acquisition.Validate()
}

// Mode returns the selected acquisition mode, defaulting to continuous.
func (c *Config) Mode() sweep.Mode {
	if c.Settings.Mode == string(sweep.ModeSingle) {
		return sweep.ModeSingle
	}
	return sweep.ModeContinuous
}

// LoadConfig reads and validates the YAML configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
