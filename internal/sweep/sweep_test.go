package sweep

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		StartFreq:          1_000_000,
		StopFreq:           2_000_000,
		Points:             201,
		Power:              -10,
		Averages:           1,
		Bandwidths:         []int{50_000, 10_000, 1_000},
		SweepsPerBandwidth: 5,
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero start frequency", func(c *Config) { c.StartFreq = 0 }},
		{"stop below start", func(c *Config) { c.StopFreq = c.StartFreq - 1 }},
		{"stop equals start", func(c *Config) { c.StopFreq = c.StartFreq }},
		{"one point", func(c *Config) { c.Points = 1 }},
		{"negative averaging", func(c *Config) { c.Averages = -1 }},
		{"no bandwidths", func(c *Config) { c.Bandwidths = nil }},
		{"negative bandwidth", func(c *Config) { c.Bandwidths = []int{1000, -1} }},
		{"zero sweep count", func(c *Config) { c.SweepsPerBandwidth = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestResultDuration(t *testing.T) {
	start := time.Unix(1700000000, 0)
	r := Result{Start: start, End: start.Add(125 * time.Millisecond)}

	if got := r.Duration(); got != 125*time.Millisecond {
		t.Errorf("Expected 125ms, got %s", got)
	}
}
