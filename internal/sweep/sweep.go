package sweep

import (
	"fmt"
	"time"
)

// Point is one measured frequency sample. Immutable once decoded.
type Point struct {
	Index     int     // 0-based, resets to 0 at the start of every sweep
	Frequency float64 // Hz
	Z0        float64 // reference impedance, Ohm
	Param     string  // measurement name, e.g. "S11"
	Value     complex128
}

// Result is one complete sweep: an ordered point sequence of the configured
// length, bounded by wall-clock timestamps captured at the first and last
// point. Owned exclusively by the caller once a strategy returns it.
type Result struct {
	Points []Point
	Start  time.Time
	End    time.Time
}

// Duration returns the wall-clock span of the sweep.
func (r *Result) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Config holds the immutable per-run acquisition parameters. Loaded once
// before the sweep loop begins and never mutated during acquisition.
type Config struct {
	StartFreq int64 `yaml:"startFreq" json:"startFreq"` // Hz
	StopFreq  int64 `yaml:"stopFreq" json:"stopFreq"`   // Hz

	Points   int     `yaml:"points" json:"points"`
	Power    float64 `yaml:"power" json:"power"` // stimulus level, dBm
	Averages int     `yaml:"averages" json:"averages"`

	// Bandwidths is the list of acquisition-bandwidth values (Hz) iterated
	// over, each acquiring SweepsPerBandwidth sweeps.
	Bandwidths         []int `yaml:"bandwidths" json:"bandwidths"`
	SweepsPerBandwidth int   `yaml:"sweepsPerBandwidth" json:"sweepsPerBandwidth"`

	// CalibrationPath is passed verbatim to the calibration-load query.
	// Empty disables calibration loading.
	CalibrationPath string `yaml:"calibrationPath" json:"calibrationPath"`
}

func (c *Config) Validate() error {
	if c.StartFreq <= 0 {
		return fmt.Errorf("sweep.Config: start frequency must be positive: %d", c.StartFreq)
	}
	if c.StopFreq <= c.StartFreq {
		return fmt.Errorf("sweep.Config: stop frequency must be greater than start: %d <= %d", c.StopFreq, c.StartFreq)
	}
	if c.Points < 2 {
		return fmt.Errorf("sweep.Config: at least 2 points required: %d given", c.Points)
	}
	if c.Averages < 0 {
		return fmt.Errorf("sweep.Config: averaging count must not be negative: %d", c.Averages)
	}
	if len(c.Bandwidths) == 0 {
		return fmt.Errorf("sweep.Config: at least one acquisition bandwidth required")
	}
	for _, bw := range c.Bandwidths {
		if bw <= 0 {
			return fmt.Errorf("sweep.Config: acquisition bandwidth must be positive: %d", bw)
		}
	}
	if c.SweepsPerBandwidth <= 0 {
		return fmt.Errorf("sweep.Config: target sweep count must be positive: %d", c.SweepsPerBandwidth)
	}
	return nil
}
