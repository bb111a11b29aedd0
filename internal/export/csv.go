package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/cmplx"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

// Exporter writes a session's bandwidth runs to an external format.
type Exporter interface {
	Write(sessionID string, runs []sweep.BandwidthRun) error
}

// CSV writes one row per measured point.
type CSV struct {
	W io.Writer
}

func (c *CSV) Write(sessionID string, runs []sweep.BandwidthRun) error {
	w := csv.NewWriter(c.W)
	if err := w.Write([]string{
		"Session",
		"Bandwidth",
		"SweepIndex",
		"StartUnixMilli",
		"EndUnixMilli",
		"PointIndex",
		"FrequencyHz",
		"Z0",
		"Param",
		"Real",
		"Imag",
		"MagnitudeDB",
	}); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for _, run := range runs {
		for i, result := range run.Results {
			for _, p := range result.Points {
				if err := w.Write([]string{
					sessionID,
					fmt.Sprintf("%d", run.Bandwidth),
					fmt.Sprintf("%d", i),
					fmt.Sprintf("%d", result.Start.UnixMilli()),
					fmt.Sprintf("%d", result.End.UnixMilli()),
					fmt.Sprintf("%d", p.Index),
					fmt.Sprintf("%f", p.Frequency),
					fmt.Sprintf("%g", p.Z0),
					p.Param,
					fmt.Sprintf("%g", real(p.Value)),
					fmt.Sprintf("%g", imag(p.Value)),
					fmt.Sprintf("%.3f", MagnitudeDB(p.Value)),
				}); err != nil {
					return fmt.Errorf("writing CSV line: %w", err)
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing CSV: %w", err)
	}
	return nil
}

// MagnitudeDB converts a complex ratio to decibels. A zero value maps to
// -inf dB, clamped to a floor the renderer and spreadsheets can digest.
func MagnitudeDB(v complex128) float64 {
	const floor = -200.0

	mag := cmplx.Abs(v)
	if mag <= 0 {
		return floor
	}

	db := 20 * math.Log10(mag)
	if db < floor {
		return floor
	}
	return db
}
