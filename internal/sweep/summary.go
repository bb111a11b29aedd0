package sweep

import (
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary holds per-bandwidth timing statistics over the collected sweeps.
type Summary struct {
	Count           int
	MeanDuration    time.Duration
	StdDevDuration  time.Duration
	SweepsPerSecond float64
}

// Summarize computes timing statistics for one bandwidth value's results.
func Summarize(results []Result) Summary {
	if len(results) == 0 {
		return Summary{}
	}

	durations := make([]float64, len(results))
	for i := range results {
		durations[i] = results[i].Duration().Seconds()
	}

	mean := stat.Mean(durations, nil)

	var stddev float64
	if len(durations) > 1 {
		stddev = stat.StdDev(durations, nil)
	}

	var rate float64
	if mean > 0 {
		rate = 1 / mean
	}

	return Summary{
		Count:           len(results),
		MeanDuration:    time.Duration(mean * float64(time.Second)),
		StdDevDuration:  time.Duration(stddev * float64(time.Second)),
		SweepsPerSecond: rate,
	}
}
