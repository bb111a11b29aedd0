package sweep

import (
	"log/slog"
	"time"
)

// collector accumulates streamed points into complete sweeps for one
// acquisition-bandwidth value and hands each finished Result to the engine
// goroutine over a buffered channel, transferring ownership per sweep.
//
// observe is called only from the streaming read loop, so the in-progress
// slice has a single writer and needs no lock; the results channel is the
// only cross-goroutine hand-off. The strategy installs the live collector in
// an atomic pointer and replaces it wholesale at bandwidth boundaries.
type collector struct {
	pointCount int
	target     int
	logger     *slog.Logger

	started   bool
	current   []Point
	start     time.Time
	completed int

	results chan Result
}

func newCollector(pointCount, target int, logger *slog.Logger) *collector {
	return &collector{
		pointCount: pointCount,
		target:     target,
		logger:     logger,
		results:    make(chan Result, target),
	}
}

// observe folds one streamed point into the current sweep. An index of zero
// starts a new sweep; the last expected index completes it. Points received
// before the first index-0 belong to a sweep already in flight when this
// collector went live and are discarded, as is any short "junk" sweep raced
// across a bandwidth boundary.
func (c *collector) observe(p Point) {
	if c.completed >= c.target {
		return // target met, the instrument has not been stopped yet
	}

	if p.Index == 0 {
		if c.started && len(c.current) > 0 {
			c.logger.Debug("discarding incomplete sweep",
				slog.Int("points", len(c.current)),
				slog.Int("expected", c.pointCount))
		}

		c.started = true
		c.current = make([]Point, 0, c.pointCount)
		c.start = time.Now()
	}

	if !c.started {
		return // mid-sweep point from before this collector went live
	}

	if p.Index != len(c.current) {
		c.logger.Warn("point index gap, dropping sweep in progress",
			slog.Int("got", p.Index),
			slog.Int("want", len(c.current)))

		c.started = false
		c.current = nil
		return
	}

	c.current = append(c.current, p)
	if len(c.current) < c.pointCount {
		return
	}

	result := Result{Points: c.current, Start: c.start, End: time.Now()}
	c.current = nil
	c.started = false
	c.completed++

	// Capacity equals the target and observe stops at the target, so this
	// send never blocks the read loop.
	c.results <- result
}
