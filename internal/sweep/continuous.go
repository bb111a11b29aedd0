package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/vna"
)

const (
	defaultAcquireTimeout = 5 * time.Minute
	defaultDrainDelay     = 200 * time.Millisecond
)

// WithAcquireTimeout bounds the wait for the target sweep count per
// bandwidth value. Continuous sweeps at narrow bandwidths legitimately run
// for minutes, so this defaults accordingly.
func WithAcquireTimeout(d time.Duration) func(c *Continuous) {
	return func(c *Continuous) {
		c.timeout = d
	}
}

// WithDrainDelay sets the pause after a stop command that lets points still
// in flight from the previous configuration arrive before the swap
func WithDrainDelay(d time.Duration) func(c *Continuous) {
	return func(c *Continuous) {
		c.drain = d
	}
}

// WithContinuousLogger sets the logger for the strategy
func WithContinuousLogger(logger *slog.Logger) func(c *Continuous) {
	return func(c *Continuous) {
		c.logger = logger.With(slog.String("strategy", "continuous"))
	}
}

// Continuous is the asynchronous streaming strategy: the instrument
// free-runs while the calibrated streaming endpoint delivers one point per
// measurement, and sweep boundaries are reconstructed from the point index
// returning to zero.
//
// One subscription is registered in Setup and persists across all bandwidth
// values; deregistering and re-registering per bandwidth races the stream
// client's connection cleanup. The callback forwards into whichever
// collector is currently installed, which is the only cross-bandwidth state
// it observes.
type Continuous struct {
	ctrl   *vna.Client
	stream *vna.StreamClient
	cfg    Config

	timeout time.Duration
	drain   time.Duration
	logger  *slog.Logger

	live atomic.Pointer[collector]
	sub  *vna.Subscription
}

// NewContinuous creates the continuous-streaming strategy.
func NewContinuous(ctrl *vna.Client, stream *vna.StreamClient, cfg Config, options ...func(c *Continuous)) *Continuous {
	c := Continuous{
		ctrl:    ctrl,
		stream:  stream,
		cfg:     cfg,
		timeout: defaultAcquireTimeout,
		drain:   defaultDrainDelay,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Setup stops any residual acquisition and registers the single streaming
// callback used for the whole bandwidth loop.
func (c *Continuous) Setup(ctx context.Context) error {
	if err := c.ctrl.Exec(vna.CmdAbort); err != nil {
		return fmt.Errorf("stopping acquisition: %w", err)
	}

	sub, err := c.stream.Subscribe(vna.EndpointCalibrated, c.onPoint)
	if err != nil {
		return fmt.Errorf("subscribing to calibrated stream: %w", err)
	}

	c.sub = sub
	return nil
}

// Acquire collects count complete sweeps at the currently configured
// bandwidth. It installs a fresh collector after draining in-flight points,
// sets the instrument free-running, and receives completed sweeps until the
// target is met or the bounded timeout expires.
func (c *Continuous) Acquire(ctx context.Context, count int) ([]Result, error) {
	if err := c.ctrl.Exec(vna.CmdAbort); err != nil {
		return nil, fmt.Errorf("stopping previous acquisition: %w", err)
	}

	// Let points still in flight from the previous configuration land in
	// the old collector before the swap.
	select {
	case <-time.After(c.drain):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	col := newCollector(c.cfg.Points, count, c.logger)
	c.live.Store(col)

	if err := c.ctrl.Exec(vna.CmdContinuousOn); err != nil {
		return nil, fmt.Errorf("setting free-running mode: %w", err)
	}
	if err := c.ctrl.Exec(vna.CmdRun); err != nil {
		return nil, fmt.Errorf("starting acquisition: %w", err)
	}

	timeout := time.NewTimer(c.timeout)
	defer timeout.Stop()

	results := make([]Result, 0, count)
	for len(results) < count {
		select {
		case result := <-col.results:
			results = append(results, result)

		case <-timeout.C:
			_ = c.ctrl.Exec(vna.CmdAbort)
			return results, fmt.Errorf("%w: %d of %d sweeps after %s",
				ErrSweepTimeout, len(results), count, c.timeout)

		case <-ctx.Done():
			_ = c.ctrl.Exec(vna.CmdAbort)
			return results, ctx.Err()
		}
	}

	if err := c.ctrl.Exec(vna.CmdAbort); err != nil {
		return results, fmt.Errorf("stopping acquisition: %w", err)
	}

	return results, nil
}

// Teardown stops the acquisition, restores single-sweep mode so a later
// trigger-and-poll run is not corrupted by leftover free-running state, and
// deregisters the streaming callback.
func (c *Continuous) Teardown(ctx context.Context) error {
	if err := c.ctrl.Exec(vna.CmdAbort); err != nil {
		return fmt.Errorf("stopping acquisition: %w", err)
	}
	if err := c.ctrl.Exec(vna.CmdContinuousOff); err != nil {
		return fmt.Errorf("restoring single mode: %w", err)
	}

	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	return nil
}

// onPoint runs on the streaming read loop. It forwards each decoded point
// into the currently installed collector; points arriving between a stop and
// the next install land in the old collector and are discarded with it.
func (c *Continuous) onPoint(p vna.StreamPoint) {
	col := c.live.Load()
	if col == nil {
		return
	}

	col.observe(Point{
		Index:     p.Index,
		Frequency: p.Frequency,
		Z0:        p.Z0,
		Param:     p.Param,
		Value:     p.Value,
	})
}
