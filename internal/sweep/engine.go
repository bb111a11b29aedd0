package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/vna"
)

const defaultPrefFlushWait = 500 * time.Millisecond

// ErrCalibrationLoad is returned when the calibration-load query does not
// affirm. File not found, incompatible configuration and instrument-side
// rejection are indistinguishable at the protocol level.
var ErrCalibrationLoad = errors.New("calibration load rejected")

// Mode selects the acquisition strategy for a run.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeContinuous Mode = "continuous"
)

// BandwidthRun is the engine's output for one acquisition-bandwidth value.
type BandwidthRun struct {
	Bandwidth int // Hz
	Results   []Result
	Summary   Summary
}

// WithMode selects the acquisition strategy (default continuous)
func WithMode(mode Mode) func(e *Engine) {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithEngineLogger sets the logger for the engine
func WithEngineLogger(logger *slog.Logger) func(e *Engine) {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithControlTimeout sets the control channel per-operation timeout
func WithControlTimeout(d time.Duration) func(e *Engine) {
	return func(e *Engine) {
		e.ctrlTimeout = d
	}
}

// WithPrefFlushWait sets the pause after apply-preferences that lets the
// server finish its on-disk write before the restart cycle
func WithPrefFlushWait(d time.Duration) func(e *Engine) {
	return func(e *Engine) {
		e.prefFlushWait = d
	}
}

// WithStrategyOptions forwards options to the strategy built for the run
func WithStrategyOptions(single []func(t *TriggerPoll), continuous []func(c *Continuous)) func(e *Engine) {
	return func(e *Engine) {
		e.singleOpts = single
		e.continuousOpts = continuous
	}
}

// Engine is the sweep orchestrator. It owns the server process handle and
// the control connection, drives the selected acquisition strategy through
// the configured bandwidth values, and recovers from the documented
// apply-preferences restart.
//
// The engine is a library for a single local process: one foreground
// goroutine runs it, and in continuous mode exactly one background goroutine
// per streaming endpoint feeds it.
type Engine struct {
	cfg         Config
	server      *vna.Server
	ctrlAddr    string
	streamAddrs map[vna.Endpoint]string

	mode           Mode
	ctrlTimeout    time.Duration
	prefFlushWait  time.Duration
	logger         *slog.Logger
	singleOpts     []func(t *TriggerPoll)
	continuousOpts []func(c *Continuous)

	ctrl       *vna.Client
	stream     *vna.StreamClient
	calibrated bool
}

// NewEngine creates a sweep engine. The server handle must be in the stopped
// state; the engine starts and stops it around the run.
func NewEngine(cfg Config, server *vna.Server, ctrlAddr string, streamAddrs map[vna.Endpoint]string, options ...func(e *Engine)) *Engine {
	e := Engine{
		cfg:           cfg,
		server:        server,
		ctrlAddr:      ctrlAddr,
		streamAddrs:   streamAddrs,
		mode:          ModeContinuous,
		ctrlTimeout:   5 * time.Second,
		prefFlushWait: defaultPrefFlushWait,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&e)
	}

	return &e
}

// Run executes the full acquisition sequence: start the server, connect,
// enable streaming if needed, load calibration, then run the strategy for
// every configured bandwidth value. Teardown always happens, and is safe
// even after a partial failure.
func (e *Engine) Run(ctx context.Context) (runs []BandwidthRun, err error) {
	if err = e.cfg.Validate(); err != nil {
		return nil, err
	}

	if err = e.server.Start(ctx); err != nil {
		return nil, fmt.Errorf("process start: %w", err)
	}
	defer func() {
		if tErr := e.teardown(); tErr != nil && err == nil {
			err = tErr
		}
	}()

	if err = e.connect(); err != nil {
		return nil, err
	}

	e.stream = vna.NewStreamClient(e.streamAddrs,
		vna.WithStreamLogger(e.logger),
		vna.WithStreamTimeout(e.ctrlTimeout))

	if e.mode == ModeContinuous {
		if err = e.EnsureStreaming(ctx); err != nil {
			return nil, fmt.Errorf("enabling streaming: %w", err)
		}
	}

	if err = e.loadCalibration(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	strategy := e.newStrategy()
	if err = strategy.Setup(ctx); err != nil {
		return nil, fmt.Errorf("strategy setup: %w", err)
	}

	runs = make([]BandwidthRun, 0, len(e.cfg.Bandwidths))
	for _, bandwidth := range e.cfg.Bandwidths {
		if err = e.configure(bandwidth); err != nil {
			return runs, fmt.Errorf("configuring bandwidth %sHz: %w",
				humanize.SI(float64(bandwidth), ""), err)
		}

		results, aErr := strategy.Acquire(ctx, e.cfg.SweepsPerBandwidth)
		if aErr != nil {
			return runs, fmt.Errorf("sweep %d of bandwidth %dHz: %w", len(results)+1, bandwidth, aErr)
		}

		summary := Summarize(results)
		e.logger.Info("bandwidth value complete",
			slog.String("bandwidth", humanize.SI(float64(bandwidth), "Hz")),
			slog.Int("sweeps", summary.Count),
			slog.Duration("meanDuration", summary.MeanDuration),
			slog.Duration("stdDevDuration", summary.StdDevDuration),
			slog.String("rate", fmt.Sprintf("%.2f sweeps/s", summary.SweepsPerSecond)))

		runs = append(runs, BandwidthRun{Bandwidth: bandwidth, Results: results, Summary: summary})
	}

	if err = strategy.Teardown(ctx); err != nil {
		return runs, fmt.Errorf("strategy teardown: %w", err)
	}

	return runs, nil
}

// EnsureStreaming makes sure the calibrated streaming endpoint is enabled.
// If a probe finds it already accepting connections, nothing is issued and
// the fast path returns; otherwise the streaming preference is set and
// applied, which restarts the server. Idempotent across runs.
func (e *Engine) EnsureStreaming(ctx context.Context) error {
	if e.stream.Probe(vna.EndpointCalibrated) {
		e.logger.Debug("streaming endpoint already enabled")
		return nil
	}

	e.logger.Info("streaming endpoint disabled, applying preference and restarting server")
	return e.ApplyPreference(ctx, vna.PrefStreamEnabled, "1")
}

// ApplyPreference persists a server preference. Applying preferences
// terminates the server process as a documented side effect, so this is an
// expected, recoverable state transition rather than an error: the engine
// marks the server crashed, runs the stop/start cycle, reconnects, and
// reloads calibration on the fresh connection.
func (e *Engine) ApplyPreference(ctx context.Context, key, value string) error {
	// Both preference commands set spurious error bits on success.
	if err := e.ctrl.ExecRaw(fmt.Sprintf("%s %s %s", vna.CmdPrefSet, key, value)); err != nil {
		return fmt.Errorf("setting preference %s: %w", key, err)
	}
	if err := e.ctrl.ExecRaw(vna.CmdPrefApply); err != nil {
		return fmt.Errorf("applying preferences: %w", err)
	}

	// Give the server time to finish the on-disk write before it dies.
	select {
	case <-time.After(e.prefFlushWait):
	case <-ctx.Done():
		return ctx.Err()
	}

	e.server.MarkCrashed()
	return e.restart(ctx)
}

// restart obtains a fresh process and a fresh control connection after a
// crash, then re-establishes calibration state. The client handle is
// redialled in place so strategies holding it stay valid.
func (e *Engine) restart(ctx context.Context) error {
	if err := e.server.Stop(); err != nil {
		return fmt.Errorf("stopping crashed server: %w", err)
	}
	if err := e.server.Start(ctx); err != nil {
		return fmt.Errorf("restarting server: %w", err)
	}

	if err := e.ctrl.Redial(e.ctrlAddr); err != nil {
		return err
	}

	if e.calibrated {
		if err := e.loadCalibration(); err != nil {
			return fmt.Errorf("reloading calibration: %w", err)
		}
	}

	e.logger.Info("server restarted and reconnected")
	return nil
}

func (e *Engine) connect() error {
	ctrl, err := vna.Dial(e.ctrlAddr,
		vna.WithClientLogger(e.logger),
		vna.WithTimeout(e.ctrlTimeout))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	e.ctrl = ctrl
	return nil
}

// loadCalibration delegates calibration to the instrument via the load
// query. Any non-affirmative response is fatal.
func (e *Engine) loadCalibration() error {
	if e.cfg.CalibrationPath == "" {
		e.logger.Debug("no calibration file configured")
		return nil
	}

	resp, err := e.ctrl.Query(fmt.Sprintf("%s %q", vna.QueryCalibration, e.cfg.CalibrationPath))
	if err != nil {
		return err
	}

	if !affirmative(resp) {
		return fmt.Errorf("%w: %q (path %s)", ErrCalibrationLoad, resp, e.cfg.CalibrationPath)
	}

	e.calibrated = true
	e.logger.Info("calibration loaded", slog.String("path", e.cfg.CalibrationPath))
	return nil
}

// configure pushes the per-bandwidth instrument parameters.
func (e *Engine) configure(bandwidth int) error {
	commands := []string{
		fmt.Sprintf("%s LIN", vna.CmdSweepType),
		fmt.Sprintf("%s %d", vna.CmdFreqStart, e.cfg.StartFreq),
		fmt.Sprintf("%s %d", vna.CmdFreqStop, e.cfg.StopFreq),
		fmt.Sprintf("%s %d", vna.CmdSweepPoints, e.cfg.Points),
		fmt.Sprintf("%s %.2f", vna.CmdStimulusPower, e.cfg.Power),
		fmt.Sprintf("%s %d", vna.CmdAverageCount, e.cfg.Averages),
		fmt.Sprintf("%s %d", vna.CmdBandwidth, bandwidth),
	}

	for _, cmd := range commands {
		if err := e.ctrl.Exec(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) newStrategy() Strategy {
	if e.mode == ModeSingle {
		opts := append([]func(t *TriggerPoll){WithTriggerPollLogger(e.logger)}, e.singleOpts...)
		return NewTriggerPoll(e.ctrl, e.cfg, opts...)
	}

	opts := append([]func(c *Continuous){WithContinuousLogger(e.logger)}, e.continuousOpts...)
	return NewContinuous(e.ctrl, e.stream, e.cfg, opts...)
}

func (e *Engine) teardown() error {
	var errs []error

	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing stream client: %w", err))
		}
		e.stream = nil
	}

	if e.ctrl != nil {
		if err := e.ctrl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing control client: %w", err))
		}
		e.ctrl = nil
	}

	if err := e.server.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping server: %w", err))
	}

	return errors.Join(errs...)
}

func affirmative(resp string) bool {
	switch strings.ToUpper(strings.TrimSpace(resp)) {
	case "1", "OK", "TRUE":
		return true
	default:
		return false
	}
}
