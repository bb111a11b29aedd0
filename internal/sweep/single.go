package sweep

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/vna"
)

const (
	defaultPollInterval = 50 * time.Millisecond
	defaultSweepTimeout = 30 * time.Second
)

// ErrSweepTimeout is returned when a sweep does not complete within its
// bounded wait.
var ErrSweepTimeout = errors.New("sweep timeout")

// WithPollInterval sets the finished-flag polling interval
func WithPollInterval(d time.Duration) func(t *TriggerPoll) {
	return func(t *TriggerPoll) {
		t.pollInterval = d
	}
}

// WithSweepTimeout bounds the wait for a triggered sweep to finish
func WithSweepTimeout(d time.Duration) func(t *TriggerPoll) {
	return func(t *TriggerPoll) {
		t.timeout = d
	}
}

// WithTriggerPollLogger sets the logger for the strategy
func WithTriggerPollLogger(logger *slog.Logger) func(t *TriggerPoll) {
	return func(t *TriggerPoll) {
		t.logger = logger.With(slog.String("strategy", "trigger-poll"))
	}
}

// TriggerPoll is the synchronous single-mode strategy: trigger a sweep by
// re-writing the stop frequency, poll the finished flag, then fetch the full
// trace in one query.
type TriggerPoll struct {
	ctrl *vna.Client
	cfg  Config

	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

// NewTriggerPoll creates the single-mode strategy.
func NewTriggerPoll(ctrl *vna.Client, cfg Config, options ...func(t *TriggerPoll)) *TriggerPoll {
	t := TriggerPoll{
		ctrl:         ctrl,
		cfg:          cfg,
		pollInterval: defaultPollInterval,
		timeout:      defaultSweepTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&t)
	}

	return &t
}

// Setup stops any residual acquisition and forces single-sweep mode. A prior
// continuous run may have left the instrument free-running, so both commands
// are issued regardless of history.
func (t *TriggerPoll) Setup(ctx context.Context) error {
	if err := t.ctrl.Exec(vna.CmdAbort); err != nil {
		return fmt.Errorf("stopping acquisition: %w", err)
	}
	if err := t.ctrl.Exec(vna.CmdContinuousOff); err != nil {
		return fmt.Errorf("forcing single mode: %w", err)
	}
	return nil
}

// Acquire runs count sweeps one at a time. On a sweep timeout, the results
// collected so far are returned together with the error; no partial trace is
// ever included.
func (t *TriggerPoll) Acquire(ctx context.Context, count int) ([]Result, error) {
	results := make([]Result, 0, count)
	for i := 0; i < count; i++ {
		result, err := t.sweep(ctx)
		if err != nil {
			return results, fmt.Errorf("sweep %d: %w", i+1, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func (t *TriggerPoll) Teardown(ctx context.Context) error {
	return t.ctrl.Exec(vna.CmdAbort)
}

func (t *TriggerPoll) sweep(ctx context.Context) (Result, error) {
	// Re-writing the stop frequency is the protocol's trigger for a new
	// sweep in single mode; there is no separate run command here.
	trigger := fmt.Sprintf("%s %d", vna.CmdFreqStop, t.cfg.StopFreq)
	if err := t.ctrl.Exec(trigger); err != nil {
		return Result{}, fmt.Errorf("triggering sweep: %w", err)
	}

	start := time.Now()
	if err := t.waitFinished(ctx, start); err != nil {
		return Result{}, err
	}
	end := time.Now()

	raw, err := t.ctrl.Query(vna.QueryTraceData)
	if err != nil {
		return Result{}, fmt.Errorf("reading trace: %w", err)
	}

	points, err := parseTrace(raw)
	if err != nil {
		return Result{}, fmt.Errorf("decoding trace: %w", err)
	}
	if len(points) != t.cfg.Points {
		return Result{}, fmt.Errorf("trace has %d points, expected %d", len(points), t.cfg.Points)
	}

	return Result{Points: points, Start: start, End: end}, nil
}

func (t *TriggerPoll) waitFinished(ctx context.Context, start time.Time) error {
	deadline := start.Add(t.timeout)
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		resp, err := t.ctrl.Query(vna.QuerySweepDone)
		if err != nil {
			return fmt.Errorf("polling finished flag: %w", err)
		}
		if strings.TrimSpace(resp) == "1" {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: finished flag not set after %s", ErrSweepTimeout, t.timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// parseTrace decodes the trace-data response: a comma-separated list of
// frequency, real, imaginary triplets in acquisition order.
func parseTrace(raw string) ([]Point, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields)%3 != 0 {
		return nil, fmt.Errorf("trace length %d is not a multiple of 3", len(fields))
	}

	points := make([]Point, 0, len(fields)/3)
	for i := 0; i < len(fields); i += 3 {
		freq, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid frequency at triplet %d: %w", i/3, err)
		}

		re, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real part at triplet %d: %w", i/3, err)
		}

		im, err := strconv.ParseFloat(strings.TrimSpace(fields[i+2]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid imaginary part at triplet %d: %w", i/3, err)
		}

		points = append(points, Point{
			Index:     i / 3,
			Frequency: freq,
			Value:     complex(re, im),
		})
	}

	return points, nil
}
