package vna

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	defaultStartupTimeout = 30 * time.Second
	defaultStopWait       = 3 * time.Second

	probeInitialInterval = 100 * time.Millisecond
	probeMaxInterval     = 500 * time.Millisecond
)

// State is the lifecycle state of the intermediary server process.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateReady
	StateCrashed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateCrashed:
		return "crashed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Launcher builds the command that runs the vendor headless server.
type Launcher interface {
	Cmd(ctx context.Context) *exec.Cmd
}

// BinaryLauncher launches the server binary with the control port argument.
type BinaryLauncher struct {
	Path        string
	ControlPort int
}

func (l BinaryLauncher) Cmd(ctx context.Context) *exec.Cmd {
	return exec.CommandContext(ctx, l.Path, "--port", strconv.Itoa(l.ControlPort))
}

// WithStartupTimeout bounds how long Start waits for the control endpoint
func WithStartupTimeout(d time.Duration) func(s *Server) {
	return func(s *Server) {
		s.startupTimeout = d
	}
}

// WithStopWait bounds how long Stop waits after the termination signal
func WithStopWait(d time.Duration) func(s *Server) {
	return func(s *Server) {
		s.stopWait = d
	}
}

// WithServerLogger sets the logger for the server process manager
func WithServerLogger(logger *slog.Logger) func(s *Server) {
	return func(s *Server) {
		s.logger = logger.With(slog.String("component", "server"))
	}
}

// Server manages the vendor headless process that fronts the instrument.
//
// Lifecycle: Stopped -> Starting -> Ready -> (Stopped | Crashed). A crashed
// server is never resurrected in place: callers Stop and Start again, which
// yields a fresh process and requires a fresh control connection.
//
// Applying preferences terminates the process as a documented side effect.
// The manager does not restart transparently in that case, because the
// caller must also re-establish calibration state on the new connection;
// callers mark the server crashed and run the Stop/Start cycle themselves.
type Server struct {
	launcher       Launcher
	controlAddr    string
	startupTimeout time.Duration
	stopWait       time.Duration
	logger         *slog.Logger

	mu    sync.Mutex
	state State
	cmd   *exec.Cmd
	waite chan error
}

// NewServer creates a server process manager. controlAddr is the control
// channel endpoint polled for readiness after launch.
func NewServer(launcher Launcher, controlAddr string, options ...func(s *Server)) *Server {
	s := Server{
		launcher:       launcher,
		controlAddr:    controlAddr,
		startupTimeout: defaultStartupTimeout,
		stopWait:       defaultStopWait,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// MarkCrashed records that the process is gone, or about to be, without the
// manager having observed the exit yet. Every caller that issues
// apply-preferences must invoke this immediately afterwards.
func (s *Server) MarkCrashed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateCrashed
}

// Start launches the process and polls the control endpoint until it accepts
// connections. Failure to become ready within the startup timeout is fatal.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateReady || s.state == StateStarting {
		s.mu.Unlock()
		return fmt.Errorf("server already %s", s.state)
	}

	cmd := s.launcher.Cmd(ctx)
	if err := cmd.Start(); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("launching server: %w", err)
	}

	waite := make(chan error, 1)
	s.cmd = cmd
	s.waite = waite
	s.state = StateStarting
	s.mu.Unlock()

	s.logger.Info("server launched, waiting for control endpoint",
		slog.Int("pid", cmd.Process.Pid),
		slog.String("addr", s.controlAddr))

	go func() {
		err := cmd.Wait()
		waite <- err

		// An exit observed while Ready is a crash.
		s.mu.Lock()
		if s.state == StateReady && s.cmd == cmd {
			s.state = StateCrashed
			s.logger.Warn("server process exited unexpectedly")
		}
		s.mu.Unlock()
	}()

	if err := s.waitReady(ctx); err != nil {
		_ = cmd.Process.Kill()

		s.mu.Lock()
		s.state = StateStopped
		s.cmd = nil
		s.mu.Unlock()

		return fmt.Errorf("%w: control endpoint %s not ready: %v", ErrStartupTimeout, s.controlAddr, err)
	}

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info("server ready")
	return nil
}

// Stop sends the termination signal and waits briefly for the process to
// exit, escalating to a kill. Idempotent and always safe to call.
func (s *Server) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	waite := s.waite
	s.cmd = nil
	s.waite = nil
	s.state = StateStopped
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Process already gone, e.g. after an apply-preferences crash.
		s.logger.Debug("termination signal failed", slog.String("error", err.Error()))
		return nil
	}

	select {
	case <-waite:
	case <-time.After(s.stopWait):
		s.logger.Warn("server did not exit in time, killing")
		_ = cmd.Process.Kill()
		<-waite
	}

	s.logger.Info("server stopped")
	return nil
}

// waitReady polls the control port with a connect-and-close probe until it
// accepts, bounded by the startup timeout.
func (s *Server) waitReady(ctx context.Context) error {
	probe := func() error {
		conn, err := net.DialTimeout("tcp", s.controlAddr, probeMaxInterval)
		if err != nil {
			return err
		}
		return conn.Close()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = probeInitialInterval
	policy.MaxInterval = probeMaxInterval
	policy.MaxElapsedTime = s.startupTimeout

	return backoff.Retry(probe, backoff.WithContext(policy, ctx))
}
