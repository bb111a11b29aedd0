package vna

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Endpoint identifies one push-data channel of the VNA server. Each endpoint
// delivers one structured message per measured frequency point.
type Endpoint string

const (
	EndpointCalibrated Endpoint = "calibrated"
	EndpointRaw        Endpoint = "raw"
)

// StreamPoint is one decoded streaming message. Point indices reset to zero
// at the start of every sweep.
type StreamPoint struct {
	Index     int
	Frequency float64 // Hz
	Z0        float64 // reference impedance, Ohm
	Param     string  // measurement name, e.g. "S11"
	Value     complex128
}

// PointFunc receives decoded points on the endpoint's read-loop goroutine,
// in arrival order. Implementations must not block.
type PointFunc func(p StreamPoint)

// WithStreamTimeout sets the dial and per-read timeout for stream connections
func WithStreamTimeout(d time.Duration) func(s *StreamClient) {
	return func(s *StreamClient) {
		s.timeout = d
	}
}

// WithStreamLogger sets the logger for the streaming client
func WithStreamLogger(logger *slog.Logger) func(s *StreamClient) {
	return func(s *StreamClient) {
		s.logger = logger.With(slog.String("channel", "stream"))
	}
}

// StreamClient manages subscriptions to the server's streaming endpoints.
// The first subscription to an endpoint opens its connection and spawns
// exactly one background read loop; the loop runs until the last
// subscription is cancelled or the connection drops.
type StreamClient struct {
	addrs   map[Endpoint]string
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	conns map[Endpoint]*endpointConn
}

type endpointConn struct {
	conn net.Conn
	subs []*Subscription
	done chan struct{}
}

// Subscription is a handle for one registered callback. Cancel deregisters
// it; cancelling the last subscription of an endpoint closes the connection.
type Subscription struct {
	client   *StreamClient
	endpoint Endpoint
	fn       PointFunc
	once     sync.Once
}

// NewStreamClient creates a streaming client for the given endpoint addresses.
func NewStreamClient(addrs map[Endpoint]string, options ...func(s *StreamClient)) *StreamClient {
	s := StreamClient{
		addrs:   addrs,
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
		conns:   make(map[Endpoint]*endpointConn),
	}

	for _, option := range options {
		option(&s)
	}

	return &s
}

// Probe reports whether the endpoint is currently accepting connections.
// It performs a lightweight connect-and-close and never subscribes.
func (s *StreamClient) Probe(endpoint Endpoint) bool {
	addr, ok := s.addrs[endpoint]
	if !ok {
		return false
	}

	conn, err := net.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		return false
	}

	_ = conn.Close()
	return true
}

// Subscribe registers a callback for the endpoint, opening its connection
// and starting the read loop if this is the first subscriber.
func (s *StreamClient) Subscribe(endpoint Endpoint, fn PointFunc) (*Subscription, error) {
	addr, ok := s.addrs[endpoint]
	if !ok {
		return nil, fmt.Errorf("unknown streaming endpoint %q", endpoint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &Subscription{client: s, endpoint: endpoint, fn: fn}

	ec, ok := s.conns[endpoint]
	if ok {
		ec.subs = append(ec.subs, sub)
		return sub, nil
	}

	conn, err := net.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing streaming endpoint %q: %w", endpoint, err)
	}

	ec = &endpointConn{
		conn: conn,
		subs: []*Subscription{sub},
		done: make(chan struct{}),
	}
	s.conns[endpoint] = ec

	go s.readLoop(endpoint, ec)
	return sub, nil
}

// Cancel deregisters the subscription. The endpoint's read loop keeps
// running only while at least one subscription remains. Safe to call twice.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		sub.client.remove(sub)
	})
}

// Close tears down every endpoint connection regardless of subscribers.
func (s *StreamClient) Close() error {
	s.mu.Lock()
	conns := make([]*endpointConn, 0, len(s.conns))
	for endpoint, ec := range s.conns {
		conns = append(conns, ec)
		delete(s.conns, endpoint)
	}
	s.mu.Unlock()

	var errs []error
	for _, ec := range conns {
		if err := ec.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		<-ec.done
	}
	return errors.Join(errs...)
}

func (s *StreamClient) remove(sub *Subscription) {
	s.mu.Lock()

	ec, ok := s.conns[sub.endpoint]
	if !ok {
		s.mu.Unlock()
		return
	}

	for i, candidate := range ec.subs {
		if candidate == sub {
			ec.subs = append(ec.subs[:i], ec.subs[i+1:]...)
			break
		}
	}

	if len(ec.subs) > 0 {
		s.mu.Unlock()
		return
	}

	delete(s.conns, sub.endpoint)
	s.mu.Unlock()

	// Closing the connection unblocks the read loop, which then exits.
	_ = ec.conn.Close()
	<-ec.done
}

// readLoop decodes one message per line and dispatches it synchronously to
// every subscriber, in arrival order. Malformed lines and transient read
// timeouts are logged and skipped so a single bad line cannot kill the loop;
// a closed or reset connection terminates it.
func (s *StreamClient) readLoop(endpoint Endpoint, ec *endpointConn) {
	defer close(ec.done)

	logger := s.logger.With(slog.String("endpoint", string(endpoint)))
	logger.Debug("read loop started")

	reader := bufio.NewReader(ec.conn)
	for {
		_ = ec.conn.SetReadDeadline(time.Now().Add(s.timeout))

		line, err := reader.ReadString('\n')
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue // nothing in flight, keep waiting
			}

			logger.Debug("read loop terminated", slog.String("reason", err.Error()))
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		point, err := parseStreamPoint(line)
		if err != nil {
			logger.Warn("dropping malformed point", slog.String("line", line), slog.String("error", err.Error()))
			continue
		}

		s.mu.Lock()
		subs := make([]*Subscription, len(ec.subs))
		copy(subs, ec.subs)
		s.mu.Unlock()

		for _, sub := range subs {
			sub.fn(point)
		}
	}
}

// parseStreamPoint decodes "index,freq_hz,z0,name,re,im".
func parseStreamPoint(line string) (StreamPoint, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return StreamPoint{}, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}

	index, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return StreamPoint{}, fmt.Errorf("invalid point index: %w", err)
	}

	freq, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return StreamPoint{}, fmt.Errorf("invalid frequency: %w", err)
	}

	z0, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return StreamPoint{}, fmt.Errorf("invalid reference impedance: %w", err)
	}

	param := strings.TrimSpace(fields[3])
	if param == "" {
		return StreamPoint{}, errors.New("empty measurement name")
	}

	re, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		return StreamPoint{}, fmt.Errorf("invalid real part: %w", err)
	}

	im, err := strconv.ParseFloat(strings.TrimSpace(fields[5]), 64)
	if err != nil {
		return StreamPoint{}, fmt.Errorf("invalid imaginary part: %w", err)
	}

	return StreamPoint{
		Index:     index,
		Frequency: freq,
		Z0:        z0,
		Param:     param,
		Value:     complex(re, im),
	}, nil
}
