package vna

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// WithTimeout sets the per-operation I/O timeout for the control connection
func WithTimeout(d time.Duration) func(c *Client) {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientLogger sets the logger for the control client
func WithClientLogger(logger *slog.Logger) func(c *Client) {
	return func(c *Client) {
		c.logger = logger.With(slog.String("channel", "control"))
	}
}

// Client is a control channel connection to the VNA server. It sends
// commands and queries over a persistent line-oriented TCP connection.
//
// The client never retries: any I/O error or timeout surfaces to the caller,
// and retry policy belongs there. The connection is owned by a single
// goroutine; Client is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	logger  *slog.Logger
}

// Dial opens a control channel connection to the given address.
func Dial(addr string, options ...func(c *Client)) (*Client, error) {
	c := Client{
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&c)
	}

	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing control channel: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return &c, nil
}

// NewClient wraps an already-open connection. Used by tests and tunnels.
func NewClient(conn net.Conn, options ...func(c *Client)) *Client {
	c := Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: defaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// Exec writes a command and then reads the error-status register. Non-zero
// status bits surface as a *CommandError.
func (c *Client) Exec(cmd string) error {
	if err := c.ExecRaw(cmd); err != nil {
		return err
	}

	resp, err := c.Query(QueryErrorStatus)
	if err != nil {
		return fmt.Errorf("reading error status after %q: %w", cmd, err)
	}

	status, err := strconv.ParseUint(strings.TrimSpace(resp), 10, 16)
	if err != nil {
		return fmt.Errorf("parsing error status %q after %q: %w", resp, cmd, err)
	}

	if status != 0 {
		return &CommandError{Cmd: cmd, Status: uint16(status)}
	}
	return nil
}

// ExecRaw writes a command without checking the error-status register
// afterwards. Callers use this for commands documented to set spurious error
// bits even on success, such as the preference set/apply pair.
func (c *Client) ExecRaw(cmd string) error {
	if c.conn == nil {
		return ErrNotConnected
	}

	c.logger.Debug("command", slog.String("cmd", cmd))
	return c.writeLine(cmd)
}

// Query writes a query and reads exactly one response line. Queries are
// defined by the protocol as always well-formed, so no status check happens.
func (c *Client) Query(query string) (string, error) {
	if c.conn == nil {
		return "", ErrNotConnected
	}

	if err := c.writeLine(query); err != nil {
		return "", err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", fmt.Errorf("setting read deadline: %w", err)
	}

	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading response to %q: %w", query, err)
	}

	resp := strings.TrimRight(line, "\r\n")
	c.logger.Debug("query", slog.String("query", query), slog.String("response", resp))
	return resp, nil
}

// Redial replaces the underlying connection in place after a server
// restart, so handles held by callers stay valid. Any previous connection
// is closed first.
func (c *Client) Redial(addr string) error {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	conn, err := net.DialTimeout("tcp", addr, c.timeout)
	if err != nil {
		return fmt.Errorf("redialing control channel: %w", err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	return nil
}

// Close closes the control connection. Safe to call on an already-closed client.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) writeLine(line string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return fmt.Errorf("setting write deadline: %w", err)
	}

	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("writing %q: %w", line, err)
	}
	return nil
}
