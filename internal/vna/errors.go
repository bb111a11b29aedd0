package vna

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation is attempted on a closed client
	ErrNotConnected = errors.New("not connected")

	// ErrStartupTimeout is returned when the server process does not start
	// accepting control connections within the startup timeout
	ErrStartupTimeout = errors.New("server startup timeout")

	// ErrServerNotRunning is returned when an operation requires a running server
	ErrServerNotRunning = errors.New("server is not running")
)

// CommandError is reported when the instrument flags error-status bits after
// a checked command.
type CommandError struct {
	Cmd    string
	Status uint16
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %q failed: error status 0x%04x", e.Cmd, e.Status)
}
