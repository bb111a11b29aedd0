package storage

import (
	"context"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

// Session describes one acquisition run stored in the database.
type Session struct {
	ID        string    // UUID
	StartTime time.Time
	Mode      string  // acquisition strategy used for the run
	Config    *string // acquisition configuration in JSON format, if recorded
}

// SweepRecord is one stored sweep with its measured points.
type SweepRecord struct {
	ID         int64
	SessionID  string
	Bandwidth  int // Hz
	SweepIndex int // 0-based within its bandwidth value
	Start      time.Time
	End        time.Time
	Points     []sweep.Point
}

// Store persists acquisition sessions and their sweep results. Writes are
// atomic per sweep; the engine itself never touches the store, it is wired
// as a consumer of the engine's output.
type Store interface {
	// CreateSession records a new acquisition session and returns its UUID.
	// config can be a string, []byte, or any JSON-serializable value.
	CreateSession(ctx context.Context, mode string, config any) (sessionID string, err error)

	// StoreRun persists every sweep of one bandwidth value in acquisition
	// order, each with all its points in a single transaction.
	StoreRun(ctx context.Context, sessionID string, run sweep.BandwidthRun) error

	// Session retrieves one session by UUID; nil if not found.
	Session(ctx context.Context, id string) (*Session, error)

	// Sessions lists all stored sessions ordered by start time.
	Sessions(ctx context.Context) ([]*Session, error)

	// Sweeps returns every sweep of a session with points attached, ordered
	// by bandwidth iteration order and sweep index.
	Sweeps(ctx context.Context, sessionID string) ([]*SweepRecord, error)

	// Close releases database resources. Safe to call multiple times.
	Close() error
}
