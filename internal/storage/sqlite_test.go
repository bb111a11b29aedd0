package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

func newTestStore(t *testing.T) *SqliteStore {
	t.Helper()

	store := NewSqliteStore(filepath.Join(t.TempDir(), "sweeps.sqlite"))
	t.Cleanup(func() { store.Close() })
	return store
}

func testRun(bandwidth, sweeps, points int) sweep.BandwidthRun {
	run := sweep.BandwidthRun{Bandwidth: bandwidth}
	base := time.Unix(1700000000, 0).UTC()

	for i := 0; i < sweeps; i++ {
		result := sweep.Result{
			Start: base.Add(time.Duration(i) * time.Second),
			End:   base.Add(time.Duration(i)*time.Second + 250*time.Millisecond),
		}
		for j := 0; j < points; j++ {
			result.Points = append(result.Points, sweep.Point{
				Index:     j,
				Frequency: 1e6 + float64(j)*1e3,
				Z0:        50,
				Param:     "S11",
				Value:     complex(0.5, -0.25),
			})
		}
		run.Results = append(run.Results, result)
	}

	run.Summary = sweep.Summarize(run.Results)
	return run
}

func TestSqliteStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID, err := store.CreateSession(ctx, "continuous", map[string]int{"points": 3})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if sessionID == "" {
		t.Fatal("Expected a session ID")
	}

	runs := []sweep.BandwidthRun{
		testRun(50_000, 2, 3),
		testRun(10_000, 2, 3),
	}
	for _, run := range runs {
		if err = store.StoreRun(ctx, sessionID, run); err != nil {
			t.Fatalf("StoreRun for bandwidth %d failed: %v", run.Bandwidth, err)
		}
	}

	session, err := store.Session(ctx, sessionID)
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if session == nil {
		t.Fatal("Expected session to be found")
	}
	if session.Mode != "continuous" {
		t.Errorf("Expected mode 'continuous', got %q", session.Mode)
	}
	if session.Config == nil || *session.Config != `{"points":3}` {
		t.Errorf("Unexpected stored config: %v", session.Config)
	}

	sweeps, err := store.Sweeps(ctx, sessionID)
	if err != nil {
		t.Fatalf("Sweeps failed: %v", err)
	}
	if len(sweeps) != 4 {
		t.Fatalf("Expected 4 sweeps, got %d", len(sweeps))
	}

	// Stored in acquisition order: bandwidth 50kHz sweeps first.
	wantBandwidths := []int{50_000, 50_000, 10_000, 10_000}
	for i, rec := range sweeps {
		if rec.Bandwidth != wantBandwidths[i] {
			t.Errorf("Sweep %d has bandwidth %d, expected %d", i, rec.Bandwidth, wantBandwidths[i])
		}
		if rec.SweepIndex != i%2 {
			t.Errorf("Sweep %d has index %d, expected %d", i, rec.SweepIndex, i%2)
		}
		if len(rec.Points) != 3 {
			t.Fatalf("Sweep %d has %d points, expected 3", i, len(rec.Points))
		}
		for j, p := range rec.Points {
			if p.Index != j {
				t.Errorf("Sweep %d point %d has index %d", i, j, p.Index)
			}
			if p.Param != "S11" {
				t.Errorf("Sweep %d point %d has param %q", i, j, p.Param)
			}
			if p.Value != complex(0.5, -0.25) {
				t.Errorf("Sweep %d point %d has value %v", i, j, p.Value)
			}
		}
		if !rec.End.After(rec.Start) {
			t.Errorf("Sweep %d end does not follow its start", i)
		}
	}
}

func TestSqliteStoreSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateSession(ctx, "single", nil)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	second, err := store.CreateSession(ctx, "continuous", "raw config")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}

	ids := map[string]bool{sessions[0].ID: true, sessions[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("Expected sessions %s and %s, got %v", first, second, ids)
	}

	for _, s := range sessions {
		if s.ID != second {
			continue
		}
		if s.Config == nil || *s.Config != "raw config" {
			t.Errorf("Expected the string config preserved, got %v", s.Config)
		}
	}
}

func TestSqliteStoreSessionNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Force schema creation so the read connection has a database to open.
	if _, err := store.CreateSession(ctx, "single", nil); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	session, err := store.Session(ctx, "00000000-0000-0000-0000-000000000000")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if session != nil {
		t.Errorf("Expected nil for unknown session, got %+v", session)
	}
}

func TestSqliteStoreCloseIdempotent(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.CreateSession(context.Background(), "single", nil); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Second Close failed: %v", err)
	}
}
