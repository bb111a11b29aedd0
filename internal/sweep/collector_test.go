package sweep

import (
	"testing"
)

func feed(c *collector, indices ...int) {
	for _, i := range indices {
		c.observe(Point{Index: i, Frequency: 1e6 + float64(i)*1e3, Param: "S11", Value: complex(0.5, 0)})
	}
}

func TestCollectorCompleteSweep(t *testing.T) {
	c := newCollector(3, 2, testLogger())

	feed(c, 0, 1, 2)

	select {
	case result := <-c.results:
		if len(result.Points) != 3 {
			t.Fatalf("Expected 3 points, got %d", len(result.Points))
		}
		for i, p := range result.Points {
			if p.Index != i {
				t.Errorf("Point %d has index %d", i, p.Index)
			}
		}
		if result.End.Before(result.Start) {
			t.Error("Sweep end precedes its start")
		}
	default:
		t.Fatal("Expected a completed sweep")
	}
}

func TestCollectorDropsMidSweepPoints(t *testing.T) {
	c := newCollector(3, 1, testLogger())

	// Points from a sweep already in flight when the collector went live
	// carry non-zero indices and must be ignored.
	feed(c, 1, 2)
	if len(c.results) != 0 {
		t.Fatal("Mid-sweep points must not complete a sweep")
	}

	feed(c, 0, 1, 2)
	if len(c.results) != 1 {
		t.Fatalf("Expected 1 completed sweep, got %d", len(c.results))
	}
}

func TestCollectorDiscardsIncompleteSweep(t *testing.T) {
	c := newCollector(3, 2, testLogger())

	// A new index-0 while a sweep is partially assembled discards the
	// partial sweep, the short "junk" sweep raced across a reconfiguration.
	feed(c, 0, 1)
	feed(c, 0, 1, 2)

	if len(c.results) != 1 {
		t.Fatalf("Expected 1 completed sweep, got %d", len(c.results))
	}

	result := <-c.results
	if len(result.Points) != 3 {
		t.Errorf("Expected 3 points in surviving sweep, got %d", len(result.Points))
	}
}

func TestCollectorIndexGap(t *testing.T) {
	c := newCollector(4, 1, testLogger())

	feed(c, 0, 1, 3) // gap: 2 missing
	if len(c.results) != 0 {
		t.Fatal("Sweep with an index gap must be dropped")
	}

	// The next index-0 starts a clean sweep.
	feed(c, 0, 1, 2, 3)
	if len(c.results) != 1 {
		t.Fatalf("Expected 1 completed sweep after recovery, got %d", len(c.results))
	}
}

func TestCollectorStopsAtTarget(t *testing.T) {
	c := newCollector(2, 2, testLogger())

	// Three full sweeps arrive but only the target count is kept; the
	// overflow is dropped so the channel send can never block the read loop.
	feed(c, 0, 1, 0, 1, 0, 1)

	if len(c.results) != 2 {
		t.Fatalf("Expected exactly 2 sweeps, got %d", len(c.results))
	}
	if c.completed != 2 {
		t.Errorf("Expected completed count 2, got %d", c.completed)
	}
}
