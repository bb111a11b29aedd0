package export

import (
	"encoding/csv"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/sweep"
)

func TestMagnitudeDB(t *testing.T) {
	tests := []struct {
		name  string
		value complex128
		want  float64
	}{
		{"unity", complex(1, 0), 0},
		{"half", complex(0.5, 0), 20 * math.Log10(0.5)},
		{"complex", complex(3, 4), 20 * math.Log10(5)},
		{"zero clamps to floor", complex(0, 0), -200},
		{"tiny clamps to floor", complex(1e-20, 0), -200},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := MagnitudeDB(tc.value); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Got %f, want %f", got, tc.want)
			}
		})
	}
}

func TestCSVWrite(t *testing.T) {
	start := time.Unix(1700000000, 0).UTC()
	runs := []sweep.BandwidthRun{
		{
			Bandwidth: 50_000,
			Results: []sweep.Result{
				{
					Start: start,
					End:   start.Add(250 * time.Millisecond),
					Points: []sweep.Point{
						{Index: 0, Frequency: 1e6, Z0: 50, Param: "S11", Value: complex(1, 0)},
						{Index: 1, Frequency: 2e6, Z0: 50, Param: "S11", Value: complex(0.5, -0.5)},
					},
				},
			},
		},
	}

	var sb strings.Builder
	exporter := &CSV{W: &sb}
	if err := exporter.Write("session-1", runs); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(sb.String())).ReadAll()
	if err != nil {
		t.Fatalf("Output is not valid CSV: %v", err)
	}

	if len(records) != 3 { // header plus two points
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0][0] != "Session" {
		t.Errorf("Expected header row, got %v", records[0])
	}

	first := records[1]
	if first[0] != "session-1" {
		t.Errorf("Expected session ID, got %q", first[0])
	}
	if first[1] != "50000" {
		t.Errorf("Expected bandwidth 50000, got %q", first[1])
	}
	if first[8] != "S11" {
		t.Errorf("Expected param S11, got %q", first[8])
	}
	if first[11] != "0.000" {
		t.Errorf("Expected 0 dB for a unity point, got %q", first[11])
	}
}
