package sweep

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeffrymahbuubi/VNA-Project-sub000/internal/vna"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// traceData builds a trace-data response of the given length: frequency,
// real, imaginary triplets over a linear grid.
func traceData(points int, startFreq, stopFreq float64) string {
	var sb strings.Builder
	step := (stopFreq - startFreq) / float64(points-1)

	for i := 0; i < points; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%g,%g,%g", startFreq+float64(i)*step, 0.5, -0.25)
	}
	return sb.String()
}

// fakeControl emulates the instrument control channel over one end of a
// net.Pipe. Commands are acknowledged through the error-status register,
// queries are answered from configured state.
type fakeControl struct {
	points    int
	startFreq float64
	stopFreq  float64

	mu           sync.Mutex
	commands     []string
	lastCmd      string
	failStatus   map[string]uint16 // command prefix -> status bits
	calResponse  string
	doneSweeps   int // sweeps whose finished flag is reported; -1 means all
	pollsPerDone int
	triggered    int
	pollsLeft    int

	conn net.Conn
}

func newFakeControl(t *testing.T, points int) (*vna.Client, *fakeControl) {
	t.Helper()

	clientConn, serverConn := net.Pipe()
	f := &fakeControl{
		points:      points,
		startFreq:   1e6,
		stopFreq:    2e6,
		calResponse: "1",
		doneSweeps:  -1,
		conn:        serverConn,
	}
	t.Cleanup(func() { serverConn.Close() })

	go f.run()

	return vna.NewClient(clientConn, vna.WithTimeout(time.Second)), f
}

func (f *fakeControl) run() {
	reader := bufio.NewReader(f.conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		if resp := f.handle(strings.TrimSpace(line)); resp != "" {
			if _, err := f.conn.Write([]byte(resp + "\n")); err != nil {
				return
			}
		}
	}
}

func (f *fakeControl) handle(line string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, line)

	switch {
	case line == vna.QueryErrorStatus:
		for prefix, status := range f.failStatus {
			if strings.HasPrefix(f.lastCmd, prefix) {
				return strconv.Itoa(int(status))
			}
		}
		return "0"

	case line == vna.QuerySweepDone:
		if f.doneSweeps >= 0 && f.triggered > f.doneSweeps {
			return "0"
		}
		if f.pollsLeft > 0 {
			f.pollsLeft--
			return "0"
		}
		return "1"

	case line == vna.QueryTraceData:
		return traceData(f.points, f.startFreq, f.stopFreq)

	case strings.HasPrefix(line, vna.QueryCalibration):
		return f.calResponse

	default:
		f.lastCmd = line
		if strings.HasPrefix(line, vna.CmdFreqStop+" ") {
			f.triggered++
			f.pollsLeft = f.pollsPerDone
		}
		return ""
	}
}

// count returns how many received lines start with the given prefix.
func (f *fakeControl) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int
	for _, cmd := range f.commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}
