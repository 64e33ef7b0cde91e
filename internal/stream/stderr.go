package stream

import (
	"fmt"
	"strings"
	"sync"
)

// stderrPatterns maps decoder diagnostics to failure sentinels. The first
// class with a matching line wins, so order encodes priority.
var stderrPatterns = []struct {
	sentinel error
	needles  []string
}{
	{ErrTimeout, []string{"timed out", "timeout"}},
	{ErrRefused, []string{"connection refused"}},
	{ErrProtocol, []string{
		"invalid data found",
		"401 unauthorized",
		"403 forbidden",
		"404 not found",
		"method describe failed",
		"method setup failed",
		"protocol not found",
		"nonmatching transport",
		"server returned",
	}},
	{ErrPrematureEOF, []string{"end of file"}},
	{ErrIO, []string{
		"i/o error",
		"input/output error",
		"broken pipe",
		"connection reset",
		"no route to host",
		"network is unreachable",
	}},
}

// classifyStderr maps a failed decoder run to an error. Unknown diagnostics
// yield an error that wraps none of the sentinels.
func classifyStderr(exitErr error, lines []string) error {
	lowered := make([]string, len(lines))
	for i, l := range lines {
		lowered[i] = strings.ToLower(l)
	}
	for _, p := range stderrPatterns {
		for i, line := range lowered {
			for _, needle := range p.needles {
				if strings.Contains(line, needle) {
					return fmt.Errorf("%w: %s", p.sentinel, truncate(strings.TrimSpace(lines[i])))
				}
			}
		}
	}
	return fmt.Errorf("ffmpeg failed: %v (stderr: %s)", exitErr, truncate(strings.Join(lines, " | ")))
}

func truncate(s string) string {
	const maxLen = 512
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// RingBuffer keeps the last n stderr lines of a decoder process.
type RingBuffer struct {
	lines []string
	pos   int
	full  bool
	mu    sync.Mutex
}

func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{lines: make([]string, size)}
}

func (r *RingBuffer) Add(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.pos] = line
	r.pos = (r.pos + 1) % len(r.lines)
	if r.pos == 0 {
		r.full = true
	}
}

func (r *RingBuffer) GetAll() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]string(nil), r.lines[:r.pos]...)
	}
	res := make([]string, len(r.lines))
	copy(res, r.lines[r.pos:])
	copy(res[len(r.lines)-r.pos:], r.lines[:r.pos])
	return res
}
