// Package streamtest provides a scripted stream.Source for tests.
package streamtest

import (
	"context"
	"io"
	"sync"

	"github.com/ManuGH/camwatch/internal/stream"
)

// Attempt scripts the outcome of one Open call.
type Attempt struct {
	OpenErr error          // returned by Open when set
	Frames  []stream.Frame // yielded in order after a successful Open
	EndErr  error          // returned after the frames; nil means io.EOF
}

// Source replays Attempts in order. Once they run out, the last one repeats.
// Descriptors and options of every Open call are recorded.
type Source struct {
	mu       sync.Mutex
	Attempts []Attempt
	// PerDescriptor overrides Attempts for specific descriptors.
	PerDescriptor map[string][]Attempt

	opens       int
	perOpens    map[string]int
	descriptors []string
	options     []stream.Options
}

// Open implements stream.Source.
func (s *Source) Open(ctx context.Context, descriptor string, opts stream.Options) (stream.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.opens++
	s.descriptors = append(s.descriptors, descriptor)
	s.options = append(s.options, opts)

	script := s.Attempts
	idx := s.opens - 1
	if per, ok := s.PerDescriptor[descriptor]; ok {
		if s.perOpens == nil {
			s.perOpens = make(map[string]int)
		}
		idx = s.perOpens[descriptor]
		s.perOpens[descriptor]++
		script = per
	}
	s.mu.Unlock()

	if len(script) == 0 {
		return &Stream{}, nil
	}
	if idx >= len(script) {
		idx = len(script) - 1
	}
	a := script[idx]
	if a.OpenErr != nil {
		return nil, a.OpenErr
	}
	return &Stream{frames: a.Frames, end: a.EndErr}, nil
}

// Opens returns the number of Open calls.
func (s *Source) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Descriptors returns the descriptors passed to Open, in call order.
func (s *Source) Descriptors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.descriptors...)
}

// Options returns the options passed to Open, in call order.
func (s *Source) Options() []stream.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]stream.Options(nil), s.options...)
}

// Stream is a scripted stream.Stream.
type Stream struct {
	mu     sync.Mutex
	frames []stream.Frame
	pos    int
	end    error
	closed bool
}

// Next implements stream.Stream.
func (st *Stream) Next(ctx context.Context) (stream.Frame, error) {
	if err := ctx.Err(); err != nil {
		return stream.Frame{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.pos < len(st.frames) {
		f := st.frames[st.pos]
		st.pos++
		return f, nil
	}
	if st.end != nil {
		return stream.Frame{}, st.end
	}
	return stream.Frame{}, io.EOF
}

// Close implements stream.Stream.
func (st *Stream) Close() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.closed = true
	return nil
}

// Closed reports whether Close was called.
func (st *Stream) Closed() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.closed
}

// Filled returns a 2x2 frame with every byte set to v.
func Filled(v byte) stream.Frame {
	pix := make([]byte, 2*2*3)
	for i := range pix {
		pix[i] = v
	}
	return stream.Frame{Width: 2, Height: 2, Pix: pix}
}

// Dark returns a black frame.
func Dark() stream.Frame { return Filled(0) }

// Bright returns a mid-grey frame well above the dark threshold.
func Bright() stream.Frame { return Filled(128) }

// Frames repeats f n times.
func Frames(f stream.Frame, n int) []stream.Frame {
	out := make([]stream.Frame, n)
	for i := range out {
		out[i] = f
	}
	return out
}
