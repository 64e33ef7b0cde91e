// Package stream defines the stream source capability used by the prober
// and provides an ffmpeg-backed implementation of it.
package stream

import (
	"context"
	"errors"
	"time"
)

// Failure sentinels. Sources wrap them so callers can match with errors.Is.
var (
	ErrTimeout      = errors.New("stream timeout")
	ErrRefused      = errors.New("connection refused")
	ErrPrematureEOF = errors.New("premature end of stream")
	ErrIO           = errors.New("stream i/o error")
	ErrProtocol     = errors.New("stream protocol error")
)

// Transport values accepted in Options.
const (
	TransportTCP = "tcp"
	TransportUDP = "udp"
)

// Transport tuning applied by ReliableOptions.
const (
	DefaultBufferSize = 1024000
	DefaultMaxDelay   = 500 * time.Millisecond
)

// Options configure how a stream is opened.
type Options struct {
	Transport      string        // forced transport, "tcp" for reliable delivery
	ConnectTimeout time.Duration // time allowed until the first frame
	IOTimeout      time.Duration // socket and per-frame read timeout
	BufferSize     int           // transport buffer size in bytes
	DisableReorder bool          // disable the RTP re-ordering queue
	MaxDelay       time.Duration // demuxer max delay
	FrameLimit     int           // frames to decode before the source stops; 0 means unbounded
}

// ReliableOptions returns the options used by probes: forced TCP transport,
// bounded buffering and no re-ordering.
func ReliableOptions(timeout time.Duration, frameLimit int) Options {
	return Options{
		Transport:      TransportTCP,
		ConnectTimeout: timeout,
		IOTimeout:      timeout,
		BufferSize:     DefaultBufferSize,
		DisableReorder: true,
		MaxDelay:       DefaultMaxDelay,
		FrameLimit:     frameLimit,
	}
}

// Frame is one decoded video frame as packed RGB24 pixels.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// MeanBrightness returns the mean pixel intensity normalised to [0,1].
// An empty frame reports 0.
func (f Frame) MeanBrightness() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	var sum uint64
	for _, b := range f.Pix {
		sum += uint64(b)
	}
	return float64(sum) / float64(len(f.Pix)) / 255.0
}

// Stream yields decoded frames in order. It is finite and not restartable.
type Stream interface {
	// Next returns the next frame, io.EOF once the stream ended cleanly,
	// or an error wrapping one of the failure sentinels.
	Next(ctx context.Context) (Frame, error)
	Close() error
}

// Source opens streams from connection descriptors.
type Source interface {
	Open(ctx context.Context, descriptor string, opts Options) (Stream, error)
}
