package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrame_MeanBrightness(t *testing.T) {
	assert.Equal(t, 0.0, Frame{}.MeanBrightness())
	assert.Equal(t, 0.0, Frame{Pix: []byte{0, 0, 0}}.MeanBrightness())
	assert.Equal(t, 1.0, Frame{Pix: []byte{255, 255, 255}}.MeanBrightness())
	assert.InDelta(t, 0.5, Frame{Pix: []byte{0, 255}}.MeanBrightness(), 1e-9)
}

func TestReliableOptions(t *testing.T) {
	opts := ReliableOptions(5*time.Second, 8)
	assert.Equal(t, TransportTCP, opts.Transport)
	assert.Equal(t, 5*time.Second, opts.ConnectTimeout)
	assert.Equal(t, 5*time.Second, opts.IOTimeout)
	assert.Equal(t, 1024000, opts.BufferSize)
	assert.True(t, opts.DisableReorder)
	assert.Equal(t, 500*time.Millisecond, opts.MaxDelay)
	assert.Equal(t, 8, opts.FrameLimit)
}

func TestClassifyStderr(t *testing.T) {
	exitErr := errors.New("exit status 1")
	tests := []struct {
		name  string
		lines []string
		want  error
	}{
		{"timeout", []string{"[tcp @ 0x1] Connection to tcp://10.0.0.1:554 failed: Connection timed out"}, ErrTimeout},
		{"refused", []string{"[tcp @ 0x1] Connection to tcp://10.0.0.1:554 failed: Connection refused"}, ErrRefused},
		{"unauthorized", []string{"[rtsp @ 0x1] method DESCRIBE failed: 401 Unauthorized"}, ErrProtocol},
		{"invalid data", []string{"rtsp://10.0.0.1/x: Invalid data found when processing input"}, ErrProtocol},
		{"eof", []string{"rtsp://10.0.0.1/x: End of file"}, ErrPrematureEOF},
		{"io", []string{"av_interleaved_write_frame(): Broken pipe"}, ErrIO},
		{"timeout wins over eof", []string{"End of file", "Operation timed out"}, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStderr(exitErr, tt.lines)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClassifyStderr_Unknown(t *testing.T) {
	err := classifyStderr(errors.New("exit status 1"), []string{"something odd happened"})
	for _, s := range []error{ErrTimeout, ErrRefused, ErrProtocol, ErrPrematureEOF, ErrIO} {
		assert.NotErrorIs(t, err, s)
	}
	assert.Contains(t, err.Error(), "something odd happened")
}

func TestRingBuffer(t *testing.T) {
	r := NewRingBuffer(3)
	assert.Empty(t, r.GetAll())
	r.Add("a")
	r.Add("b")
	assert.Equal(t, []string{"a", "b"}, r.GetAll())
	r.Add("c")
	r.Add("d")
	assert.Equal(t, []string{"b", "c", "d"}, r.GetAll())
}
