package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/procgroup"
)

// FFmpegConfig configures the ffmpeg-backed source.
type FFmpegConfig struct {
	Bin         string        // ffmpeg binary, resolved via PATH when relative
	FrameWidth  int           // frames are scaled down before brightness analysis
	FrameHeight int           //
	KillGrace   time.Duration // SIGTERM to SIGKILL grace when a probe gives up
}

// DefaultFFmpegConfig returns the decoder settings used unless configured.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		Bin:         "ffmpeg",
		FrameWidth:  160,
		FrameHeight: 90,
		KillGrace:   2 * time.Second,
	}
}

// FFmpegSource decodes streams by running ffmpeg and reading raw RGB24 frames
// from its stdout.
type FFmpegSource struct {
	cfg    FFmpegConfig
	logger zerolog.Logger
}

// NewFFmpegSource creates a source. Zero config fields fall back to defaults.
func NewFFmpegSource(cfg FFmpegConfig, logger zerolog.Logger) *FFmpegSource {
	def := DefaultFFmpegConfig()
	if cfg.Bin == "" {
		cfg.Bin = def.Bin
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		cfg.FrameWidth, cfg.FrameHeight = def.FrameWidth, def.FrameHeight
	}
	if cfg.KillGrace <= 0 {
		cfg.KillGrace = def.KillGrace
	}
	return &FFmpegSource{cfg: cfg, logger: logger}
}

// Args builds the ffmpeg command line for a descriptor.
func (s *FFmpegSource) Args(descriptor string, opts Options) []string {
	args := []string{"-nostdin", "-hide_banner", "-loglevel", "error"}
	if opts.Transport != "" {
		args = append(args, "-rtsp_transport", opts.Transport)
	}
	if opts.IOTimeout > 0 {
		args = append(args, "-timeout", strconv.FormatInt(opts.IOTimeout.Microseconds(), 10))
	}
	if opts.BufferSize > 0 {
		args = append(args, "-buffer_size", strconv.Itoa(opts.BufferSize))
	}
	if opts.DisableReorder {
		args = append(args, "-reorder_queue_size", "0")
	}
	if opts.MaxDelay > 0 {
		args = append(args, "-max_delay", strconv.FormatInt(opts.MaxDelay.Microseconds(), 10))
	}
	args = append(args, "-i", descriptor, "-an", "-sn", "-dn")
	if opts.FrameLimit > 0 {
		args = append(args, "-frames:v", strconv.Itoa(opts.FrameLimit))
	}
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d", s.cfg.FrameWidth, s.cfg.FrameHeight),
		"-pix_fmt", "rgb24",
		"-f", "rawvideo",
		"pipe:1",
	)
	return args
}

// Open starts the decoder. The process runs in its own group and is reaped by Close.
func (s *FFmpegSource) Open(ctx context.Context, descriptor string, opts Options) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// #nosec G204 - binary comes from configuration; descriptor is passed as a single argument
	cmd := exec.Command(s.cfg.Bin, s.Args(descriptor, opts)...)
	procgroup.Set(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to pipe stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("exec start failed: %w", err)
	}
	s.logger.Debug().
		Str(xglog.FieldURL, xglog.MaskURL(descriptor)).
		Int("pid", cmd.Process.Pid).
		Int("frame_limit", opts.FrameLimit).
		Msg("decoder started")

	st := &ffmpegStream{
		cmd:          cmd,
		ring:         NewRingBuffer(50),
		width:        s.cfg.FrameWidth,
		height:       s.cfg.FrameHeight,
		frames:       make(chan readResult),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		firstTimeout: opts.ConnectTimeout,
		ioTimeout:    opts.IOTimeout,
		grace:        s.cfg.KillGrace,
	}
	go st.supervise(stdout, stderr)
	return st, nil
}

type readResult struct {
	frame Frame
	err   error
}

type ffmpegStream struct {
	cmd           *exec.Cmd
	ring          *RingBuffer
	width, height int

	frames chan readResult
	stop   chan struct{}
	done   chan struct{} // closed after cmd.Wait returned

	firstTimeout time.Duration
	ioTimeout    time.Duration
	grace        time.Duration
	received     int

	closeOnce sync.Once
	closeErr  error
}

// supervise owns the pipes: it reads frames until the decoder stops, drains
// stderr, waits for the process and emits the terminal result.
func (st *ffmpegStream) supervise(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			st.ring.Add(scanner.Text())
		}
	}()

	frameSize := st.width * st.height * 3
	var readErr error
	for {
		buf := make([]byte, frameSize)
		if _, err := io.ReadFull(stdout, buf); err != nil {
			readErr = err
			break
		}
		select {
		case st.frames <- readResult{frame: Frame{Width: st.width, Height: st.height, Pix: buf}}:
		case <-st.stop:
			readErr = errStopped
		}
		if readErr != nil {
			break
		}
	}
	if readErr == errStopped {
		// Unblock the decoder so it notices the closed pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	wg.Wait()
	waitErr := st.cmd.Wait()
	close(st.done)

	result := readResult{err: st.terminalError(readErr, waitErr)}
	select {
	case st.frames <- result:
	case <-st.stop:
	}
}

var errStopped = errors.New("stream closed")

func (st *ffmpegStream) terminalError(readErr, waitErr error) error {
	if readErr == errStopped {
		return errStopped
	}
	if waitErr != nil {
		return classifyStderr(waitErr, st.ring.GetAll())
	}
	switch {
	case errors.Is(readErr, io.EOF):
		return io.EOF
	case errors.Is(readErr, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: truncated frame", ErrPrematureEOF)
	default:
		return fmt.Errorf("%w: %v", ErrIO, readErr)
	}
}

func (st *ffmpegStream) Next(ctx context.Context) (Frame, error) {
	timeout := st.ioTimeout
	if st.received == 0 {
		timeout = st.firstTimeout
	}
	var timeoutC <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-timeoutC:
		return Frame{}, fmt.Errorf("%w: no frame within %s", ErrTimeout, timeout)
	case res := <-st.frames:
		if res.err != nil {
			// Keep returning the terminal error on subsequent calls.
			go st.replay(res)
			return Frame{}, res.err
		}
		st.received++
		return res.frame, nil
	}
}

// replay re-offers the terminal result so repeated Next calls stay consistent.
func (st *ffmpegStream) replay(res readResult) {
	select {
	case st.frames <- res:
	case <-st.stop:
	}
}

func (st *ffmpegStream) Close() error {
	st.closeOnce.Do(func() {
		close(st.stop)
		st.closeErr = procgroup.Terminate(st.cmd, st.done, st.grace)
	})
	return st.closeErr
}
