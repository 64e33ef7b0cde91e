// Package prober checks a single video channel: it opens the stream with
// bounded retries, samples frames after warm-up and classifies the endpoint.
package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/policy"
	"github.com/ManuGH/camwatch/internal/precheck"
	"github.com/ManuGH/camwatch/internal/stream"
	"github.com/ManuGH/camwatch/internal/telemetry"
)

const (
	// DefaultDarkThreshold is the normalised mean brightness below which a frame is dark.
	DefaultDarkThreshold = 0.10
	// DefaultRetryDelay is the pause between retryable attempts.
	DefaultRetryDelay = time.Second
)

// Prober probes channels. It holds no per-probe state, so one instance may
// be used from many goroutines.
type Prober struct {
	source        stream.Source
	prechecker    precheck.Checker
	darkThreshold float64
	retryDelay    time.Duration
	bufferSize    int
	maxDelay      time.Duration
	logger        zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithPrechecker replaces the TCP pre-check implementation.
func WithPrechecker(c precheck.Checker) Option {
	return func(p *Prober) { p.prechecker = c }
}

// WithDarkThreshold sets the brightness threshold in [0,1].
func WithDarkThreshold(v float64) Option {
	return func(p *Prober) { p.darkThreshold = v }
}

// WithRetryDelay sets the pause between retryable attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(p *Prober) { p.retryDelay = d }
}

// WithTransportTuning overrides the transport buffer size and demuxer max
// delay of every stream opened. Non-positive values keep the defaults.
func WithTransportTuning(bufferSize int, maxDelay time.Duration) Option {
	return func(p *Prober) {
		p.bufferSize = bufferSize
		p.maxDelay = maxDelay
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Prober) { p.logger = l }
}

// New creates a prober reading from source.
func New(source stream.Source, opts ...Option) *Prober {
	p := &Prober{
		source:        source,
		prechecker:    precheck.TCP{},
		darkThreshold: DefaultDarkThreshold,
		retryDelay:    DefaultRetryDelay,
		logger:        xglog.WithComponent("prober"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// attemptState is the bounded retry state machine: the attempt counter and
// the class of the last failure.
type attemptState struct {
	attempt int
	max     int
	last    FailureClass
	lastErr error
}

func (s *attemptState) exhausted() bool { return s.attempt >= s.max }

// sample is what one successful attempt observed.
type sample struct {
	checked int
	dark    int
}

// Probe checks one channel and always returns a terminal Result. Failures
// never escape as errors or panics.
func (p *Prober) Probe(ctx context.Context, channel int, descriptor string, profile policy.Profile) (res Result) {
	start := time.Now()
	masked := xglog.MaskURL(descriptor)
	logger := xglog.WithContext(ctx, p.logger).With().
		Int(xglog.FieldChannel, channel).
		Str(xglog.FieldURL, masked).
		Str(xglog.FieldProfile, profile.Name).
		Logger()

	ctx, span := telemetry.Tracer("camwatch/prober").Start(ctx, "prober.probe")
	span.SetAttributes(telemetry.ProbeAttributes(channel, masked)...)
	defer func() {
		if r := recover(); r != nil {
			res = Result{
				Channel:  channel,
				Quality:  QualityException,
				Failure:  FailureUnexpected,
				Attempts: res.Attempts,
				Error:    fmt.Sprintf("panic: %v", r),
			}
			logger.Error().Interface("panic", r).Str(xglog.FieldEvent, "probe.panic").Msg("probe panicked")
		}
		res.Duration = time.Since(start)
		span.SetAttributes(telemetry.ResultAttributes(string(res.Quality), string(res.Failure), res.Attempts)...)
		if !res.Accessible {
			span.SetStatus(codes.Error, string(res.Quality))
		}
		span.End()
	}()

	res = Result{Channel: channel}
	logger.Debug().
		Dur("budget", profile.Budget()).
		Int(xglog.FieldMaxAttempts, profile.MaxAttempts).
		Str(xglog.FieldEvent, "probe.start").
		Msg("probing channel")

	if profile.Precheck && !p.precheck(ctx, descriptor, profile) {
		res.Quality = QualityTCPFailed
		res.Failure = FailureTCPUnreachable
		res.Error = "tcp pre-check failed"
		logger.Warn().Str(xglog.FieldEvent, "probe.tcp_failed").Msg("TCP pre-check failed, skipping stream probe")
		return res
	}

	maxAttempts := profile.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	st := attemptState{max: maxAttempts}
	for {
		st.attempt++
		res.Attempts = st.attempt

		smp, err := p.attempt(ctx, descriptor, profile)
		if err == nil {
			res.Accessible = true
			res.FramesChecked = smp.checked
			res.FramesDark = smp.dark
			res.Quality = QualityNormal
			if smp.checked > 0 && smp.dark == smp.checked {
				res.Quality = QualityDark
				logger.Warn().
					Int(xglog.FieldFramesTotal, smp.checked).
					Str(xglog.FieldEvent, "probe.dark").
					Msg("stream is reachable but every sampled frame is dark")
			}
			if st.attempt > 1 {
				logger.Info().Int(xglog.FieldAttempt, st.attempt).Msg("stream recovered after retry")
			}
			return res
		}

		class, retryable := Classify(err)
		st.last, st.lastErr = class, err
		res.Failure = class
		res.Error = err.Error()

		if !retryable {
			res.Quality = terminalQuality(class)
			logger.Warn().Err(err).
				Str(xglog.FieldFailureClass, string(class)).
				Int(xglog.FieldAttempt, st.attempt).
				Str(xglog.FieldEvent, "probe.failed").
				Msg("stream probe failed")
			return res
		}
		if st.exhausted() {
			break
		}

		logger.Info().Err(err).
			Str(xglog.FieldFailureClass, string(class)).
			Int(xglog.FieldAttempt, st.attempt).
			Int(xglog.FieldMaxAttempts, st.max).
			Msg("retryable stream failure")

		if err := sleep(ctx, p.retryDelay); err != nil {
			res.Quality = QualityException
			res.Failure = FailureUnexpected
			res.Error = err.Error()
			return res
		}
	}

	res.Quality = QualityAttemptsExhausted
	res.Failure = FailureAttemptsExhausted
	logger.Warn().Err(st.lastErr).
		Str("last_failure", string(st.last)).
		Int(xglog.FieldAttempt, st.attempt).
		Str(xglog.FieldEvent, "probe.exhausted").
		Msg("stream probe attempts exhausted")
	return res
}

func (p *Prober) precheck(ctx context.Context, descriptor string, profile policy.Profile) bool {
	host, port, err := precheck.HostPort(descriptor)
	if err != nil {
		return false
	}
	return p.prechecker.Check(ctx, host, port, profile.PrecheckTimeout)
}

// attempt opens the stream once, discards warm-up frames and classifies up
// to FramesToCheck frames. A clean end of stream stops sampling early.
func (p *Prober) attempt(ctx context.Context, descriptor string, profile policy.Profile) (sample, error) {
	var smp sample
	st, err := p.source.Open(ctx, descriptor, p.streamOptions(profile))
	if err != nil {
		return smp, err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			p.logger.Debug().Err(cerr).Msg("failed to close stream")
		}
	}()

	for skipped := 0; skipped < profile.WarmupFrames; skipped++ {
		if _, err := st.Next(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return smp, nil
			}
			return smp, err
		}
	}

	for smp.checked < profile.FramesToCheck {
		frame, err := st.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return smp, err
		}
		smp.checked++
		if IsDark(frame, p.darkThreshold) {
			smp.dark++
		}
	}
	return smp, nil
}

func (p *Prober) streamOptions(profile policy.Profile) stream.Options {
	opts := stream.ReliableOptions(profile.Timeout, profile.FrameLimit())
	if p.bufferSize > 0 {
		opts.BufferSize = p.bufferSize
	}
	if p.maxDelay > 0 {
		opts.MaxDelay = p.maxDelay
	}
	return opts
}

// IsDark reports whether the frame's normalised mean brightness is below threshold.
func IsDark(f stream.Frame, threshold float64) bool {
	return f.MeanBrightness() < threshold
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
