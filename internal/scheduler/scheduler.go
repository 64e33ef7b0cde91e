// Package scheduler drives probe cycles on hour boundaries inside an active
// window of the day.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/metrics"
	"github.com/ManuGH/camwatch/internal/report"
)

// Defaults used when Config fields are zero.
const (
	DefaultTick        = "0 * * * *"
	DefaultWindowStart = 11
	DefaultWindowEnd   = 22
	DefaultMinSleep    = 10 * time.Second
)

// State is the scheduler state.
type State int

const (
	Waiting State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "waiting"
}

// CycleRunner executes one cycle. *cycle.Runner implements it.
type CycleRunner interface {
	Run(ctx context.Context) (report.CycleSummary, error)
}

// Config configures the scheduler.
type Config struct {
	Location    *time.Location
	WindowStart int // first active hour, inclusive
	WindowEnd   int // last active hour, inclusive
	Tick        string
	MinSleep    time.Duration
}

// Scheduler wakes on every tick boundary and runs a cycle when the boundary
// falls inside the active window. Cycles never overlap; boundaries that pass
// while a cycle runs are skipped.
type Scheduler struct {
	runner   CycleRunner
	cfg      Config
	schedule cron.Schedule
	clock    Clock
	logger   zerolog.Logger

	mu    sync.Mutex
	state State
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(s *Scheduler) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Scheduler) { s.logger = l } }

var tickParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseTick parses a five-field cron expression describing tick boundaries.
func ParseTick(tick string) (cron.Schedule, error) {
	schedule, err := tickParser.Parse(tick)
	if err != nil {
		return nil, fmt.Errorf("invalid tick %q: %w", tick, err)
	}
	return schedule, nil
}

// New validates cfg and creates a scheduler.
func New(runner CycleRunner, cfg Config, opts ...Option) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Tick == "" {
		cfg.Tick = DefaultTick
	}
	if cfg.MinSleep <= 0 {
		cfg.MinSleep = DefaultMinSleep
	}
	if cfg.WindowStart < 0 || cfg.WindowEnd > 23 || cfg.WindowStart > cfg.WindowEnd {
		return nil, fmt.Errorf("invalid active window [%d,%d]", cfg.WindowStart, cfg.WindowEnd)
	}
	schedule, err := ParseTick(cfg.Tick)
	if err != nil {
		return nil, err
	}
	s := &Scheduler{
		runner:   runner,
		cfg:      cfg,
		schedule: schedule,
		clock:    RealClock{},
		logger:   log.WithComponent("scheduler"),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	metrics.SetSchedulerRunning(st == Running)
}

// InWindow reports whether t falls inside the active hours.
func (s *Scheduler) InWindow(t time.Time) bool {
	h := t.In(s.cfg.Location).Hour()
	return h >= s.cfg.WindowStart && h <= s.cfg.WindowEnd
}

// AtBoundary reports whether t lies within the minute of a tick.
func (s *Scheduler) AtBoundary(t time.Time) bool {
	t = t.In(s.cfg.Location)
	minute := t.Truncate(time.Minute)
	return s.schedule.Next(minute.Add(-time.Second)).Equal(minute)
}

// ShouldRun reports whether a cycle is due at t.
func (s *Scheduler) ShouldRun(t time.Time) bool {
	return s.InWindow(t) && s.AtBoundary(t)
}

// SleepFrom returns how long to wait from t until the next boundary, never
// less than the configured minimum.
func (s *Scheduler) SleepFrom(t time.Time) time.Duration {
	t = t.In(s.cfg.Location)
	d := s.schedule.Next(t).Sub(t)
	if d < s.cfg.MinSleep {
		d = s.cfg.MinSleep
	}
	return d
}

// NextRun returns the next boundary inside the window after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	next := s.schedule.Next(t.In(s.cfg.Location))
	for i := 0; i < 24*60 && !s.InWindow(next); i++ {
		next = s.schedule.Next(next)
	}
	return next
}

// skipped counts boundaries strictly after started and up to finished.
func (s *Scheduler) skipped(started, finished time.Time) int {
	n := 0
	for next := s.schedule.Next(started.In(s.cfg.Location)); !next.After(finished); next = s.schedule.Next(next) {
		n++
	}
	return n
}

// Run loops until ctx is cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Str("timezone", s.cfg.Location.String()).
		Int("window_start", s.cfg.WindowStart).
		Int("window_end", s.cfg.WindowEnd).
		Str("tick", s.cfg.Tick).
		Msg("scheduler started")

	for {
		now := s.clock.Now()
		if s.ShouldRun(now) {
			now = s.runCycle(ctx, now)
		}
		if ctx.Err() != nil {
			s.logger.Info().Msg("scheduler stopping")
			return nil
		}

		sleep := s.SleepFrom(now)
		s.logger.Debug().
			Dur(log.FieldSleep, sleep).
			Time(log.FieldNextRun, s.NextRun(now)).
			Msg("waiting for next boundary")

		timer := s.clock.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("scheduler stopping")
			return nil
		case <-timer.C():
		}
	}
}

// runCycle runs one cycle and returns its completion time.
func (s *Scheduler) runCycle(ctx context.Context, started time.Time) time.Time {
	s.setState(Running)
	defer s.setState(Waiting)

	if _, err := s.runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error().Err(err).Msg("cycle failed")
	}

	finished := s.clock.Now()
	if n := s.skipped(started, finished); n > 0 {
		metrics.RecordSkippedBoundaries(n)
		s.logger.Warn().
			Int("skipped", n).
			Dur("cycle_duration", finished.Sub(started)).
			Msg("cycle overran boundaries, skipping them")
	}
	return finished
}
