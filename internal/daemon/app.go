// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon owns the long-running camwatch process: the cycle scheduler,
// the operations server and tracing.
package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/camwatch/internal/api"
	"github.com/ManuGH/camwatch/internal/config"
	"github.com/ManuGH/camwatch/internal/health"
	"github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/scheduler"
	"github.com/ManuGH/camwatch/internal/telemetry"
)

// MaxCycleAge is how old the last cycle may get inside the active window
// before readiness fails.
const MaxCycleAge = 2 * time.Hour

// App owns the long-lived runtime lifecycle.
type App struct {
	logger    zerolog.Logger
	deps      *Deps
	scheduler *scheduler.Scheduler
	health    *health.Manager
	apiServer *api.Server
	telemetry *telemetry.Provider
}

// NewApp wires every subsystem from a validated configuration.
func NewApp(ctx context.Context, cfg config.AppConfig, opts BuildOptions, schedOpts ...scheduler.Option) (*App, error) {
	logger := log.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, err
	}

	deps, err := Build(cfg, opts)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	sched, err := scheduler.New(deps.Runner, scheduler.Config{
		Location:    deps.Location,
		WindowStart: cfg.Schedule.WindowStartHour,
		WindowEnd:   cfg.Schedule.WindowEndHour,
		Tick:        cfg.Schedule.Tick,
		MinSleep:    cfg.Schedule.MinSleep,
	}, schedOpts...)
	if err != nil {
		deps.Close()
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewBinaryChecker("ffmpeg", cfg.FFmpeg.Bin))
	hm.RegisterChecker(health.NewCycleFreshnessChecker(func() (time.Time, bool) {
		_, at, ok := deps.Runner.Last()
		return at, ok
	}, sched.InWindow, MaxCycleAge))

	a := &App{
		logger:    logger,
		deps:      deps,
		scheduler: sched,
		health:    hm,
		telemetry: tp,
	}
	if cfg.API.Listen != "" {
		a.apiServer = api.New(api.Config{
			Listen:         cfg.API.Listen,
			RateLimit:      cfg.API.RateLimit,
			TracingService: cfg.LogService,
		}, hm, deps.Runner)
	}
	return a, nil
}

// Health exposes the health manager.
func (a *App) Health() *health.Manager { return a.health }

// Deps exposes the wired cycle pipeline.
func (a *App) Deps() *Deps { return a.deps }

// Run starts all owned background subsystems and blocks until ctx is cancelled
// or a fatal error occurs. Resources are released before it returns.
func (a *App) Run(ctx context.Context) error {
	if a.scheduler == nil {
		return ErrMissingScheduler
	}
	defer a.shutdown()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.scheduler.Run(ctx)
	})

	if a.apiServer != nil {
		g.Go(func() error {
			return a.apiServer.ListenAndServe(ctx)
		})
	}

	a.logger.Info().
		Str("event", "daemon.started").
		Bool("ops_api", a.apiServer != nil).
		Time("next_cycle", a.scheduler.NextRun(time.Now())).
		Msg("camwatch running")

	err := g.Wait()
	if err != nil {
		a.logger.Error().Err(err).Str("event", "daemon.failed").Msg("subsystem failed")
	}
	return err
}

func (a *App) shutdown() {
	a.deps.Close()
	if err := a.telemetry.Shutdown(context.Background()); err != nil {
		a.logger.Warn().Err(err).Str("event", "telemetry.shutdown_failed").Msg("failed to flush traces")
	}
	a.logger.Info().Str("event", "daemon.stopped").Msg("camwatch stopped")
}
