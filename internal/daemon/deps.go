// SPDX-License-Identifier: MIT

package daemon

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camwatch/internal/config"
	"github.com/ManuGH/camwatch/internal/cycle"
	"github.com/ManuGH/camwatch/internal/export"
	"github.com/ManuGH/camwatch/internal/fanout"
	"github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/notify"
	"github.com/ManuGH/camwatch/internal/prober"
	"github.com/ManuGH/camwatch/internal/stream"
	"github.com/ManuGH/camwatch/internal/topology"
)

// BuildOptions narrow what Build wires. The zero value builds the daemon set:
// every configured location, configured workers and sinks.
type BuildOptions struct {
	Topology   *topology.Topology // replaces the configured topology, e.g. a selection
	Workers    int                // overrides cfg.Workers when positive
	LogOnly    bool               // deliver to the log sink only
	Source     stream.Source      // replaces the ffmpeg source, used by tests
	SkipExport bool
}

// Deps are the wired components of one cycle pipeline.
type Deps struct {
	Logger   zerolog.Logger
	Config   config.AppConfig
	Location *time.Location
	Topology *topology.Topology
	Notifier notify.Notifier
	Runner   *cycle.Runner

	closers []func()
}

// Close releases sink connections.
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// Build wires source, prober, orchestrator, sinks, exporter and runner
// from a validated configuration.
func Build(cfg config.AppConfig, opts BuildOptions) (*Deps, error) {
	logger := log.WithComponent("daemon")

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	topo := opts.Topology
	if topo == nil {
		if topo, err = cfg.Topology(); err != nil {
			return nil, fmt.Errorf("build topology: %w", err)
		}
	}
	if topo == nil {
		return nil, ErrMissingTopology
	}

	src := opts.Source
	if src == nil {
		src = stream.NewFFmpegSource(stream.FFmpegConfig{
			Bin:         cfg.FFmpeg.Bin,
			FrameWidth:  cfg.FFmpeg.FrameWidth,
			FrameHeight: cfg.FFmpeg.FrameHeight,
			KillGrace:   cfg.FFmpeg.KillGrace,
		}, log.WithComponent("ffmpeg"))
	}

	p := prober.New(src,
		prober.WithDarkThreshold(cfg.DarkThreshold),
		prober.WithRetryDelay(cfg.RetryDelay),
		prober.WithTransportTuning(cfg.FFmpeg.BufferSize, cfg.FFmpeg.MaxDelay),
	)

	workers := cfg.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	orch := fanout.New(p, workers, log.WithComponent("fanout"))

	d := &Deps{
		Logger:   logger,
		Config:   cfg,
		Location: loc,
		Topology: topo,
	}
	d.Notifier = d.buildNotifier(opts.LogOnly)

	runnerOpts := []cycle.Option{}
	if cfg.Export.Enabled && !opts.SkipExport {
		runnerOpts = append(runnerOpts, cycle.WithExporter(export.NewCSVWriter(cfg.Export.Dir, loc)))
	}
	d.Runner = cycle.NewRunner(topo, orch, d.Notifier, runnerOpts...)

	logger.Info().
		Int("locations", topo.Len()).
		Int("channels", topo.ChannelCount()).
		Int("workers", orch.Workers()).
		Str("notifier", d.Notifier.Name()).
		Bool("export", cfg.Export.Enabled && !opts.SkipExport).
		Msg("cycle pipeline ready")
	return d, nil
}

func (d *Deps) buildNotifier(logOnly bool) notify.Notifier {
	sinks := notify.Multi{notify.Log{Logger: log.WithComponent("notify")}}
	if logOnly {
		return sinks
	}

	guard := func(n notify.Notifier) notify.Notifier {
		return notify.Guard(n, d.Config.Notify.BreakerThreshold, d.Config.Notify.BreakerReset)
	}

	if tg := d.Config.Notify.Telegram; tg.Enabled {
		sinks = append(sinks, guard(notify.NewTelegram(notify.TelegramConfig{
			Token:         tg.Token,
			ChatID:        tg.ChatID,
			APIBase:       tg.APIBase,
			MaxMessageLen: tg.MaxMessageLen,
		})))
	}
	if mq := d.Config.Notify.MQTT; mq.Enabled {
		sink := notify.NewMQTT(notify.MQTTConfig{
			Broker:   mq.Broker,
			Topic:    mq.Topic,
			ClientID: mq.ClientID,
			Username: mq.Username,
			Password: mq.Password,
			QoS:      byte(mq.QoS),
		}, log.WithComponent("mqtt"))
		sinks = append(sinks, guard(sink))
		d.closers = append(d.closers, sink.Close)
	}
	return sinks
}
