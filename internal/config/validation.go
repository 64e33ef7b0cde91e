// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ManuGH/camwatch/internal/policy"
	"github.com/ManuGH/camwatch/internal/scheduler"
	"github.com/ManuGH/camwatch/internal/topology"
	"github.com/ManuGH/camwatch/internal/validate"
)

// Validate checks the whole configuration and reports every offending field
// in one ValidationError.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("log_level", cfg.LogLevel, validate.LogLevels())
	v.Custom("timezone", cfg.Timezone, func(any) error {
		_, err := time.LoadLocation(cfg.Timezone)
		return err
	})

	v.Range("schedule.window_start_hour", cfg.Schedule.WindowStartHour, 0, 23)
	v.Range("schedule.window_end_hour", cfg.Schedule.WindowEndHour, 0, 23)
	if cfg.Schedule.WindowStartHour > cfg.Schedule.WindowEndHour {
		v.AddError("schedule.window_end_hour", "window end must not precede window start", cfg.Schedule.WindowEndHour)
	}
	v.Custom("schedule.tick", cfg.Schedule.Tick, func(any) error {
		_, err := scheduler.ParseTick(cfg.Schedule.Tick)
		return err
	})
	if cfg.Schedule.MinSleep <= 0 {
		v.AddError("schedule.min_sleep", "must be positive", cfg.Schedule.MinSleep)
	}

	v.Positive("workers", cfg.Workers)
	if cfg.RetryDelay < 0 {
		v.AddError("retry_delay", "cannot be negative", cfg.RetryDelay)
	}
	v.Fraction("dark_threshold", cfg.DarkThreshold)

	validateProfiles(v, cfg)
	validateLocations(v, cfg)

	v.NotEmpty("ffmpeg.bin", cfg.FFmpeg.Bin)
	v.Positive("ffmpeg.frame_width", cfg.FFmpeg.FrameWidth)
	v.Positive("ffmpeg.frame_height", cfg.FFmpeg.FrameHeight)
	v.Positive("ffmpeg.buffer_size", cfg.FFmpeg.BufferSize)

	if tg := cfg.Notify.Telegram; tg.Enabled {
		v.NotEmpty("notify.telegram.token", tg.Token)
		v.NotEmpty("notify.telegram.chat_id", tg.ChatID)
		v.URL("notify.telegram.api_base", tg.APIBase, []string{"http", "https"})
		v.Range("notify.telegram.max_message_len", tg.MaxMessageLen, 64, 4096)
	}
	if mq := cfg.Notify.MQTT; mq.Enabled {
		v.URL("notify.mqtt.broker", mq.Broker, []string{"tcp", "ssl", "tls", "ws", "wss", "mqtt", "mqtts"})
		v.NotEmpty("notify.mqtt.topic", mq.Topic)
		v.NotEmpty("notify.mqtt.client_id", mq.ClientID)
		v.Range("notify.mqtt.qos", mq.QoS, 0, 2)
	}

	v.Positive("notify.breaker_threshold", cfg.Notify.BreakerThreshold)
	if cfg.Notify.BreakerReset <= 0 {
		v.AddError("notify.breaker_reset", "must be positive", cfg.Notify.BreakerReset)
	}

	if cfg.Export.Enabled {
		v.Directory("export.dir", cfg.Export.Dir, false)
	}

	if cfg.API.Listen != "" {
		v.ListenAddr("api.listen", cfg.API.Listen)
		v.Positive("api.rate_limit", cfg.API.RateLimit)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("telemetry.sampling_rate", cfg.Telemetry.SamplingRate)
	}

	return v.Err()
}

func validateProfiles(v *validate.Validator, cfg AppConfig) {
	profiles := cfg.ResolvedProfiles()
	for _, name := range sortedKeys(profiles) {
		if strings.TrimSpace(name) == "" {
			v.AddError("profiles", "profile name cannot be empty", name)
			continue
		}
		if err := profiles[name].Validate(); err != nil {
			v.AddError("profiles."+name, err.Error(), name)
		}
	}
}

func validateLocations(v *validate.Validator, cfg AppConfig) {
	profiles := cfg.ResolvedProfiles()
	seen := make(map[string]int, len(cfg.Locations))
	for i, loc := range cfg.Locations {
		field := fmt.Sprintf("locations[%d]", i)
		if loc.ID == "" {
			v.AddError(field+".id", "value cannot be empty", loc.ID)
		} else if first, dup := seen[loc.ID]; dup {
			v.AddError(field+".id", fmt.Sprintf("duplicate id %q (first used by locations[%d])", loc.ID, first), loc.ID)
		} else {
			seen[loc.ID] = i
		}
		v.NotEmpty(field+".name", loc.Name)
		if !strings.Contains(loc.Template, topology.ChannelPlaceholder) && !strings.Contains(loc.Template, "{}") {
			v.AddError(field+".template", "must contain "+topology.ChannelPlaceholder, loc.Template)
		}
		if len(loc.Channels) == 0 {
			v.AddError(field+".channels", "at least one channel is required", loc.Channels)
		}
		if slices.ContainsFunc(loc.Channels, func(ch int) bool { return ch <= 0 }) {
			v.AddError(field+".channels", "channel numbers must be positive", loc.Channels)
		}
		if loc.Profile != "" {
			if _, ok := profiles[loc.Profile]; !ok {
				v.AddError(field+".profile", fmt.Sprintf("unknown profile %q", loc.Profile), loc.Profile)
			}
		}
	}
}

// builtinProfiles are available by name without being declared.
func builtinProfiles() map[string]policy.Profile {
	slow := policy.Slow()
	return map[string]policy.Profile{
		policy.DefaultName: policy.Default(),
		slow.Name:          slow,
	}
}
