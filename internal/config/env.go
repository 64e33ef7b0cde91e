// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camwatch/internal/log"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CAMWATCH_"

// ParseString reads a string from environment variable or returns default value.
// It logs the source (environment or default) for observability.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		logDefault(logger, key)
		return defaultValue
	}
	if isSensitiveKey(key) {
		logger.Debug().
			Str("key", key).
			Str("source", "environment").
			Bool("sensitive", true).
			Msg("using environment variable")
		return value
	}
	logger.Debug().
		Str("key", key).
		Str("value", value).
		Str("source", "environment").
		Msg("using environment variable")
	return value
}

// ParseInt reads an integer from environment variable or returns default value.
// It validates the input and falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key)
		return defaultValue
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Int("default", defaultValue).
			Msg("invalid integer in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Int("value", i).Str("source", "environment").Msg("using environment variable")
	return i
}

// ParseDuration reads a duration in Go format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key)
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Dur("default", defaultValue).
			Msg("invalid duration in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Dur("value", d).Str("source", "environment").Msg("using environment variable")
	return d
}

// ParseBool reads a boolean from environment variable or returns default value.
// It accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key)
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		logger.Debug().Str("key", key).Bool("value", true).Str("source", "environment").Msg("using environment variable")
		return true
	case "false", "0", "no":
		logger.Debug().Str("key", key).Bool("value", false).Str("source", "environment").Msg("using environment variable")
		return false
	default:
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Bool("default", defaultValue).
			Msg("invalid boolean in environment variable, using default")
		return defaultValue
	}
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key)
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Float64("default", defaultValue).
			Msg("invalid float in environment variable, using default")
		return defaultValue
	}
	logger.Debug().Str("key", key).Float64("value", f).Str("source", "environment").Msg("using environment variable")
	return f
}

func logDefault(logger zerolog.Logger, key string) {
	logger.Debug().Str("key", key).Str("source", "default").Msg("environment variable not set")
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

// mergeEnvConfig applies CAMWATCH_* overrides. LOG_LEVEL is honoured as
// well since the logger reads it before any config exists.
func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.LogLevel = l.envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogLevel = l.envString(EnvPrefix+"LOG_LEVEL", cfg.LogLevel)
	cfg.LogService = l.envString(EnvPrefix+"LOG_SERVICE", cfg.LogService)

	cfg.Timezone = l.envString(EnvPrefix+"TIMEZONE", cfg.Timezone)
	cfg.Schedule.WindowStartHour = l.envInt(EnvPrefix+"WINDOW_START_HOUR", cfg.Schedule.WindowStartHour)
	cfg.Schedule.WindowEndHour = l.envInt(EnvPrefix+"WINDOW_END_HOUR", cfg.Schedule.WindowEndHour)
	cfg.Schedule.Tick = l.envString(EnvPrefix+"SCHEDULE_TICK", cfg.Schedule.Tick)
	cfg.Schedule.MinSleep = l.envDuration(EnvPrefix+"MIN_SLEEP", cfg.Schedule.MinSleep)

	cfg.Workers = l.envInt(EnvPrefix+"WORKERS", cfg.Workers)
	cfg.RetryDelay = l.envDuration(EnvPrefix+"RETRY_DELAY", cfg.RetryDelay)
	cfg.DarkThreshold = l.envFloat(EnvPrefix+"DARK_THRESHOLD", cfg.DarkThreshold)

	cfg.FFmpeg.Bin = l.envString(EnvPrefix+"FFMPEG_BIN", cfg.FFmpeg.Bin)
	cfg.FFmpeg.KillGrace = l.envDuration(EnvPrefix+"FFMPEG_KILL_GRACE", cfg.FFmpeg.KillGrace)

	tg := &cfg.Notify.Telegram
	tg.Enabled = l.envBool(EnvPrefix+"TELEGRAM_ENABLED", tg.Enabled)
	tg.Token = l.envString(EnvPrefix+"TELEGRAM_TOKEN", tg.Token)
	tg.ChatID = l.envString(EnvPrefix+"TELEGRAM_CHAT_ID", tg.ChatID)
	tg.APIBase = l.envString(EnvPrefix+"TELEGRAM_API_BASE", tg.APIBase)

	mq := &cfg.Notify.MQTT
	mq.Enabled = l.envBool(EnvPrefix+"MQTT_ENABLED", mq.Enabled)
	mq.Broker = l.envString(EnvPrefix+"MQTT_BROKER", mq.Broker)
	mq.Topic = l.envString(EnvPrefix+"MQTT_TOPIC", mq.Topic)
	mq.Username = l.envString(EnvPrefix+"MQTT_USERNAME", mq.Username)
	mq.Password = l.envString(EnvPrefix+"MQTT_PASSWORD", mq.Password)

	cfg.Export.Enabled = l.envBool(EnvPrefix+"EXPORT_ENABLED", cfg.Export.Enabled)
	cfg.Export.Dir = l.envString(EnvPrefix+"EXPORT_DIR", cfg.Export.Dir)

	cfg.API.Listen = l.envString(EnvPrefix+"API_LISTEN", cfg.API.Listen)
	cfg.API.RateLimit = l.envInt(EnvPrefix+"API_RATE_LIMIT", cfg.API.RateLimit)

	cfg.Telemetry.Enabled = l.envBool(EnvPrefix+"TELEMETRY_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = l.envString(EnvPrefix+"TELEMETRY_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString(EnvPrefix+"TELEMETRY_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat(EnvPrefix+"TELEMETRY_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}
