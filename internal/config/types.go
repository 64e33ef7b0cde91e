// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the complete runtime configuration. The YAML file is decoded
// on top of Defaults(), then environment variables are applied.
type AppConfig struct {
	LogLevel   string `yaml:"log_level"`
	LogService string `yaml:"log_service"`
	Version    string `yaml:"-"`

	Timezone string         `yaml:"timezone"`
	Schedule ScheduleConfig `yaml:"schedule"`

	Workers       int           `yaml:"workers"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	DarkThreshold float64       `yaml:"dark_threshold"`

	Profiles  map[string]ProfileConfig `yaml:"profiles"`
	Locations []LocationConfig         `yaml:"locations"`

	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Notify    NotifyConfig    `yaml:"notify"`
	Export    ExportConfig    `yaml:"export"`
	API       APIConfig       `yaml:"api"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ScheduleConfig bounds the hours in which cycles run.
type ScheduleConfig struct {
	WindowStartHour int           `yaml:"window_start_hour"`
	WindowEndHour   int           `yaml:"window_end_hour"`
	Tick            string        `yaml:"tick"`
	MinSleep        time.Duration `yaml:"min_sleep"`
}

// ProfileConfig is a named override profile as written in the file.
// Zero fields inherit from the built-in profile of the same name, or from
// the default profile when no built-in exists.
type ProfileConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	FramesToCheck   int           `yaml:"frames_to_check"`
	WarmupFrames    *int          `yaml:"warmup_frames"`
	Precheck        *bool         `yaml:"precheck"`
	PrecheckTimeout time.Duration `yaml:"precheck_timeout"`
}

// LocationConfig is one monitored site.
type LocationConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Template string `yaml:"template"`
	Channels []int  `yaml:"channels"`
	Profile  string `yaml:"profile,omitempty"`
}

// FFmpegConfig configures the decoder process.
type FFmpegConfig struct {
	Bin         string        `yaml:"bin"`
	FrameWidth  int           `yaml:"frame_width"`
	FrameHeight int           `yaml:"frame_height"`
	BufferSize  int           `yaml:"buffer_size"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	KillGrace   time.Duration `yaml:"kill_grace"`
}

// NotifyConfig holds the notification sinks. The log sink is always active.
type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
	MQTT     MQTTConfig     `yaml:"mqtt"`

	// A remote sink failing BreakerThreshold times in a row is skipped
	// until BreakerReset has passed.
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerReset     time.Duration `yaml:"breaker_reset"`
}

type TelegramConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Token         string `yaml:"token"`
	ChatID        string `yaml:"chat_id"`
	APIBase       string `yaml:"api_base"`
	MaxMessageLen int    `yaml:"max_message_len"`
}

type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	QoS      int    `yaml:"qos"`
}

// ExportConfig controls the per-cycle CSV export.
type ExportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// APIConfig configures the operations HTTP server. An empty Listen disables it.
type APIConfig struct {
	Listen    string `yaml:"listen"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute per client IP
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc or http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}
