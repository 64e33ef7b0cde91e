// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the camwatch configuration with the precedence
// ENV > File > Defaults and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/camwatch/internal/notify"
	"github.com/ManuGH/camwatch/internal/scheduler"
	"github.com/ManuGH/camwatch/internal/stream"
)

const (
	DefaultTimezone      = "Europe/Moscow"
	DefaultWorkers       = 5
	DefaultRetryDelay    = time.Second
	DefaultDarkThreshold = 0.10
	DefaultMQTTTopic     = "camwatch/summary"
	DefaultExportDir     = "exports"
	DefaultAPIListen     = ":9480"
	DefaultAPIRateLimit  = 120

	DefaultBreakerThreshold = 3
	DefaultBreakerReset     = 3 * time.Hour
)

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	ff := stream.DefaultFFmpegConfig()
	return AppConfig{
		LogLevel:   "info",
		LogService: "camwatch",
		Timezone:   DefaultTimezone,
		Schedule: ScheduleConfig{
			WindowStartHour: scheduler.DefaultWindowStart,
			WindowEndHour:   scheduler.DefaultWindowEnd,
			Tick:            scheduler.DefaultTick,
			MinSleep:        scheduler.DefaultMinSleep,
		},
		Workers:       DefaultWorkers,
		RetryDelay:    DefaultRetryDelay,
		DarkThreshold: DefaultDarkThreshold,
		FFmpeg: FFmpegConfig{
			Bin:         ff.Bin,
			FrameWidth:  ff.FrameWidth,
			FrameHeight: ff.FrameHeight,
			BufferSize:  stream.DefaultBufferSize,
			MaxDelay:    stream.DefaultMaxDelay,
			KillGrace:   ff.KillGrace,
		},
		Notify: NotifyConfig{
			Telegram: TelegramConfig{
				APIBase:       notify.DefaultTelegramAPI,
				MaxMessageLen: notify.MaxTelegramMessage,
			},
			MQTT: MQTTConfig{
				Topic:    DefaultMQTTTopic,
				ClientID: "camwatch",
				QoS:      1,
			},
			BreakerThreshold: DefaultBreakerThreshold,
			BreakerReset:     DefaultBreakerReset,
		},
		Export: ExportConfig{Dir: DefaultExportDir},
		API: APIConfig{
			Listen:    DefaultAPIListen,
			RateLimit: DefaultAPIRateLimit,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // env keys read during the last Load
}

// NewLoader creates a loader. An empty path loads defaults and environment only.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithVersion sets the build version copied into the loaded config.
func (l *Loader) WithVersion(v string) *Loader {
	l.version = v
	return l
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order: Parse File (strict) -> Apply Env -> Normalize -> Validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)
	normalize(&cfg)
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes a YAML file over cfg with strict parsing.
// Unknown fields are fatal to prevent silent misconfiguration.
func (l *Loader) loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return fmt.Errorf("%w: %w", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return ErrMultipleDocuments
	}
	return nil
}

// normalize brings names and ids to NFC so lookups and the report order do
// not depend on how the file was typed.
func normalize(cfg *AppConfig) {
	for i := range cfg.Locations {
		loc := &cfg.Locations[i]
		loc.ID = norm.NFC.String(strings.TrimSpace(loc.ID))
		loc.Name = norm.NFC.String(strings.TrimSpace(loc.Name))
		loc.Profile = strings.TrimSpace(loc.Profile)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Telemetry.Exporter = strings.ToLower(strings.TrimSpace(cfg.Telemetry.Exporter))
}
