// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command camwatch checks camera feeds every hour inside the active window
// and reports which channels are down.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/camwatch/internal/config"
	"github.com/ManuGH/camwatch/internal/daemon"
	"github.com/ManuGH/camwatch/internal/health"
	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "check":
			os.Exit(runCheckCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "config":
			os.Exit(runConfigCLI(os.Args[2:], os.Stdout, os.Stderr))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Configure logger with safe defaults until config is loaded
	xglog.Configure(xglog.Config{
		Level:   "info",
		Service: "camwatch",
		Version: version.Version,
	})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := resolveConfigPath(*configPath)
	cfg, err := config.NewLoader(path).WithVersion(version.Version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger = xglog.WithComponent("daemon")
	if path != "" {
		logger.Info().Str("event", "config.loaded").Str("source", "file").Str("path", path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	exportDir := ""
	if cfg.Export.Enabled {
		exportDir = cfg.Export.Dir
	}
	if err := health.PerformStartupChecks(ctx, health.StartupConfig{
		FFmpegBin:  cfg.FFmpeg.Bin,
		ExportDir:  exportDir,
		ListenAddr: cfg.API.Listen,
	}); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.check_failed").Msg("pre-flight checks failed")
	}

	app, err := daemon.NewApp(ctx, cfg, daemon.BuildOptions{})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.init_failed").Msg("failed to initialise daemon")
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str("event", "daemon.exit").Msg("daemon exited with error")
		os.Exit(1)
	}
}

// resolveConfigPath prefers the explicit flag, then CAMWATCH_CONFIG, then
// ./camwatch.yaml when it exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG")); p != "" {
		return p
	}
	if _, err := os.Stat("camwatch.yaml"); err == nil {
		return "camwatch.yaml"
	}
	return ""
}
