// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/ManuGH/camwatch/internal/log"
)

// StartupConfig lists what the daemon needs from its environment.
type StartupConfig struct {
	FFmpegBin  string
	ExportDir  string // empty when export is disabled
	ListenAddr string // empty when the ops server is disabled
}

// PerformStartupChecks validates the environment before the scheduler starts.
func PerformStartupChecks(ctx context.Context, cfg StartupConfig) error {
	logger := log.WithComponentFromContext(ctx, "startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	bin := cfg.FFmpegBin
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("ffmpeg binary not found (%s): %w", bin, err)
	}
	logger.Info().Str("ffmpeg", bin).Msg("decoder available")

	if cfg.ExportDir != "" {
		if err := checkExportDir(logger, cfg.ExportDir); err != nil {
			return fmt.Errorf("export directory check failed: %w", err)
		}
	}

	if cfg.ListenAddr != "" {
		_, port, err := net.SplitHostPort(cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("invalid API listen address %q: %w", cfg.ListenAddr, err)
		}
		portNum, err := strconv.Atoi(port)
		if err != nil || portNum < 0 || portNum > 65535 {
			return fmt.Errorf("invalid API listen port %q in %q", port, cfg.ListenAddr)
		}
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkExportDir(logger zerolog.Logger, path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("export directory is writable")
	return nil
}
