// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/camwatch/internal/config"
	"github.com/ManuGH/camwatch/internal/daemon"
	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/stream"
	"github.com/ManuGH/camwatch/internal/topology"
	"github.com/ManuGH/camwatch/internal/version"
)

const frameWidth = 50

// checkSource replaces the ffmpeg source in tests.
var checkSource stream.Source

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, norm.NFC.String(part))
		}
	}
	return nil
}

// runCheckCLI runs one ad-hoc cycle over the selected locations and prints
// the summary. It does not wait for the active window.
func runCheckCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("camwatch check", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		file      string
		locations stringList
		all       bool
		workers   int
		notify    bool
		export    bool
	)
	fs.StringVar(&file, "config", "", "path to YAML configuration file")
	fs.Var(&locations, "location", "location id to check (repeatable, comma separated)")
	fs.BoolVar(&all, "all", false, "check every configured location")
	fs.IntVar(&workers, "workers", 0, "concurrent locations (default from config)")
	fs.BoolVar(&notify, "notify", false, "deliver the summary to the configured sinks")
	fs.BoolVar(&export, "export", false, "write the CSV export when enabled in config")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if workers < 0 {
		fmt.Fprintln(stderr, "Error: -workers must not be negative")
		return 2
	}

	path := resolveConfigPath(file)
	cfg, err := config.NewLoader(path).WithVersion(version.Version).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Output:  stderr,
		Service: cfg.LogService,
		Version: cfg.Version,
	})

	topo, err := cfg.Topology()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}
	if !all && len(locations) > 0 {
		sel, err := topo.Select(locations)
		var unknown *topology.UnknownLocationError
		if errors.As(err, &unknown) {
			fmt.Fprintf(stderr, "Unknown location(s): %s\n", strings.Join(unknown.IDs, ", "))
			fmt.Fprintf(stderr, "Known locations: %s\n", strings.Join(topo.IDs(), ", "))
			return 2
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
		topo = sel
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := daemon.Build(cfg, daemon.BuildOptions{
		Topology:   topo,
		Workers:    workers,
		LogOnly:    !notify,
		Source:     checkSource,
		SkipExport: !export,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer deps.Close()

	fmt.Fprintf(stdout, "Checking %d location(s), %d channel(s)...\n", topo.Len(), topo.ChannelCount())
	summary, err := deps.Runner.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Check interrupted: %v\n", err)
		return 130
	}

	online, total := summary.Totals()
	rule := strings.Repeat("=", frameWidth)
	fmt.Fprintln(stdout, rule)
	if summary.Text != "" {
		fmt.Fprintln(stdout, summary.Text)
	}
	fmt.Fprintln(stdout, rule)
	fmt.Fprintf(stdout, "Online: %d/%d\n", online, total)
	return 0
}
