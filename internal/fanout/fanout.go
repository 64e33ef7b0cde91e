// Package fanout runs one probe cycle across the topology: locations in
// parallel on a bounded pool, channels within a location one after another.
package fanout

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/policy"
	"github.com/ManuGH/camwatch/internal/prober"
	"github.com/ManuGH/camwatch/internal/telemetry"
	"github.com/ManuGH/camwatch/internal/topology"
)

// DefaultWorkers is the number of locations probed concurrently.
const DefaultWorkers = 5

// ChannelProber probes a single channel. *prober.Prober implements it.
type ChannelProber interface {
	Probe(ctx context.Context, channel int, descriptor string, profile policy.Profile) prober.Result
}

// Result is a channel probe result tagged with its location.
type Result struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location"`
	prober.Result
}

// LocationError records a location task that failed as a whole.
type LocationError struct {
	LocationID   string
	LocationName string
	Err          error
}

func (e LocationError) Error() string {
	return fmt.Sprintf("location %s: %v", e.LocationID, e.Err)
}

// Outcome is everything one cycle produced. Results are flattened in
// topology order regardless of which worker finished first.
type Outcome struct {
	Results  []Result
	Errors   []LocationError
	Started  time.Time
	Finished time.Time
}

// Orchestrator dispatches location tasks to a fixed-size worker pool.
type Orchestrator struct {
	prober  ChannelProber
	workers int
	logger  zerolog.Logger
}

// New creates an orchestrator. workers < 1 falls back to DefaultWorkers.
func New(p ChannelProber, workers int, logger zerolog.Logger) *Orchestrator {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Orchestrator{prober: p, workers: workers, logger: logger}
}

// Workers returns the pool size.
func (o *Orchestrator) Workers() int { return o.workers }

type slot struct {
	results []Result
	err     error
}

// Run probes every channel of every location and returns after all location
// tasks have finished. A failing location contributes no results and never
// affects its siblings.
func (o *Orchestrator) Run(ctx context.Context, topo *topology.Topology) Outcome {
	out := Outcome{Started: time.Now()}
	locations := topo.Locations()
	slots := make([]slot, len(locations))

	// Tasks never return an error, so a failure cannot cancel siblings.
	var g errgroup.Group
	g.SetLimit(o.workers)
	for i, loc := range locations {
		g.Go(func() error {
			slots[i] = o.runLocation(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	for i, loc := range locations {
		s := slots[i]
		if s.err != nil {
			out.Errors = append(out.Errors, LocationError{LocationID: loc.ID, LocationName: loc.Name, Err: s.err})
			continue
		}
		out.Results = append(out.Results, s.results...)
	}
	out.Finished = time.Now()
	return out
}

func (o *Orchestrator) runLocation(ctx context.Context, loc topology.Location) (s slot) {
	logger := xglog.WithContext(ctx, o.logger).With().
		Str(xglog.FieldLocationID, loc.ID).
		Str(xglog.FieldLocation, loc.Name).
		Logger()

	ctx, span := telemetry.Tracer("camwatch/fanout").Start(ctx, "fanout.location")
	span.SetAttributes(telemetry.LocationAttributes(loc.ID, len(loc.Channels))...)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s = slot{err: fmt.Errorf("location task panicked: %v", r)}
			logger.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Str(xglog.FieldEvent, "fanout.location_panic").
				Msg("location task failed")
		}
		if s.err != nil {
			span.RecordError(s.err)
			span.SetStatus(codes.Error, s.err.Error())
		}
		span.End()
	}()

	s.results = make([]Result, 0, len(loc.Channels))
	online := 0
	for _, ch := range loc.Channels {
		res := o.prober.Probe(ctx, ch, loc.Descriptor(ch), loc.Profile)
		if res.Accessible {
			online++
		}
		s.results = append(s.results, Result{LocationID: loc.ID, LocationName: loc.Name, Result: res})
	}

	logger.Info().
		Int("online", online).
		Int("total", len(loc.Channels)).
		Int64(xglog.FieldDurationMS, time.Since(start).Milliseconds()).
		Str(xglog.FieldEvent, "fanout.location_done").
		Msg("location checked")
	return s
}
