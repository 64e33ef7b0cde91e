// Package cycle runs one full health check: fan-out, aggregation, export
// and delivery.
package cycle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/camwatch/internal/fanout"
	xglog "github.com/ManuGH/camwatch/internal/log"
	"github.com/ManuGH/camwatch/internal/metrics"
	"github.com/ManuGH/camwatch/internal/notify"
	"github.com/ManuGH/camwatch/internal/report"
	"github.com/ManuGH/camwatch/internal/telemetry"
	"github.com/ManuGH/camwatch/internal/topology"
)

// Exporter persists the raw results of a cycle.
type Exporter interface {
	Write(ctx context.Context, results []fanout.Result, at time.Time) (string, error)
}

// Prober runs a cycle over the topology. *fanout.Orchestrator implements it.
type Prober interface {
	Run(ctx context.Context, topo *topology.Topology) fanout.Outcome
}

// Runner executes cycles. It never runs two at once; Run serialises callers.
type Runner struct {
	topo     *topology.Topology
	prober   Prober
	notifier notify.Notifier
	exporter Exporter
	logger   zerolog.Logger
	now      func() time.Time

	runMu sync.Mutex

	mu       sync.RWMutex
	last     report.CycleSummary
	lastAt   time.Time
	haveLast bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithExporter enables per-cycle export.
func WithExporter(e Exporter) Option { return func(r *Runner) { r.exporter = e } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(r *Runner) { r.logger = l } }

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

// NewRunner creates a runner. A nil notifier delivers to the log only.
func NewRunner(topo *topology.Topology, p Prober, n notify.Notifier, opts ...Option) *Runner {
	r := &Runner{
		topo:   topo,
		prober: p,
		logger: xglog.WithComponent("cycle"),
		now:    time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if n == nil {
		n = notify.Log{Logger: r.logger}
	}
	r.notifier = n
	return r
}

// Run executes one cycle. Export and delivery failures are logged and
// counted but never fail the cycle; the returned error is reserved for
// cancellation of the caller's context.
func (r *Runner) Run(ctx context.Context) (report.CycleSummary, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	cycleID := uuid.NewString()
	ctx = xglog.ContextWithCycleID(ctx, cycleID)
	ctx, span := telemetry.Tracer("camwatch/cycle").Start(ctx, "cycle.run")
	span.SetAttributes(attribute.String(telemetry.CycleIDKey, cycleID))
	defer span.End()

	logger := xglog.WithContext(ctx, r.logger)
	logger.Info().
		Int("locations", r.topo.Len()).
		Int("channels", r.topo.ChannelCount()).
		Str(xglog.FieldEvent, "cycle.start").
		Msg("cycle started")

	out := r.prober.Run(ctx, r.topo)

	summary := report.Aggregate(r.topo.Locations(), out.Results)
	summary.CycleID = cycleID
	finished := r.now()

	r.record(out, summary, finished)

	if r.exporter != nil {
		if path, err := r.exporter.Write(ctx, out.Results, finished); err != nil {
			metrics.RecordExportFailure()
			logger.Error().Err(err).Str(xglog.FieldEvent, "cycle.export_failed").Msg("failed to export cycle results")
		} else {
			logger.Debug().Str("path", path).Msg("cycle results exported")
		}
	}

	if summary.Text != "" {
		// failures are counted per sink by notify.Multi
		if err := r.notifier.Send(ctx, summary.Text, summary.Mute()); err != nil {
			logger.Error().Err(err).Str(xglog.FieldEvent, "cycle.notify_failed").Msg("failed to deliver summary")
		}
	}

	online, total := summary.Totals()
	span.SetAttributes(telemetry.CycleAttributes(online, total, len(out.Errors))...)
	if len(out.Errors) > 0 {
		span.SetStatus(codes.Error, "location tasks failed")
	}

	r.mu.Lock()
	r.last, r.lastAt, r.haveLast = summary, finished, true
	r.mu.Unlock()

	logger.Info().
		Int("online", online).
		Int("total", total).
		Int("location_errors", len(out.Errors)).
		Bool("mute", summary.Mute()).
		Int64(xglog.FieldDurationMS, out.Finished.Sub(out.Started).Milliseconds()).
		Str(xglog.FieldEvent, "cycle.done").
		Msg("cycle finished")

	return summary, ctx.Err()
}

func (r *Runner) record(out fanout.Outcome, summary report.CycleSummary, finished time.Time) {
	for _, res := range out.Results {
		metrics.RecordProbe(string(res.Quality), res.Attempts, res.Duration)
	}
	for _, le := range out.Errors {
		metrics.RecordLocationError(le.LocationID)
		r.logger.Error().Err(le.Err).
			Str(xglog.FieldCycleID, summary.CycleID).
			Str(xglog.FieldLocationID, le.LocationID).
			Str(xglog.FieldEvent, "cycle.location_failed").
			Msg("location contributed no results")
	}
	for _, rep := range summary.Reports {
		metrics.RecordLocation(rep.LocationID, rep.Online)
	}
	online, total := summary.Totals()
	metrics.RecordCycle(out.Finished.Sub(out.Started), online, total, len(out.Errors), finished)
}

// Last returns the most recent summary and when its cycle finished.
func (r *Runner) Last() (report.CycleSummary, time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.lastAt, r.haveLast
}

// Topology returns the topology the runner probes.
func (r *Runner) Topology() *topology.Topology { return r.topo }
