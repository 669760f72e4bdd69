// Package pipe runs the analysis: resolve -> load -> build -> track -> report.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/tablelog/internal/model"
	"github.com/logflow/tablelog/pkg/cache"
	lferrors "github.com/logflow/tablelog/pkg/errors"
	"github.com/logflow/tablelog/pkg/export"
	"github.com/logflow/tablelog/pkg/metrics"
	"github.com/logflow/tablelog/pkg/parser"
	"github.com/logflow/tablelog/pkg/report"
	"github.com/logflow/tablelog/pkg/source"
	"github.com/logflow/tablelog/pkg/stats"
	"github.com/logflow/tablelog/pkg/telemetry"
	"github.com/logflow/tablelog/pkg/tracker"
)

// Progress receives per-row tracking progress.
type Progress interface {
	Add(n int) error
	Finish() error
}

// ProgressFunc creates a Progress for total rows.
type ProgressFunc func(total int64, description string) Progress

// Exports names the optional output files. Empty paths are skipped.
type Exports struct {
	XLSX     string
	Timeline string
	Events   string

	// Groups is a per-group rollup of the event table, built with DuckDB.
	Groups string

	Parquet export.Config
}

func (e Exports) any() bool {
	return e.XLSX != "" || e.Timeline != "" || e.Events != "" || e.Groups != ""
}

// Config holds pipeline configuration.
type Config struct {
	// Location is a local path or an s3:// URL.
	Location string

	// Format overrides detection from the file name when not FormatUnknown.
	Format parser.Format

	Parser          parser.Config
	Columns         parser.Columns
	TimestampLayout string

	Exports Exports

	// CachePrefix prefixes report cache keys.
	CachePrefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Parser:      parser.DefaultConfig(),
		Columns:     parser.DefaultColumns(),
		Exports:     Exports{Parquet: export.DefaultConfig()},
		CachePrefix: "tablelog:report:",
	}
}

// Pipeline orchestrates one analysis run.
type Pipeline struct {
	cfg      Config
	logger   *slog.Logger
	metrics  metrics.Exporter
	cache    cache.Cache
	resolver *source.Resolver
	progress ProgressFunc
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics sets the metrics exporter.
func WithMetrics(m metrics.Exporter) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithCache enables the report cache.
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) { p.cache = c }
}

// WithResolver sets the location resolver.
func WithResolver(r *source.Resolver) Option {
	return func(p *Pipeline) { p.resolver = r }
}

// WithProgress reports tracking progress.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New creates a pipeline.
func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:     cfg,
		logger:  slog.Default(),
		metrics: metrics.Nop{},
		cache:   cache.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = source.NewResolver(source.DefaultS3Config(), p.logger)
	}
	return p
}

// Result contains the outcome of a run.
type Result struct {
	Report *report.Report
	Totals tracker.Totals

	// Samples, Snapshots and Events are nil, and Totals is zero, when the
	// report came from the cache.
	Samples   *stats.Samples
	Snapshots []model.Snapshot
	Events    []model.Event

	Cached    bool
	InputSize int64
	Duration  time.Duration
	Exports   []string
}

// Run executes the pipeline once.
func (p *Pipeline) Run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	runID := uuid.NewString()
	tags := map[string]string{metrics.TagSource: p.cfg.Location}

	logger := p.logger.With("run_id", runID)
	defer func() {
		if err != nil {
			p.metrics.Counter(metrics.MetricRunErrors, 1, tags)
		}
		p.metrics.Flush()
	}()

	ctx, span := telemetry.StartSpan(ctx, "tablelog.run",
		attribute.String("tablelog.run_id", runID),
		attribute.String("tablelog.location", p.cfg.Location))
	defer func() { telemetry.EndSpan(span, err) }()

	resolved, err := p.resolve(ctx)
	if err != nil {
		return nil, err
	}
	defer resolved.Close()

	meta := report.Meta{
		RunID:  runID,
		Source: resolved.Location.String(),
	}

	key := p.cacheKey(logger, resolved.Path)
	if key != "" {
		if rec := p.lookup(ctx, logger, key); rec != nil {
			r := rec.Report()
			meta.Snapshots = r.Meta.Snapshots
			meta.GeneratedAt = time.Now().UTC()
			r.Meta = meta
			p.publish(r, tags)
			return &Result{
				Report:    r,
				Cached:    true,
				InputSize: resolved.Size,
				Duration:  time.Since(start),
			}, nil
		}
	}

	snaps, err := p.load(ctx, resolved.Path, tags)
	if err != nil {
		return nil, err
	}

	res = &Result{Snapshots: snaps, InputSize: resolved.Size}
	p.track(ctx, snaps, res, tags)

	_, reportSpan := telemetry.StartSpan(ctx, "tablelog.report")
	res.Report = report.Build(res.Totals, res.Samples)
	meta.Snapshots = len(snaps)
	meta.GeneratedAt = time.Now().UTC()
	res.Report.Meta = meta
	telemetry.EndSpan(reportSpan, nil)

	if key != "" {
		if err := p.cache.Put(ctx, key, cache.FromReport(res.Report)); err != nil {
			logger.Warn("cache store failed", "cache", p.cache.Name(), "error", err)
		}
	}

	if err := p.export(ctx, res); err != nil {
		return nil, err
	}

	p.publish(res.Report, tags)
	res.Duration = time.Since(start)
	p.metrics.Timer(metrics.MetricRunDuration, res.Duration, tags)

	logger.Info("analysis complete",
		"source", meta.Source,
		"snapshots", len(snaps),
		"events", len(res.Events),
		"duration", res.Duration)
	return res, nil
}

func (p *Pipeline) resolve(ctx context.Context) (_ *source.Resolved, err error) {
	ctx, span := telemetry.StartSpan(ctx, "tablelog.resolve")
	defer func() { telemetry.EndSpan(span, err) }()

	return p.resolver.Resolve(ctx, p.cfg.Location)
}

// load reads the table and converts it to snapshots.
func (p *Pipeline) load(ctx context.Context, path string, tags map[string]string) (_ []model.Snapshot, err error) {
	ctx, span := telemetry.StartSpan(ctx, "tablelog.load")
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()

	format := p.cfg.Format
	if format == parser.FormatUnknown {
		format = parser.DetectFormat(path)
	}
	loader, err := parser.NewLoader(format, p.cfg.Parser)
	if err != nil {
		return nil, lferrors.Wrap(err, lferrors.CodeInvalidFormat, "cannot read input").
			WithContext("path", path)
	}
	span.SetAttributes(
		attribute.String("tablelog.format", format.String()),
		attribute.String("tablelog.engine", p.cfg.Parser.Engine.String()))

	table, err := loader.Load(ctx, path)
	if err != nil {
		return nil, loadError(err, path)
	}
	if ctx.Err() != nil {
		return nil, lferrors.ContextCanceled("load input")
	}

	snaps, err := parser.NewBuilder(p.cfg.Columns, p.cfg.TimestampLayout).Build(ctx, table)
	if err != nil {
		return nil, err
	}

	loadTags := withTag(tags, metrics.TagFormat, format.String())
	loadTags[metrics.TagEngine] = p.cfg.Parser.Engine.String()
	p.metrics.Counter(metrics.MetricRowsTotal, int64(len(snaps)), loadTags)
	p.metrics.Timer(metrics.MetricLoadDuration, time.Since(start), loadTags)
	span.SetAttributes(attribute.Int("tablelog.rows", len(snaps)))
	return snaps, nil
}

// track runs the lifecycle tracker and the aggregator in a single pass.
func (p *Pipeline) track(ctx context.Context, snaps []model.Snapshot, res *Result, tags map[string]string) {
	_, span := telemetry.StartSpan(ctx, "tablelog.track")
	defer span.End()

	start := time.Now()
	counts := make(map[model.EventKind]int64, 3)
	t := tracker.New(tracker.WithObserver(func(e model.Event) {
		res.Events = append(res.Events, e)
		counts[e.Kind]++
	}))
	res.Samples = stats.NewSamples(len(snaps))

	var bar Progress
	if p.progress != nil {
		bar = p.progress(int64(len(snaps)), "tracking")
	}
	for i := range snaps {
		t.Observe(&snaps[i])
		res.Samples.Add(&snaps[i])
		if bar == nil {
			continue
		}
		// A broken progress display stops updating; the pass goes on.
		if err := bar.Add(1); err != nil {
			p.logger.Debug("progress update failed", "error", err)
			bar = nil
		}
	}
	if bar != nil {
		if err := bar.Finish(); err != nil {
			p.logger.Debug("progress finish failed", "error", err)
		}
	}
	res.Totals = t.Totals()

	waiting, eating := t.Pending()
	for kind, n := range counts {
		p.metrics.Counter(metrics.MetricEventsTotal, n, withTag(tags, metrics.TagKind, kind.String()))
	}
	p.metrics.Gauge(metrics.MetricPendingWaiting, float64(waiting), tags)
	p.metrics.Gauge(metrics.MetricPendingEating, float64(eating), tags)
	p.metrics.Timer(metrics.MetricTrackDuration, time.Since(start), tags)

	span.SetAttributes(
		attribute.Int("tablelog.events", len(res.Events)),
		attribute.Int("tablelog.pending_waiting", waiting),
		attribute.Int("tablelog.pending_eating", eating))
}

// export writes the configured output files concurrently.
func (p *Pipeline) export(ctx context.Context, res *Result) error {
	ex := p.cfg.Exports
	if !ex.any() {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "tablelog.export")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	if ex.XLSX != "" {
		g.Go(func() error {
			return wrapExport(export.WriteXLSX(ex.XLSX, res.Report, res.Samples), ex.XLSX)
		})
	}
	if ex.Timeline != "" {
		g.Go(func() error {
			return wrapExport(export.WriteTimelineFile(gctx, ex.Timeline, res.Snapshots, ex.Parquet), ex.Timeline)
		})
	}
	if ex.Events != "" {
		g.Go(func() error {
			return wrapExport(export.WriteEventsFile(gctx, ex.Events, res.Events, ex.Parquet), ex.Events)
		})
	}
	if err := g.Wait(); err != nil {
		telemetry.EndSpan(span, err)
		return err
	}
	if ex.Groups != "" {
		if err := p.exportGroups(ctx, ex, res.Events); err != nil {
			telemetry.EndSpan(span, err)
			return err
		}
	}

	for _, path := range []string{ex.XLSX, ex.Timeline, ex.Events, ex.Groups} {
		if path != "" {
			res.Exports = append(res.Exports, path)
		}
	}
	p.metrics.Counter(metrics.MetricExportsWritten, int64(len(res.Exports)), nil)
	return nil
}

// exportGroups rolls the event table up per group. Without an events export
// the events go through a temporary Parquet file.
func (p *Pipeline) exportGroups(ctx context.Context, ex Exports, events []model.Event) error {
	eventsPath := ex.Events
	if eventsPath == "" {
		f, err := os.CreateTemp("", "tablelog-events-*.parquet")
		if err != nil {
			return wrapExport(err, ex.Groups)
		}
		eventsPath = f.Name()
		f.Close()
		defer os.Remove(eventsPath)

		if err := export.WriteEventsFile(ctx, eventsPath, events, ex.Parquet); err != nil {
			return wrapExport(err, ex.Groups)
		}
	}
	return wrapExport(export.WriteGroupsFile(ctx, eventsPath, ex.Groups, ex.Parquet.Compression), ex.Groups)
}

// loadError gives loader sentinels an error code. Coded errors pass through.
func loadError(err error, path string) error {
	var te *lferrors.TablelogError
	switch {
	case errors.As(err, &te):
		return err
	case errors.Is(err, parser.ErrContextCanceled), errors.Is(err, context.Canceled):
		return lferrors.ContextCanceled("load input")
	case errors.Is(err, parser.ErrEmptyInput), errors.Is(err, parser.ErrNoSheets):
		return lferrors.Wrap(err, lferrors.CodeInvalidFormat, "input has no data").WithContext("path", path)
	default:
		return lferrors.Wrap(err, lferrors.CodeParseFailed, "cannot load input").WithContext("path", path)
	}
}

func wrapExport(err error, path string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return lferrors.ContextCanceled("export")
	}
	return lferrors.Wrap(err, lferrors.CodeWriteFailed, "export failed").WithContext("path", path)
}

// cacheKey returns "" when caching is off or the input cannot be hashed.
func (p *Pipeline) cacheKey(logger *slog.Logger, path string) string {
	if _, off := p.cache.(cache.Nop); off || p.cfg.Exports.any() {
		return ""
	}
	digest, err := cache.FileDigest(path)
	if err != nil {
		logger.Warn("cannot hash input, cache disabled", "error", err)
		return ""
	}
	return cache.Key(p.cfg.CachePrefix, digest,
		p.cfg.Format.String(),
		p.cfg.Parser.Engine.String(),
		string(p.cfg.Parser.Delimiter),
		p.cfg.Parser.Sheet,
		p.cfg.TimestampLayout,
		fmt.Sprintf("%+v", p.cfg.Columns))
}

func (p *Pipeline) lookup(ctx context.Context, logger *slog.Logger, key string) *cache.Record {
	rec, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		p.metrics.Counter(metrics.MetricCacheHits, 1, nil)
		logger.Debug("report cache hit", "cache", p.cache.Name(), "key", key)
		return rec
	case errors.Is(err, cache.ErrMiss):
		p.metrics.Counter(metrics.MetricCacheMisses, 1, nil)
	default:
		logger.Warn("cache lookup failed", "cache", p.cache.Name(), "error", err)
	}
	return nil
}

// reportMetrics names the gauge of each statistic, in report order.
var reportMetrics = []string{
	"avg_queue_groups",
	"avg_wait_seconds",
	"avg_meal_seconds",
	"peak_queue_groups",
	"avg_kitchen_orders",
	"avg_active_waiters",
}

// publish emits the defined statistics as gauges.
func (p *Pipeline) publish(r *report.Report, tags map[string]string) {
	for i, e := range r.Entries {
		if i >= len(reportMetrics) || !e.Value.Valid {
			continue
		}
		p.metrics.Gauge(metrics.MetricReportPrefix+reportMetrics[i], e.Value.Number, tags)
	}
}

func withTag(tags map[string]string, k, v string) map[string]string {
	out := make(map[string]string, len(tags)+1)
	for key, val := range tags {
		out[key] = val
	}
	out[k] = v
	return out
}
