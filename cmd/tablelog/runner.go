package main

import (
	"context"
	"io"
	"os"

	"github.com/logflow/tablelog/internal/pipe"
	"github.com/logflow/tablelog/pkg/cache"
	"github.com/logflow/tablelog/pkg/config"
	"github.com/logflow/tablelog/pkg/export"
	"github.com/logflow/tablelog/pkg/metrics"
	"github.com/logflow/tablelog/pkg/parser"
	"github.com/logflow/tablelog/pkg/report"
	"github.com/logflow/tablelog/pkg/source"
	"github.com/logflow/tablelog/pkg/tui"
)

// pipelineConfig maps the loaded configuration onto a pipeline config.
func pipelineConfig(cfg *config.Config) pipe.Config {
	pc := pipe.DefaultConfig()
	pc.Location = cfg.Input.Location
	if cfg.Input.Format != "" && cfg.Input.Format != "auto" {
		pc.Format = parser.ParseFormat(cfg.Input.Format)
	}
	pc.Parser = cfg.ParserConfig()
	pc.Columns = cfg.Input.Columns
	pc.TimestampLayout = cfg.Input.TimestampLayout
	pc.Exports = pipe.Exports{
		XLSX:     cfg.Export.XLSX,
		Timeline: cfg.Export.Timeline,
		Events:   cfg.Export.Events,
		Groups:   cfg.Export.Groups,
		Parquet:  export.DefaultConfig(),
	}
	pc.Exports.Parquet.Compression = export.ParseCompression(cfg.Export.Compression)
	if cfg.Cache.Prefix != "" {
		pc.CachePrefix = cfg.Cache.Prefix
	}
	return pc
}

// newResolver creates the location resolver for cfg.
func newResolver(cfg *config.Config) *source.Resolver {
	return source.NewResolver(cfg.Storage.S3, logger)
}

// openCache connects the report cache. Failures fall back to no caching.
func openCache(ctx context.Context, cfg *config.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return cache.Nop{}
	}
	rcfg := cache.DefaultRedisConfig(cfg.Cache.Address)
	rcfg.Password = cfg.Cache.Password
	rcfg.Database = cfg.Cache.DB
	rcfg.TTL = cfg.Cache.TTL
	rcfg.Prefix = cfg.Cache.Prefix

	c, err := cache.NewRedis(ctx, rcfg)
	if err != nil {
		logger.Warn("report cache unavailable", "address", cfg.Cache.Address, "error", err)
		return cache.Nop{}
	}
	return c
}

// newPipeline wires a pipeline with the process logger, metrics, cache and,
// in verbose mode, a progress bar.
func newPipeline(cfg *config.Config, c cache.Cache, m metrics.Exporter) *pipe.Pipeline {
	opts := []pipe.Option{
		pipe.WithLogger(logger),
		pipe.WithMetrics(m),
		pipe.WithCache(c),
		pipe.WithResolver(newResolver(cfg)),
	}
	if verbose {
		opts = append(opts, pipe.WithProgress(func(total int64, desc string) pipe.Progress {
			return tui.ShowProgress(os.Stderr, total, desc)
		}))
	}
	return pipe.New(pipelineConfig(cfg), opts...)
}

// renderReport writes r to the configured output in the configured format.
func renderReport(cfg *config.Config, r *report.Report) error {
	format, err := report.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if cfg.Report.Output != "" {
		f, err := os.Create(cfg.Report.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if format == report.FormatPretty {
		return tui.PrintReport(w, r)
	}
	return r.Write(w, format)
}

// printSummary prints run statistics to stderr in verbose mode.
func printSummary(res *pipe.Result) {
	if !verbose {
		return
	}
	tui.PrintRunSummary(os.Stderr, &tui.RunSummary{
		RunID:     res.Report.Meta.RunID,
		Snapshots: res.Report.Meta.Snapshots,
		Events:    len(res.Events),
		InputSize: res.InputSize,
		Duration:  res.Duration,
		Cached:    res.Cached,
		Exports:   res.Exports,
	})
}
