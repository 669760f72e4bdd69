package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/logflow/tablelog/internal/pipe"
	lferrors "github.com/logflow/tablelog/pkg/errors"
	"github.com/logflow/tablelog/pkg/metrics"
	"github.com/logflow/tablelog/pkg/parser"
	"github.com/logflow/tablelog/pkg/source"
	"github.com/logflow/tablelog/pkg/tui"
	"github.com/logflow/tablelog/pkg/watch"
)

// Command flags. They only override configuration when set explicitly.
var (
	inputFlag       string
	inputFormatFlag string
	engineFlag      string
	formatFlag      string
	outputFlag      string
	xlsxFlag        string
	timelineFlag    string
	eventsFlag      string
	groupsFlag      string
	compressionFlag string
	noCacheFlag     bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Compute and print the restaurant statistics",
	Long: `Compute the six restaurant statistics from a simulator log.

The log location comes from --input, then TABLELOG_INPUT, then CSV_PATH,
then input.location in the config file, and defaults to restaurant_log.csv.

Examples:
  tablelog stats
  tablelog stats -i restaurant_log.csv --format pretty
  tablelog stats -i log.xlsx --format json -o report.json
  tablelog stats --engine duckdb --xlsx report.xlsx --timeline timeline.parquet
  tablelog stats --events events.parquet --groups groups.parquet`,
	RunE: runStats,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompute the statistics whenever the log changes",
	Long: `Watch a local simulator log and print a fresh report after each burst
of writes. Stops on SIGINT or SIGTERM.`,
	RunE: runWatch,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display information about a log",
	RunE:  runInfo,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Infer and display the column types of a CSV log",
	Long:  `Use DuckDB's schema inference to analyze a CSV log and display column types.`,
	RunE:  runSchema,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or save the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := cfgManager.Marshal()
		if err != nil {
			return err
		}
		if paths := cfgManager.GetPaths(); len(paths) > 0 {
			fmt.Fprintf(os.Stderr, "# loaded: %s\n", strings.Join(paths, ", "))
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save [path]",
	Short: "Save the effective configuration (default: ~/.tablelog/config.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var path string
		var err error
		if len(args) == 1 {
			path = args[0]
			err = cfgManager.SaveTo(path)
		} else {
			path, err = cfgManager.Save()
		}
		if err != nil {
			return lferrors.Wrap(err, lferrors.CodeWriteFailed, "cannot save config").WithContext("path", path)
		}
		fmt.Printf("Saved configuration to %s\n", path)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statsCmd, watchCmd, infoCmd, schemaCmd} {
		c.Flags().StringVarP(&inputFlag, "input", "i", "", "Log location: file path or s3://bucket/key")
	}
	for _, c := range []*cobra.Command{statsCmd, watchCmd, infoCmd} {
		c.Flags().StringVar(&inputFormatFlag, "input-format", "", "Input format (csv, xlsx); auto-detected if not specified")
		c.Flags().StringVar(&engineFlag, "engine", "", "CSV engine (native, duckdb)")
	}
	for _, c := range []*cobra.Command{statsCmd, watchCmd} {
		c.Flags().StringVarP(&formatFlag, "format", "f", "", "Report format (text, pretty, json, yaml)")
		c.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report to a file instead of stdout")
		c.Flags().BoolVar(&noCacheFlag, "no-cache", false, "Skip the report cache")
	}

	statsCmd.Flags().StringVar(&xlsxFlag, "xlsx", "", "Also write the report as an XLSX workbook")
	statsCmd.Flags().StringVar(&timelineFlag, "timeline", "", "Also write the per-row timeline as Parquet")
	statsCmd.Flags().StringVar(&eventsFlag, "events", "", "Also write the group lifecycle events as Parquet")
	statsCmd.Flags().StringVar(&groupsFlag, "groups", "", "Also write a per-group summary as Parquet (via DuckDB)")
	statsCmd.Flags().StringVar(&compressionFlag, "compression", "", "Parquet compression (none, snappy, gzip, zstd)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
}

func newMetrics() metrics.Exporter {
	return metrics.NewLogExporter(logger)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := openCache(ctx, cfg)
	defer c.Close()
	m := newMetrics()
	defer m.Close()

	res, err := newPipeline(cfg, c, m).Run(ctx)
	if err != nil {
		return err
	}
	if err := renderReport(cfg, res.Report); err != nil {
		return err
	}
	printSummary(res)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()

	loc, err := source.ParseLocation(cfg.Input.Location)
	if err != nil {
		return err
	}
	if loc.IsRemote() {
		return lferrors.New(lferrors.CodeSourceUnavailable, "watch needs a local file").
			WithContext("location", loc.String())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := openCache(ctx, cfg)
	defer c.Close()
	m := newMetrics()
	defer m.Close()
	p := newPipeline(cfg, c, m)

	analyze := func(ctx context.Context) error {
		res, err := p.Run(ctx)
		if err != nil {
			return err
		}
		if err := renderReport(cfg, res.Report); err != nil {
			return err
		}
		printSummary(res)
		return nil
	}

	// A broken log at startup is reported, not fatal: the simulator may be mid-write.
	if err := analyze(ctx); err != nil {
		logger.Error("analysis failed", "location", loc.Path, "error", err)
	}

	w, err := watch.NewWatcher(cfg.Watch.Debounce)
	if err != nil {
		return err
	}
	if err := w.Watch(loc.Path); err != nil {
		w.Close()
		return lferrors.Wrap(err, lferrors.CodeSourceUnavailable, "cannot watch input").WithContext("path", loc.Path)
	}
	w.OnChange = func(ctx context.Context, path string) error {
		tui.PrintChange(os.Stderr, path, time.Now())
		return analyze(ctx)
	}
	w.OnError = func(path string, err error) {
		logger.Error("analysis failed", "path", path, "error", err)
	}

	logger.Info("watching", "path", loc.Path, "debounce", cfg.Watch.Debounce)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx)
	})
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()

	info, err := pipe.Inspect(cmd.Context(), newResolver(cfg), pipelineConfig(cfg))
	if err != nil {
		return err
	}

	fmt.Printf("Location: %s\n", info.Location)
	fmt.Printf("Size:     %s\n", humanSize(info.Size))
	fmt.Printf("Format:   %s\n", info.Format)
	fmt.Printf("Rows:     %d\n", info.Rows)
	fmt.Printf("Columns:  %s\n", strings.Join(info.Columns, ", "))
	if len(info.Missing) > 0 {
		fmt.Printf("Missing:  %s\n", strings.Join(info.Missing, ", "))
	}
	if !info.First.IsZero() {
		fmt.Printf("From:     %s\n", info.First.Format(time.DateTime))
		fmt.Printf("To:       %s\n", info.Last.Format(time.DateTime))
		fmt.Printf("Span:     %s\n", info.Span())
	}
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg := cfgManager.Get()
	ctx := cmd.Context()

	resolved, err := newResolver(cfg).Resolve(ctx, cfg.Input.Location)
	if err != nil {
		return err
	}
	defer resolved.Close()

	if parser.DetectFormat(resolved.Path) != parser.FormatCSV {
		return lferrors.New(lferrors.CodeInvalidFormat, "schema inference needs a CSV log").
			WithContext("path", resolved.Path)
	}

	columns, err := parser.GetSchemaInfo(ctx, resolved.Path)
	if err != nil {
		return lferrors.Wrap(err, lferrors.CodeDuckDBQuery, "failed to infer schema")
	}

	fmt.Printf("Schema for %s:\n", resolved.Location)
	fmt.Printf("%-30s %s\n", "Column", "Type")
	fmt.Printf("%-30s %s\n", strings.Repeat("-", 30), strings.Repeat("-", 20))
	for _, col := range columns {
		fmt.Printf("%-30s %s\n", col.Name, col.Type)
	}
	return nil
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
