// tablelog - restaurant simulation log analyzer.
// Reads the simulator's CSV/XLSX log and reports queue, wait, meal, kitchen
// and waiter statistics.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/logflow/tablelog/pkg/config"
	"github.com/logflow/tablelog/pkg/logging"
	"github.com/logflow/tablelog/pkg/telemetry"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// Global flags
var (
	verbose    bool
	configPath string
	logLevel   string
)

// Shared state set up by the root command before any subcommand runs.
var (
	cfgManager *config.Manager
	logger     *slog.Logger
	shutdown   telemetry.ShutdownFunc
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tablelog",
	Short: "tablelog - Restaurant simulation log analyzer",
	Long: `tablelog reads the log written by the restaurant simulator and reports
queue sizes, person-weighted waiting and meal times, kitchen load and waiter
activity.

Examples:
  tablelog stats
  tablelog stats -i s3://logs/restaurant_log.csv --format json
  tablelog watch -i restaurant_log.csv`,
	Version:           fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown == nil {
			return nil
		}
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./.tablelog.yaml, ~/.tablelog/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(configCmd)
}

// setup loads configuration, applies flags and installs logging and tracing.
func setup(cmd *cobra.Command, args []string) error {
	cfgManager = config.NewManager()
	if configPath != "" {
		cfgManager.SetConfigFile(configPath)
	}
	if err := cfgManager.Load(); err != nil {
		return err
	}

	cfg := cfgManager.Get()
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger = logging.Setup(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Debug("configuration loaded", "paths", cfgManager.GetPaths())

	tcfg := telemetry.DefaultConfig()
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.ServiceVersion = version
	if cfg.Telemetry.Endpoint != "" {
		tcfg.Endpoint = cfg.Telemetry.Endpoint
	}
	if cfg.Telemetry.ServiceName != "" {
		tcfg.ServiceName = cfg.Telemetry.ServiceName
	}
	tcfg.Insecure = cfg.Telemetry.Insecure
	tcfg.SamplingRatio = cfg.Telemetry.SamplingRatio

	var err error
	shutdown, err = telemetry.Init(cmd.Context(), tcfg)
	if err != nil {
		// Tracing never blocks an analysis.
		logger.Warn("telemetry disabled", "endpoint", tcfg.Endpoint, "error", err)
		shutdown = nil
	}
	return nil
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	} else if verbose && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}
	if flags.Changed("input") {
		cfg.Input.Location = inputFlag
	}
	if flags.Changed("input-format") {
		cfg.Input.Format = inputFormatFlag
	}
	if flags.Changed("engine") {
		cfg.Input.Engine = engineFlag
	}
	if flags.Changed("format") {
		cfg.Report.Format = formatFlag
	}
	if flags.Changed("output") {
		cfg.Report.Output = outputFlag
	}
	if flags.Changed("xlsx") {
		cfg.Export.XLSX = xlsxFlag
	}
	if flags.Changed("timeline") {
		cfg.Export.Timeline = timelineFlag
	}
	if flags.Changed("events") {
		cfg.Export.Events = eventsFlag
	}
	if flags.Changed("groups") {
		cfg.Export.Groups = groupsFlag
	}
	if flags.Changed("compression") {
		cfg.Export.Compression = compressionFlag
	}
	if noCacheFlag {
		cfg.Cache.Enabled = false
	}
}
