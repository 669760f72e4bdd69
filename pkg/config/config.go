// Package config provides hierarchical configuration management.
// Priority: defaults < system < user < project < --config file < env < flags
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	lferrors "github.com/logflow/tablelog/pkg/errors"
	"github.com/logflow/tablelog/pkg/parser"
	"github.com/logflow/tablelog/pkg/report"
	"github.com/logflow/tablelog/pkg/source"
)

// DefaultLocation is read when no location is configured anywhere.
const DefaultLocation = "restaurant_log.csv"

// Config holds all tablelog configuration.
type Config struct {
	Version int `yaml:"version"`

	Input     InputConfig     `yaml:"input"`
	Report    ReportConfig    `yaml:"report"`
	Export    ExportConfig    `yaml:"export"`
	Cache     CacheConfig     `yaml:"cache"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
	Watch     WatchConfig     `yaml:"watch"`
}

// InputConfig describes where and how the restaurant log is read.
type InputConfig struct {
	Location        string         `yaml:"location"`
	Format          string         `yaml:"format"` // auto | csv | xlsx
	Engine          string         `yaml:"engine"` // native | duckdb
	Delimiter       string         `yaml:"delimiter"`
	Sheet           string         `yaml:"sheet"`
	TimestampLayout string         `yaml:"timestamp_layout"`
	Columns         parser.Columns `yaml:"columns"`
}

// ReportConfig controls report rendering.
type ReportConfig struct {
	Format string `yaml:"format"` // text | pretty | json | yaml
	Output string `yaml:"output"` // empty = stdout
}

// ExportConfig names optional export files. Empty disables an export.
type ExportConfig struct {
	XLSX        string `yaml:"xlsx"`
	Timeline    string `yaml:"timeline"`
	Events      string `yaml:"events"`
	Groups      string `yaml:"groups"`
	Compression string `yaml:"compression"` // snappy | zstd | gzip | none
}

// CacheConfig configures the Redis report cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
	Prefix   string        `yaml:"prefix"`
}

// StorageConfig configures remote input storage.
type StorageConfig struct {
	S3 source.S3Config `yaml:"s3"`
}

// TelemetryConfig for optional tracing.
type TelemetryConfig struct {
	Enabled       bool    `yaml:"enabled"`
	Endpoint      string  `yaml:"endpoint"`
	ServiceName   string  `yaml:"service_name"`
	SamplingRatio float64 `yaml:"sampling_ratio"`
	Insecure      bool    `yaml:"insecure"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// WatchConfig controls the watch command.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Input: InputConfig{
			Location:  DefaultLocation,
			Format:    "auto",
			Engine:    "native",
			Delimiter: ",",
			Columns:   parser.DefaultColumns(),
		},
		Report: ReportConfig{
			Format: "text",
		},
		Export: ExportConfig{
			Compression: "snappy",
		},
		Cache: CacheConfig{
			Enabled: false,
			Address: "localhost:6379",
			TTL:     24 * time.Hour,
			Prefix:  "tablelog:report:",
		},
		Storage: StorageConfig{
			S3: source.DefaultS3Config(),
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			Endpoint:      "localhost:4317",
			ServiceName:   "tablelog",
			SamplingRatio: 1.0,
			Insecure:      true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Manager handles configuration loading and merging.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	paths  []string // Paths that were loaded
	file   string   // Explicit --config file
}

// NewManager creates a new configuration manager.
func NewManager() *Manager {
	return &Manager{
		config: Default(),
	}
}

// SetConfigFile adds an explicit config file, loaded after the standard
// locations. Unlike those, it must exist.
func (m *Manager) SetConfigFile(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.file = path
}

// Load loads configuration from all sources in priority order.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = Default()
	m.paths = nil

	for _, path := range m.getConfigPaths() {
		if err := m.loadFile(path); err != nil {
			// Missing files are skipped; broken ones are not.
			if !os.IsNotExist(err) {
				return lferrors.Wrap(err, lferrors.CodeConfig, "invalid config file").WithContext("path", path)
			}
		} else {
			m.paths = append(m.paths, path)
		}
	}

	explicit := m.file
	if explicit == "" {
		explicit = os.Getenv("TABLELOG_CONFIG")
	}
	if explicit != "" {
		if err := m.loadFile(explicit); err != nil {
			return lferrors.Wrap(err, lferrors.CodeConfig, "cannot load config file").WithContext("path", explicit)
		}
		m.paths = append(m.paths, explicit)
	}

	m.loadEnv()
	return nil
}

// getConfigPaths returns config file paths in priority order.
func (m *Manager) getConfigPaths() []string {
	var paths []string

	// System config
	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/tablelog/config.yaml")
	}

	// User config
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".tablelog", "config.yaml"))
	}

	// Project config (current directory)
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".tablelog.yaml"))
	}

	return paths
}

// loadFile loads a single config file over the current configuration.
// Only keys present in the file change; a decode error leaves the
// configuration untouched.
func (m *Manager) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	next := *m.config
	if err := yaml.Unmarshal(data, &next); err != nil {
		return err
	}
	m.config = &next
	return nil
}

// loadEnv loads configuration from environment variables.
func (m *Manager) loadEnv() {
	c := m.config

	// CSV_PATH is honoured for compatibility; TABLELOG_INPUT wins over it.
	if v := os.Getenv("CSV_PATH"); v != "" {
		c.Input.Location = v
	}
	if v := os.Getenv("TABLELOG_INPUT"); v != "" {
		c.Input.Location = v
	}

	if v := os.Getenv("TABLELOG_ENGINE"); v != "" {
		c.Input.Engine = v
	}
	if v := os.Getenv("TABLELOG_FORMAT"); v != "" {
		c.Report.Format = v
	}
	if v := os.Getenv("TABLELOG_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	// Setting a Redis address turns the cache on.
	if v := os.Getenv("TABLELOG_REDIS_ADDR"); v != "" {
		c.Cache.Address = v
		c.Cache.Enabled = true
	}
	if v := os.Getenv("TABLELOG_REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}
	if v := os.Getenv("TABLELOG_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Cache.DB = db
		}
	}

	if v := os.Getenv("TABLELOG_S3_ENDPOINT"); v != "" {
		c.Storage.S3.Endpoint = v
		c.Storage.S3.UsePathStyle = true
	}

	if v := os.Getenv("TABLELOG_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
		c.Telemetry.Enabled = true
	}
}

// Validate checks values that cannot be verified by decoding alone.
func (c *Config) Validate() error {
	if _, err := report.ParseFormat(c.Report.Format); err != nil {
		return lferrors.Wrap(err, lferrors.CodeConfig, "invalid report.format")
	}
	switch c.Input.Format {
	case "", "auto":
	default:
		if parser.ParseFormat(c.Input.Format) == parser.FormatUnknown {
			return lferrors.New(lferrors.CodeConfig, "invalid input.format").WithContext("format", c.Input.Format)
		}
	}
	switch c.Input.Engine {
	case "", "native", "duckdb":
	default:
		return lferrors.New(lferrors.CodeConfig, "invalid input.engine").WithContext("engine", c.Input.Engine)
	}
	if len(c.Input.Delimiter) > 1 {
		return lferrors.New(lferrors.CodeConfig, "input.delimiter must be a single byte").
			WithContext("delimiter", c.Input.Delimiter)
	}
	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return lferrors.New(lferrors.CodeConfig, "telemetry.sampling_ratio must be within [0, 1]").
			WithContext("sampling_ratio", c.Telemetry.SamplingRatio)
	}
	return nil
}

// ParserConfig returns the loader configuration.
func (c *Config) ParserConfig() parser.Config {
	cfg := parser.DefaultConfig()
	if c.Input.Delimiter != "" {
		cfg.Delimiter = c.Input.Delimiter[0]
	}
	cfg.Engine = parser.ParseEngine(c.Input.Engine)
	cfg.Sheet = c.Input.Sheet
	return cfg
}

// Get returns the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// GetPaths returns the paths that were loaded.
func (m *Manager) GetPaths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths
}

// Marshal renders the current configuration as YAML.
func (m *Manager) Marshal() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return yaml.Marshal(m.config)
}

// Save writes the current config to the user config file and returns its path.
func (m *Manager) Save() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(home, ".tablelog", "config.yaml")
	return path, m.SaveTo(path)
}

// SaveTo writes the current config to path.
func (m *Manager) SaveTo(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
