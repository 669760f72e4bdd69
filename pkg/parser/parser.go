// Package parser loads restaurant logs into raw tables and builds snapshots
// from them.
package parser

import (
	"context"
	"path/filepath"
	"strings"
)

// Loader reads a tabular log into memory.
// Implementations must respect context cancellation between rows.
type Loader interface {
	Load(ctx context.Context, path string) (*Table, error)
}

// Table is a header plus data rows, all cells as raw text.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of column name, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the cell of row at column i, or "" when the row is short.
func (t *Table) Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return "unknown"
	}
}

// ParseFormat parses a format string.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "csv", "txt":
		return FormatCSV
	case "xlsx", "excel":
		return FormatXLSX
	default:
		return FormatUnknown
	}
}

// DetectFormat infers the format from a file name. A trailing .gz is ignored.
func DetectFormat(path string) Format {
	lower := strings.ToLower(path)
	lower = strings.TrimSuffix(lower, ".gz")
	return ParseFormat(strings.TrimPrefix(filepath.Ext(lower), "."))
}

// Engine selects the CSV implementation.
type Engine uint8

const (
	// EngineNative uses the in-process FSM scanner.
	EngineNative Engine = iota
	// EngineDuckDB uses DuckDB's read_csv_auto.
	EngineDuckDB
)

// String returns the engine name.
func (e Engine) String() string {
	if e == EngineDuckDB {
		return "duckdb"
	}
	return "native"
}

// ParseEngine parses an engine name. Unknown names select EngineNative.
func ParseEngine(s string) Engine {
	if strings.EqualFold(s, "duckdb") {
		return EngineDuckDB
	}
	return EngineNative
}

// Config holds loader configuration.
type Config struct {
	// Delimiter is the CSV field delimiter (default: comma).
	Delimiter byte

	// Engine selects the CSV loader.
	Engine Engine

	// Sheet is the XLSX sheet to read. Empty selects the first sheet.
	Sheet string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Delimiter: ',',
		Engine:    EngineNative,
	}
}

// NewLoader creates a loader for the given format.
func NewLoader(format Format, cfg Config) (Loader, error) {
	switch format {
	case FormatCSV:
		if cfg.Engine == EngineDuckDB {
			return NewDuckDBLoader(cfg), nil
		}
		return NewCSVLoader(cfg), nil
	case FormatXLSX:
		return NewXLSXLoader(cfg), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
