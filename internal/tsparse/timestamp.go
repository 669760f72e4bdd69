// Package tsparse parses snapshot timestamps.
package tsparse

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimestamp indicates a timestamp parsing error.
var ErrInvalidTimestamp = errors.New("invalid timestamp format")

// Common timestamp layouts ordered by likelihood. The simulator writes
// "%Y-%m-%d %H:%M:%S" in local time without a zone.
var commonLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05Z07:00",
	time.RFC3339Nano,
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Parser parses timestamps with an optional preferred layout.
// Zone-less values are interpreted in UTC; only differences between
// timestamps matter to the analysis.
type Parser struct {
	layout string
}

// NewParser creates a parser that tries layout first, then the common layouts.
// An empty layout uses only the common layouts.
func NewParser(layout string) *Parser {
	return &Parser{layout: layout}
}

// Parse parses a single cell value.
func (p *Parser) Parse(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, ErrInvalidTimestamp
	}

	if p.layout != "" {
		if t, err := time.Parse(p.layout, s); err == nil {
			return t, nil
		}
	}

	for _, layout := range commonLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if isNumeric(s) {
		return parseExcelSerial(s)
	}

	return time.Time{}, ErrInvalidTimestamp
}

// parseExcelSerial parses spreadsheet serial dates (days since 1899-12-30).
func parseExcelSerial(s string) (time.Time, error) {
	val, err := strconv.ParseFloat(s, 64)
	if err != nil || val < 0 {
		return time.Time{}, ErrInvalidTimestamp
	}

	days := int64(val)
	fraction := val - float64(days)

	t := excelEpoch.AddDate(0, 0, int(days))
	if fraction > 0 {
		// Round to the millisecond to absorb float noise.
		ms := int64(fraction*24*60*60*1e3 + 0.5)
		t = t.Add(time.Duration(ms) * time.Millisecond)
	}
	return t, nil
}

// isNumeric checks if s contains only digits and at most one dot.
func isNumeric(s string) bool {
	dots := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '.' && dots == 0 {
			dots++
			continue
		}
		return false
	}
	return true
}
