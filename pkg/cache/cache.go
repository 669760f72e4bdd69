// Package cache stores computed reports keyed by the digest of their input,
// so an unchanged log is not analyzed twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/logflow/tablelog/pkg/report"
)

// ErrMiss is returned by Get when no record is stored under the key.
var ErrMiss = errors.New("cache miss")

// Cache stores report records.
type Cache interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, key string, rec *Record) error
	Name() string
	Close() error
}

// Record is the cached form of a report. Run metadata is not cached.
type Record struct {
	Snapshots int           `json:"snapshots"`
	Entries   []RecordEntry `json:"entries"`
}

// RecordEntry is one cached statistic.
type RecordEntry struct {
	Label   string  `json:"label"`
	Number  float64 `json:"number"`
	Integer bool    `json:"integer,omitempty"`
	Valid   bool    `json:"valid"`
}

// FromReport converts r to a Record.
func FromReport(r *report.Report) *Record {
	rec := &Record{
		Snapshots: r.Meta.Snapshots,
		Entries:   make([]RecordEntry, len(r.Entries)),
	}
	for i, e := range r.Entries {
		rec.Entries[i] = RecordEntry{
			Label:   e.Label,
			Number:  e.Value.Number,
			Integer: e.Value.Integer,
			Valid:   e.Value.Valid,
		}
	}
	return rec
}

// Report rebuilds the report. Meta only carries the snapshot count.
func (rec *Record) Report() *report.Report {
	r := &report.Report{
		Meta:    report.Meta{Snapshots: rec.Snapshots},
		Entries: make([]report.Entry, len(rec.Entries)),
	}
	for i, e := range rec.Entries {
		r.Entries[i] = report.Entry{
			Label: e.Label,
			Value: report.Value{Number: e.Number, Integer: e.Integer, Valid: e.Valid},
		}
	}
	return r
}

// FileDigest returns the hex SHA-256 of the file at path.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Key derives the cache key from the input digest and the settings that
// change how the input is interpreted.
func Key(prefix, digest string, settings ...string) string {
	h := sha256.New()
	io.WriteString(h, digest)
	for _, s := range settings {
		io.WriteString(h, "\x00")
		io.WriteString(h, s)
	}
	return prefix + hex.EncodeToString(h.Sum(nil))
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) (*Record, error) { return nil, ErrMiss }
func (Nop) Put(context.Context, string, *Record) error   { return nil }
func (Nop) Name() string                                 { return "none" }
func (Nop) Close() error                                 { return nil }

