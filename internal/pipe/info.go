package pipe

import (
	"context"
	"time"

	"github.com/logflow/tablelog/internal/tsparse"
	lferrors "github.com/logflow/tablelog/pkg/errors"
	"github.com/logflow/tablelog/pkg/parser"
	"github.com/logflow/tablelog/pkg/source"
)

// Info describes an input log without analyzing it.
type Info struct {
	Location string
	Size     int64
	ModTime  time.Time
	Format   parser.Format
	Rows     int
	Columns  []string

	// Missing lists required columns absent from the header.
	Missing []string

	// First and Last are the earliest and latest parseable timestamps.
	// Both are zero when no timestamp parses.
	First time.Time
	Last  time.Time
}

// Span returns the time covered by the log.
func (i *Info) Span() time.Duration {
	return i.Last.Sub(i.First)
}

// Inspect loads the location named by cfg and summarizes it.
func Inspect(ctx context.Context, resolver *source.Resolver, cfg Config) (*Info, error) {
	resolved, err := resolver.Resolve(ctx, cfg.Location)
	if err != nil {
		return nil, err
	}
	defer resolved.Close()

	format := cfg.Format
	if format == parser.FormatUnknown {
		format = parser.DetectFormat(resolved.Path)
	}
	loader, err := parser.NewLoader(format, cfg.Parser)
	if err != nil {
		return nil, lferrors.Wrap(err, lferrors.CodeInvalidFormat, "cannot read input").
			WithContext("path", resolved.Path)
	}
	table, err := loader.Load(ctx, resolved.Path)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Location: resolved.Location.String(),
		Size:     resolved.Size,
		ModTime:  resolved.ModTime,
		Format:   format,
		Rows:     len(table.Rows),
		Columns:  table.Header,
	}
	for _, name := range cfg.Columns.Required() {
		if table.Index(name) < 0 {
			info.Missing = append(info.Missing, name)
		}
	}

	col := table.Index(cfg.Columns.Timestamp)
	if col < 0 {
		return info, nil
	}
	ts := tsparse.NewParser(cfg.TimestampLayout)
	for _, row := range table.Rows {
		t, err := ts.Parse(table.Cell(row, col))
		if err != nil {
			continue
		}
		if info.First.IsZero() || t.Before(info.First) {
			info.First = t
		}
		if t.After(info.Last) {
			info.Last = t
		}
	}
	return info, nil
}
