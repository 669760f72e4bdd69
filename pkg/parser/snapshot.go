package parser

import (
	"context"

	"github.com/logflow/tablelog/internal/model"
	"github.com/logflow/tablelog/internal/tsparse"
	lferrors "github.com/logflow/tablelog/pkg/errors"
	"github.com/logflow/tablelog/pkg/extract"
)

// Columns names the log columns read by the snapshot builder.
type Columns struct {
	Timestamp   string `yaml:"timestamp"`
	Waiting     string `yaml:"waiting"`
	Tables      string `yaml:"tables"`
	Completed   string `yaml:"completed"`
	Kitchen     string `yaml:"kitchen"`
	Waiters     string `yaml:"waiters"`
	Ingredients string `yaml:"ingredients"`
}

// DefaultColumns returns the column names the simulator writes.
func DefaultColumns() Columns {
	return Columns{
		Timestamp:   "Timestamp",
		Waiting:     "Waiting Queue",
		Tables:      "Tables",
		Completed:   "Completed Orders",
		Kitchen:     "Kitchen Queue",
		Waiters:     "Waiters",
		Ingredients: "Ingredients",
	}
}

// Required returns the mandatory column names in check order.
func (c Columns) Required() []string {
	return []string{c.Timestamp, c.Waiting, c.Tables, c.Completed, c.Kitchen, c.Waiters}
}

// Builder converts raw tables into snapshots.
type Builder struct {
	cols Columns
	ts   *tsparse.Parser
}

// NewBuilder creates a builder. timestampLayout is tried before the common
// layouts and may be empty.
func NewBuilder(cols Columns, timestampLayout string) *Builder {
	return &Builder{cols: cols, ts: tsparse.NewParser(timestampLayout)}
}

type columnIndex struct {
	ts, waiting, tables, completed, kitchen, waiters, ingredients int
}

func (b *Builder) resolve(t *Table) (columnIndex, error) {
	for _, name := range b.cols.Required() {
		if t.Index(name) < 0 {
			return columnIndex{}, lferrors.MissingColumn(name, t.Header)
		}
	}
	ingredients := -1
	if b.cols.Ingredients != "" {
		ingredients = t.Index(b.cols.Ingredients)
	}
	return columnIndex{
		ts:          t.Index(b.cols.Timestamp),
		waiting:     t.Index(b.cols.Waiting),
		tables:      t.Index(b.cols.Tables),
		completed:   t.Index(b.cols.Completed),
		kitchen:     t.Index(b.cols.Kitchen),
		waiters:     t.Index(b.cols.Waiters),
		ingredients: ingredients,
	}, nil
}

// Build converts every row of t into a Snapshot, in table order.
// A missing required column or an unparseable timestamp aborts the build.
func (b *Builder) Build(ctx context.Context, t *Table) ([]model.Snapshot, error) {
	idx, err := b.resolve(t)
	if err != nil {
		return nil, err
	}

	snaps := make([]model.Snapshot, 0, len(t.Rows))
	for i, row := range t.Rows {
		if i%ctxCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return nil, lferrors.ContextCanceled("build snapshots")
			default:
			}
		}

		// Position among retained rows, not the source line.
		rowNum := i + 1
		raw := t.Cell(row, idx.ts)
		ts, err := b.ts.Parse(raw)
		if err != nil {
			return nil, lferrors.InvalidTimestamp(raw, rowNum, err)
		}

		snap := model.Snapshot{
			Row:           rowNum,
			Timestamp:     ts,
			Waiting:       extract.QueueEntries(t.Cell(row, idx.waiting)),
			Seated:        extract.GroupIDs(t.Cell(row, idx.tables)),
			Completed:     extract.GroupIDs(t.Cell(row, idx.completed)),
			KitchenOrders: len(extract.OrderTokens(t.Cell(row, idx.kitchen))),
			ActiveWaiters: extract.LeadingInteger(t.Cell(row, idx.waiters)),
		}
		if idx.ingredients >= 0 {
			snap.Ingredients = extract.Ingredients(t.Cell(row, idx.ingredients))
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
