package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"

	"github.com/logflow/tablelog/internal/model"
)

// TimelineSchema is the schema of the per-snapshot timeline table.
var TimelineSchema = arrow.NewSchema([]arrow.Field{
	{Name: "row", Type: arrow.PrimitiveTypes.Int64},
	{Name: "timestamp", Type: arrow.FixedWidthTypes.Timestamp_ms},
	{Name: "waiting_groups", Type: arrow.PrimitiveTypes.Int32},
	{Name: "waiting_persons", Type: arrow.PrimitiveTypes.Int32},
	{Name: "seated_groups", Type: arrow.PrimitiveTypes.Int32},
	{Name: "completed_orders", Type: arrow.PrimitiveTypes.Int32},
	{Name: "kitchen_orders", Type: arrow.PrimitiveTypes.Int32},
	{Name: "active_waiters", Type: arrow.PrimitiveTypes.Int32},
	{Name: "ingredient_stock", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
	{Name: "ingredients_out", Type: arrow.PrimitiveTypes.Int32, Nullable: true},
}, nil)

// EventSchema is the schema of the lifecycle event table.
var EventSchema = arrow.NewSchema([]arrow.Field{
	{Name: "kind", Type: arrow.BinaryTypes.String},
	{Name: "group_id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "party_size", Type: arrow.PrimitiveTypes.Int32},
	{Name: "at", Type: arrow.FixedWidthTypes.Timestamp_ms},
	{Name: "elapsed_seconds", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "row", Type: arrow.PrimitiveTypes.Int64},
	{Name: "counted", Type: arrow.FixedWidthTypes.Boolean},
}, nil)

// tableWriter batches rows into Arrow records and writes them as Parquet.
type tableWriter struct {
	cfg     Config
	writer  *pqarrow.FileWriter
	builder *array.RecordBuilder
	pending int
	written int64
	closed  bool
}

func newTableWriter(out io.Writer, schema *arrow.Schema, cfg Config) (*tableWriter, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(cfg.Compression.codec()),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	w, err := pqarrow.NewFileWriter(schema, out, writerProps, arrowProps)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer: %w", err)
	}

	return &tableWriter{
		cfg:     cfg,
		writer:  w,
		builder: array.NewRecordBuilder(memory.NewGoAllocator(), schema),
	}, nil
}

// rowAdded counts a row appended to the builder and flushes full batches.
func (t *tableWriter) rowAdded() error {
	t.pending++
	if t.pending >= t.cfg.BatchSize {
		return t.flush()
	}
	return nil
}

func (t *tableWriter) flush() error {
	if t.pending == 0 {
		return nil
	}
	rec := t.builder.NewRecord()
	defer rec.Release()

	if err := t.writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write record batch: %w", err)
	}
	t.written += int64(t.pending)
	t.pending = 0
	return nil
}

func (t *tableWriter) close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	defer t.builder.Release()

	if err := t.flush(); err != nil {
		return err
	}
	if err := t.writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

func timestampMs(t time.Time) arrow.Timestamp {
	return arrow.Timestamp(t.UnixMilli())
}

// TimelineWriter writes one Parquet row per snapshot.
type TimelineWriter struct {
	t *tableWriter
}

// NewTimelineWriter creates a timeline writer on out.
func NewTimelineWriter(out io.Writer, cfg Config) (*TimelineWriter, error) {
	t, err := newTableWriter(out, TimelineSchema, cfg)
	if err != nil {
		return nil, err
	}
	return &TimelineWriter{t: t}, nil
}

// Add appends one snapshot.
func (w *TimelineWriter) Add(snap *model.Snapshot) error {
	persons := 0
	for _, e := range snap.Waiting {
		persons += e.PartySize
	}

	b := w.t.builder
	b.Field(0).(*array.Int64Builder).Append(int64(snap.Row))
	b.Field(1).(*array.TimestampBuilder).Append(timestampMs(snap.Timestamp))
	b.Field(2).(*array.Int32Builder).Append(int32(len(snap.Waiting)))
	b.Field(3).(*array.Int32Builder).Append(int32(persons))
	b.Field(4).(*array.Int32Builder).Append(int32(len(snap.Seated)))
	b.Field(5).(*array.Int32Builder).Append(int32(len(snap.Completed)))
	b.Field(6).(*array.Int32Builder).Append(int32(snap.KitchenOrders))
	b.Field(7).(*array.Int32Builder).Append(int32(snap.ActiveWaiters))
	if snap.Ingredients == nil {
		b.Field(8).(*array.Int32Builder).AppendNull()
		b.Field(9).(*array.Int32Builder).AppendNull()
	} else {
		stock, out := ingredientLevels(snap.Ingredients)
		b.Field(8).(*array.Int32Builder).Append(int32(stock))
		b.Field(9).(*array.Int32Builder).Append(int32(out))
	}
	return w.t.rowAdded()
}

// ingredientLevels returns the total stock and the number of ingredients
// that ran out.
func ingredientLevels(levels map[string]int) (stock, out int) {
	for _, n := range levels {
		stock += n
		if n <= 0 {
			out++
		}
	}
	return stock, out
}

// RowsWritten returns the number of rows flushed so far.
func (w *TimelineWriter) RowsWritten() int64 {
	return w.t.written
}

// Close flushes remaining rows and finalizes the file.
func (w *TimelineWriter) Close() error {
	return w.t.close()
}

// EventWriter writes one Parquet row per lifecycle event.
type EventWriter struct {
	t *tableWriter
}

// NewEventWriter creates an event writer on out.
func NewEventWriter(out io.Writer, cfg Config) (*EventWriter, error) {
	t, err := newTableWriter(out, EventSchema, cfg)
	if err != nil {
		return nil, err
	}
	return &EventWriter{t: t}, nil
}

// Add appends one event. Joined events have no elapsed time.
func (w *EventWriter) Add(ev model.Event) error {
	b := w.t.builder
	b.Field(0).(*array.StringBuilder).Append(ev.Kind.String())
	b.Field(1).(*array.Int64Builder).Append(int64(ev.GroupID))
	b.Field(2).(*array.Int32Builder).Append(int32(ev.PartySize))
	b.Field(3).(*array.TimestampBuilder).Append(timestampMs(ev.At))
	if ev.Kind == model.EventJoined || !ev.Counted {
		b.Field(4).(*array.Float64Builder).AppendNull()
	} else {
		b.Field(4).(*array.Float64Builder).Append(ev.Elapsed.Seconds())
	}
	b.Field(5).(*array.Int64Builder).Append(int64(ev.Row))
	b.Field(6).(*array.BooleanBuilder).Append(ev.Counted)
	return w.t.rowAdded()
}

// RowsWritten returns the number of rows flushed so far.
func (w *EventWriter) RowsWritten() int64 {
	return w.t.written
}

// Close flushes remaining rows and finalizes the file.
func (w *EventWriter) Close() error {
	return w.t.close()
}

// WriteTimelineFile writes snaps to a new Parquet file at path.
func WriteTimelineFile(ctx context.Context, path string, snaps []model.Snapshot, cfg Config) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return writeFile(path, func(out io.Writer) error {
		w, err := NewTimelineWriter(out, cfg)
		if err != nil {
			return err
		}
		for i := range snaps {
			if i%cfg.BatchSize == 0 && ctx.Err() != nil {
				w.Close()
				return ctx.Err()
			}
			if err := w.Add(&snaps[i]); err != nil {
				w.Close()
				return err
			}
		}
		return w.Close()
	})
}

// WriteEventsFile writes events to a new Parquet file at path.
func WriteEventsFile(ctx context.Context, path string, events []model.Event, cfg Config) error {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	return writeFile(path, func(out io.Writer) error {
		w, err := NewEventWriter(out, cfg)
		if err != nil {
			return err
		}
		for i, ev := range events {
			if i%cfg.BatchSize == 0 && ctx.Err() != nil {
				w.Close()
				return ctx.Err()
			}
			if err := w.Add(ev); err != nil {
				w.Close()
				return err
			}
		}
		return w.Close()
	})
}

// writeFile creates path, runs fill, and removes the file if fill fails.
// fill gets a plain writer so the parquet writer cannot close the file.
func writeFile(path string, fill func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := fill(struct{ io.Writer }{f}); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
