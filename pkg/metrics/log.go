package metrics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// LogExporter writes metrics as structured log records.
// Useful for debugging and for runs without a metrics backend.
type LogExporter struct {
	mu         sync.Mutex
	logger     *slog.Logger
	level      slog.Level
	buffer     []record
	bufferSize int
}

type record struct {
	kind  string
	name  string
	value any
	tags  map[string]string
}

// LogOption configures LogExporter.
type LogOption func(*LogExporter)

// WithLevel sets the level metric records are logged at.
func WithLevel(level slog.Level) LogOption {
	return func(e *LogExporter) {
		e.level = level
	}
}

// WithBufferSize batches records until Flush or until size are pending.
func WithBufferSize(size int) LogOption {
	return func(e *LogExporter) {
		e.bufferSize = size
	}
}

// NewLogExporter creates a log-based metrics exporter.
func NewLogExporter(logger *slog.Logger, opts ...LogOption) *LogExporter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &LogExporter{
		logger: logger,
		level:  slog.LevelDebug,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Counter logs a counter metric.
func (e *LogExporter) Counter(name string, value int64, tags map[string]string) {
	e.add(record{"counter", name, value, tags})
}

// Gauge logs a gauge metric.
func (e *LogExporter) Gauge(name string, value float64, tags map[string]string) {
	e.add(record{"gauge", name, value, tags})
}

// Timer logs a timer metric.
func (e *LogExporter) Timer(name string, duration time.Duration, tags map[string]string) {
	e.add(record{"timer", name, duration, tags})
}

// Flush outputs any buffered metrics.
func (e *LogExporter) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
	return nil
}

// Close flushes and closes the exporter.
func (e *LogExporter) Close() error {
	return e.Flush()
}

func (e *LogExporter) add(r record) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bufferSize <= 0 {
		e.emit(r)
		return
	}
	e.buffer = append(e.buffer, r)
	if len(e.buffer) >= e.bufferSize {
		e.flushLocked()
	}
}

func (e *LogExporter) flushLocked() {
	for _, r := range e.buffer {
		e.emit(r)
	}
	e.buffer = nil
}

func (e *LogExporter) emit(r record) {
	attrs := []slog.Attr{
		slog.String("type", r.kind),
		slog.String("name", r.name),
		slog.Any("value", r.value),
	}
	if len(r.tags) > 0 {
		keys := make([]string, 0, len(r.tags))
		for k := range r.tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		tagAttrs := make([]any, 0, len(keys))
		for _, k := range keys {
			tagAttrs = append(tagAttrs, slog.String(k, r.tags[k]))
		}
		attrs = append(attrs, slog.Group("tags", tagAttrs...))
	}
	e.logger.LogAttrs(context.Background(), e.level, "metric", attrs...)
}

// Verify interface compliance.
var _ Exporter = (*LogExporter)(nil)
