// Package metrics defines the metrics exporter used by the pipeline and its
// default implementations.
package metrics

import "time"

// Exporter exports metrics to a monitoring backend.
type Exporter interface {
	// Counter increments a counter metric.
	Counter(name string, value int64, tags map[string]string)

	// Gauge sets a gauge metric to the specified value.
	Gauge(name string, value float64, tags map[string]string)

	// Timer records a duration.
	Timer(name string, duration time.Duration, tags map[string]string)

	// Flush sends any buffered metrics to the backend.
	Flush() error

	// Close releases resources.
	Close() error
}

// Metric names.
const (
	MetricRowsTotal      = "tablelog.rows.total"
	MetricEventsTotal    = "tablelog.events.total"
	MetricPendingWaiting = "tablelog.pending.waiting"
	MetricPendingEating  = "tablelog.pending.eating"
	MetricLoadDuration   = "tablelog.load.duration"
	MetricTrackDuration  = "tablelog.track.duration"
	MetricRunDuration    = "tablelog.run.duration"
	MetricCacheHits      = "tablelog.cache.hits"
	MetricCacheMisses    = "tablelog.cache.misses"
	MetricExportsWritten = "tablelog.exports.written"
	MetricReportPrefix   = "tablelog.report."
	MetricRunErrors      = "tablelog.run.errors"
)

// Tag names.
const (
	TagFormat = "format"
	TagSource = "source"
	TagKind   = "kind"
	TagEngine = "engine"
)
