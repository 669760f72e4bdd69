package metrics

import "time"

// Nop discards all metrics.
type Nop struct{}

// Counter does nothing.
func (Nop) Counter(string, int64, map[string]string) {}

// Gauge does nothing.
func (Nop) Gauge(string, float64, map[string]string) {}

// Timer does nothing.
func (Nop) Timer(string, time.Duration, map[string]string) {}

// Flush does nothing.
func (Nop) Flush() error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

var _ Exporter = Nop{}
