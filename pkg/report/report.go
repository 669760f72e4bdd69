// Package report combines lifecycle totals and per-snapshot samples into the
// six labelled restaurant statistics.
package report

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/logflow/tablelog/pkg/stats"
	"github.com/logflow/tablelog/pkg/tracker"
)

// Statistic labels, in report order.
const (
	LabelAvgQueue   = "Average queue size (groups)"
	LabelAvgWait    = "Average time a person waited in queue (seconds)"
	LabelAvgMeal    = "Average time a person waited for a meal (seconds)"
	LabelPeakQueue  = "Peak queue size (groups)"
	LabelAvgKitchen = "Average kitchen queue size (orders)"
	LabelAvgWaiters = "Average active waiters"
)

// Labels lists the statistic labels in report order.
var Labels = []string{
	LabelAvgQueue,
	LabelAvgWait,
	LabelAvgMeal,
	LabelPeakQueue,
	LabelAvgKitchen,
	LabelAvgWaiters,
}

// NotAvailable is printed for undefined statistics.
const NotAvailable = "not available"

// Value is a numeric statistic that may be undefined.
type Value struct {
	Number  float64
	Integer bool
	Valid   bool
}

// Float creates a decimal value rounded to two places.
func Float(v float64, ok bool) Value {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{Number: round2(v), Valid: true}
}

// Int creates an integer value.
func Int(v int, ok bool) Value {
	if !ok {
		return Value{}
	}
	return Value{Number: float64(v), Integer: true, Valid: true}
}

// String formats the value; undefined values print NotAvailable.
func (v Value) String() string {
	if !v.Valid {
		return NotAvailable
	}
	if v.Integer {
		return strconv.FormatInt(int64(v.Number), 10)
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MarshalJSON writes a number, or the NotAvailable string.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return json.Marshal(NotAvailable)
	}
	if v.Integer {
		return []byte(strconv.FormatInt(int64(v.Number), 10)), nil
	}
	return []byte(strconv.FormatFloat(v.Number, 'f', -1, 64)), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Entry is one labelled statistic.
type Entry struct {
	Label string
	Value Value
}

// Meta describes the run that produced a report. It never affects the statistics.
type Meta struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	Source      string    `json:"source" yaml:"source"`
	Snapshots   int       `json:"snapshots" yaml:"snapshots"`
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
}

// Report is the ordered set of statistics.
type Report struct {
	Meta    Meta
	Entries []Entry
}

// Build derives the report from tracker totals and per-snapshot samples.
func Build(totals tracker.Totals, samples *stats.Samples) *Report {
	if samples == nil {
		samples = &stats.Samples{}
	}

	avgQueue, okQueue := stats.Mean(samples.QueueGroups)
	avgWait, okWait := totals.AverageWait()
	avgMeal, okMeal := totals.AverageMeal()
	peak, okPeak := stats.Max(samples.QueueGroups)
	avgKitchen, okKitchen := stats.Mean(samples.KitchenOrders)
	avgWaiters, okWaiters := stats.Mean(samples.ActiveWaiters)

	return &Report{
		Meta: Meta{Snapshots: samples.Len()},
		Entries: []Entry{
			{LabelAvgQueue, Float(avgQueue, okQueue)},
			{LabelAvgWait, Float(avgWait, okWait)},
			{LabelAvgMeal, Float(avgMeal, okMeal)},
			{LabelPeakQueue, Int(peak, okPeak)},
			{LabelAvgKitchen, Float(avgKitchen, okKitchen)},
			{LabelAvgWaiters, Float(avgWaiters, okWaiters)},
		},
	}
}

// Get returns the value for label.
func (r *Report) Get(label string) (Value, bool) {
	for _, e := range r.Entries {
		if e.Label == label {
			return e.Value, true
		}
	}
	return Value{}, false
}
