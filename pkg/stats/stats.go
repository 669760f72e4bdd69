// Package stats reduces per-snapshot samples into summary statistics.
package stats

import "github.com/logflow/tablelog/internal/model"

// Mean returns the arithmetic mean; ok is false for an empty sequence.
func Mean(values []int) (mean float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum int64
	for _, v := range values {
		sum += int64(v)
	}
	return float64(sum) / float64(len(values)), true
}

// Max returns the maximum; ok is false for an empty sequence.
func Max(values []int) (max int, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	max = values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max, true
}

// Min returns the minimum; ok is false for an empty sequence.
func Min(values []int) (min int, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	min = values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min, true
}

// Summary describes one sample series.
type Summary struct {
	Count int
	Mean  float64
	Min   int
	Max   int
	// Valid is false when the series is empty and the other fields are meaningless.
	Valid bool
}

// Summarize computes a Summary of values.
func Summarize(values []int) Summary {
	mean, ok := Mean(values)
	if !ok {
		return Summary{}
	}
	min, _ := Min(values)
	max, _ := Max(values)
	return Summary{Count: len(values), Mean: mean, Min: min, Max: max, Valid: true}
}

// Samples holds the per-snapshot scalar series, one entry per snapshot.
type Samples struct {
	QueueGroups   []int
	KitchenOrders []int
	ActiveWaiters []int
}

// NewSamples preallocates for n snapshots.
func NewSamples(n int) *Samples {
	return &Samples{
		QueueGroups:   make([]int, 0, n),
		KitchenOrders: make([]int, 0, n),
		ActiveWaiters: make([]int, 0, n),
	}
}

// Add records one snapshot.
func (s *Samples) Add(snap *model.Snapshot) {
	s.QueueGroups = append(s.QueueGroups, len(snap.Waiting))
	s.KitchenOrders = append(s.KitchenOrders, snap.KitchenOrders)
	s.ActiveWaiters = append(s.ActiveWaiters, snap.ActiveWaiters)
}

// Len returns the number of recorded snapshots.
func (s *Samples) Len() int {
	return len(s.QueueGroups)
}

// Collect records every snapshot.
func Collect(snaps []model.Snapshot) *Samples {
	s := NewSamples(len(snaps))
	for i := range snaps {
		s.Add(&snaps[i])
	}
	return s
}
