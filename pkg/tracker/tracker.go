// Package tracker reconstructs per-group lifecycle events from a sequence of
// restaurant snapshots and accumulates person-weighted wait totals.
//
// A group moves through absent -> waiting -> seated -> completed. Each row is
// processed in three sub-passes, join then seat then complete, so a group that
// joins and is seated in the same row is still recognized. The tracker is a
// best-effort reconstruction: it never fails, and rows that do not produce a
// transition are simply skipped.
package tracker

import (
	"time"

	"github.com/logflow/tablelog/internal/model"
)

// DefaultPartySize weights a meal entry opened for a group whose size was never
// observed, i.e. one that was seated before the log started.
const DefaultPartySize = 1

// Totals holds the weighted sums accumulated over a pass.
type Totals struct {
	WaitSeconds float64
	WaitPersons int
	MealSeconds float64
	MealPersons int
}

// AverageWait returns WaitSeconds/WaitPersons; ok is false when nobody was seated.
func (t Totals) AverageWait() (avg float64, ok bool) {
	if t.WaitPersons == 0 {
		return 0, false
	}
	return t.WaitSeconds / float64(t.WaitPersons), true
}

// AverageMeal returns MealSeconds/MealPersons; ok is false when no meal completed.
func (t Totals) AverageMeal() (avg float64, ok bool) {
	if t.MealPersons == 0 {
		return 0, false
	}
	return t.MealSeconds / float64(t.MealPersons), true
}

// Observer receives each reconstructed event.
type Observer func(model.Event)

// Option configures a Tracker.
type Option func(*Tracker)

// WithObserver registers an event observer.
func WithObserver(fn Observer) Option {
	return func(t *Tracker) {
		t.observer = fn
	}
}

type pending struct {
	since time.Time
	size  int
}

// Tracker is the lifecycle state machine. It is not safe for concurrent use.
type Tracker struct {
	waiting map[int]pending
	eating  map[int]pending

	// everSeated marks groups whose first seated observation was handled.
	everSeated map[int]struct{}

	totals   Totals
	observer Observer
	rows     int
}

// New creates an empty tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		waiting:    make(map[int]pending),
		eating:     make(map[int]pending),
		everSeated: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process runs a full pass over snapshots and returns the totals.
func Process(snapshots []model.Snapshot, opts ...Option) Totals {
	t := New(opts...)
	for i := range snapshots {
		t.Observe(&snapshots[i])
	}
	return t.Totals()
}

// Observe applies one snapshot.
func (t *Tracker) Observe(s *model.Snapshot) {
	t.rows++
	t.join(s)
	t.seat(s)
	t.complete(s)
}

// Totals returns the totals accumulated so far.
func (t *Tracker) Totals() Totals {
	return t.totals
}

// Rows returns the number of snapshots observed.
func (t *Tracker) Rows() int {
	return t.rows
}

// Pending returns the number of open wait and meal entries.
func (t *Tracker) Pending() (waiting, eating int) {
	return len(t.waiting), len(t.eating)
}

// join opens a wait entry for every newly queued group. First-seen time wins.
func (t *Tracker) join(s *model.Snapshot) {
	for _, e := range s.Waiting {
		if _, ok := t.waiting[e.GroupID]; ok {
			continue
		}
		t.waiting[e.GroupID] = pending{since: s.Timestamp, size: e.PartySize}
		t.emit(model.Event{
			Kind:      model.EventJoined,
			GroupID:   e.GroupID,
			PartySize: e.PartySize,
			At:        s.Timestamp,
			Row:       s.Row,
		})
	}
}

// seat closes wait entries and opens meal entries.
func (t *Tracker) seat(s *model.Snapshot) {
	for _, id := range s.Seated {
		if w, ok := t.waiting[id]; ok {
			delete(t.waiting, id)
			elapsed := s.Timestamp.Sub(w.since)
			t.totals.WaitSeconds += elapsed.Seconds() * float64(w.size)
			t.totals.WaitPersons += w.size
			t.eating[id] = pending{since: s.Timestamp, size: w.size}
			t.everSeated[id] = struct{}{}
			t.emit(model.Event{
				Kind:      model.EventSeated,
				GroupID:   id,
				PartySize: w.size,
				At:        s.Timestamp,
				Elapsed:   elapsed,
				Row:       s.Row,
				Counted:   true,
			})
			continue
		}

		// Seated without a recorded join: the group queued before the log
		// started. No wait contribution, but the meal is still tracked.
		if _, seen := t.everSeated[id]; seen {
			continue
		}
		t.everSeated[id] = struct{}{}
		t.eating[id] = pending{since: s.Timestamp, size: DefaultPartySize}
		t.emit(model.Event{
			Kind:      model.EventSeated,
			GroupID:   id,
			PartySize: DefaultPartySize,
			At:        s.Timestamp,
			Row:       s.Row,
		})
	}
}

// complete closes meal entries.
func (t *Tracker) complete(s *model.Snapshot) {
	for _, id := range s.Completed {
		m, ok := t.eating[id]
		if !ok {
			continue
		}
		delete(t.eating, id)
		elapsed := s.Timestamp.Sub(m.since)
		t.totals.MealSeconds += elapsed.Seconds() * float64(m.size)
		t.totals.MealPersons += m.size
		t.emit(model.Event{
			Kind:      model.EventCompleted,
			GroupID:   id,
			PartySize: m.size,
			At:        s.Timestamp,
			Elapsed:   elapsed,
			Row:       s.Row,
			Counted:   true,
		})
	}
}

func (t *Tracker) emit(e model.Event) {
	if t.observer != nil {
		t.observer(e)
	}
}
