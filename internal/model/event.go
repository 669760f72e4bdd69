// Package model defines core data structures for tablelog.
package model

import "time"

// QueueEntry is one group waiting for a table.
type QueueEntry struct {
	GroupID   int
	PartySize int
}

// OrderToken is one dish in the kitchen or completed-orders register.
type OrderToken struct {
	Item    string
	GroupID int
}

// Snapshot is one row of the restaurant log: the full observed state at Timestamp.
type Snapshot struct {
	// Row is the 1-based position among retained data rows. Blank rows and
	// repeated header rows are not counted.
	Row int

	// Timestamp is expected to be non-decreasing across a log; this is not enforced.
	Timestamp time.Time

	// Waiting holds the groups in the waiting queue.
	Waiting []QueueEntry

	// Seated holds the ids of groups occupying tables.
	Seated []int

	// Completed holds the ids of groups with a completed order.
	Completed []int

	KitchenOrders int
	ActiveWaiters int

	// Ingredients is the stock level per ingredient, nil when the column is absent.
	Ingredients map[string]int
}

// EventKind identifies a lifecycle transition of a group.
type EventKind uint8

const (
	EventJoined EventKind = iota
	EventSeated
	EventCompleted
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventJoined:
		return "joined"
	case EventSeated:
		return "seated"
	case EventCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Event is a reconstructed lifecycle transition.
type Event struct {
	Kind      EventKind
	GroupID   int
	PartySize int
	At        time.Time

	// Elapsed is the time spent in the previous state. Zero for joined events
	// and for seated events without a recorded queue join.
	Elapsed time.Duration

	Row int

	// Counted reports whether the transition contributed to the weighted totals.
	Counted bool
}
