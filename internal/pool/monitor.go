// Package pool tracks which backend pool is currently serving traffic.
//
// DESIGN: A two-state machine (unknown -> known) that reports transitions, not
// levels. The first pool ever observed establishes the baseline and is never a
// failover; after that, exactly one Transition is reported per observed change,
// no matter how many requests the new pool serves. Records with no pool (the
// proxy synthesized the response) leave the state untouched.
package pool

import "time"

// Transition describes one observed change of serving pool.
type Transition struct {
	From string
	To   string
	At   time.Time
}

// State is a read-only snapshot of the monitor.
type State struct {
	// Current is the serving pool, or "" while still unknown.
	Current          string
	LastTransitionAt time.Time
}

// Monitor detects serving-pool changes from the record stream.
// Not safe for concurrent use; owned by the single processing loop.
type Monitor struct {
	current        string
	lastTransition time.Time
}

// NewMonitor creates a monitor in the unknown state.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Observe feeds one record's serving pool. It returns a Transition and true
// only when the serving pool changed from a previously known pool.
func (m *Monitor) Observe(poolID string, at time.Time) (Transition, bool) {
	if poolID == "" {
		return Transition{}, false
	}
	if m.current == "" {
		m.current = poolID
		return Transition{}, false
	}
	if poolID == m.current {
		return Transition{}, false
	}

	tr := Transition{From: m.current, To: poolID, At: at}
	m.current = poolID
	m.lastTransition = at
	return tr, true
}

// Current returns the serving pool, or "" while unknown.
func (m *Monitor) Current() string {
	return m.current
}

// State returns a snapshot of the monitor.
func (m *Monitor) State() State {
	return State{Current: m.current, LastTransitionAt: m.lastTransition}
}
