package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRolling_EmptyWindowRateIsZero(t *testing.T) {
	w := NewRolling(10)
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0.0, w.ErrorRatePercent())
}

func TestRolling_PartialFill(t *testing.T) {
	w := NewRolling(200)
	w.Record(true)
	w.Record(false)
	w.Record(false)
	w.Record(false)

	// Rate is over records seen so far, not capacity.
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, 1, w.ErrorCount())
	assert.InDelta(t, 25.0, w.ErrorRatePercent(), 1e-9)
}

func TestRolling_EvictsOldestAtCapacity(t *testing.T) {
	w := NewRolling(3)
	w.Record(true)
	w.Record(false)
	w.Record(false)
	assert.Equal(t, 1, w.ErrorCount())

	// Fourth push evicts the error recorded first.
	w.Record(false)
	assert.Equal(t, 3, w.Len())
	assert.Equal(t, 0, w.ErrorCount())
	assert.Equal(t, 0.0, w.ErrorRatePercent())
}

func TestRolling_ThresholdBoundaryCounts(t *testing.T) {
	w := NewRolling(10)
	for i := 0; i < 2; i++ {
		w.Record(true)
	}
	for i := 0; i < 8; i++ {
		w.Record(false)
	}
	assert.InDelta(t, 20.0, w.ErrorRatePercent(), 1e-9)

	w = NewRolling(10)
	for i := 0; i < 3; i++ {
		w.Record(true)
	}
	for i := 0; i < 7; i++ {
		w.Record(false)
	}
	assert.InDelta(t, 30.0, w.ErrorRatePercent(), 1e-9)
}

// TestRolling_MatchesNaiveModel checks the window against a straightforward
// slice model across many pushes, including long wraparound sequences.
func TestRolling_MatchesNaiveModel(t *testing.T) {
	const capacity = 7
	w := NewRolling(capacity)

	var seen []bool
	// Deterministic but irregular error pattern.
	for i := 0; i < 200; i++ {
		isErr := i%3 == 0 || i%11 == 0
		w.Record(isErr)
		seen = append(seen, isErr)

		tail := seen
		if len(tail) > capacity {
			tail = tail[len(tail)-capacity:]
		}
		errs := 0
		for _, e := range tail {
			if e {
				errs++
			}
		}

		assert.Equal(t, len(tail), w.Len(), "push %d", i)
		assert.Equal(t, errs, w.ErrorCount(), "push %d", i)
		assert.InDelta(t, 100*float64(errs)/float64(len(tail)), w.ErrorRatePercent(), 1e-9, "push %d", i)
	}
}

func TestRolling_ClampsInvalidCapacity(t *testing.T) {
	w := NewRolling(0)
	w.Record(true)
	assert.Equal(t, 1, w.Cap())
	assert.InDelta(t, 100.0, w.ErrorRatePercent(), 1e-9)
}
