package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func TestMonitor_FirstObservationIsBaseline(t *testing.T) {
	m := NewMonitor()
	assert.Equal(t, "", m.Current())

	_, changed := m.Observe("blue", t0)
	assert.False(t, changed)
	assert.Equal(t, "blue", m.Current())
}

func TestMonitor_SamePoolNoTransition(t *testing.T) {
	m := NewMonitor()
	m.Observe("blue", t0)

	for i := 0; i < 50; i++ {
		_, changed := m.Observe("blue", t0.Add(time.Duration(i)*time.Second))
		assert.False(t, changed)
	}
}

func TestMonitor_PoolChangeReportsTransitionOnce(t *testing.T) {
	m := NewMonitor()
	m.Observe("blue", t0)

	tr, changed := m.Observe("green", t0.Add(time.Minute))
	assert.True(t, changed)
	assert.Equal(t, "blue", tr.From)
	assert.Equal(t, "green", tr.To)
	assert.Equal(t, t0.Add(time.Minute), tr.At)

	// Subsequent requests served by green are not transitions.
	_, changed = m.Observe("green", t0.Add(2*time.Minute))
	assert.False(t, changed)
	assert.Equal(t, "green", m.Current())
}

func TestMonitor_FlapReportsEachChange(t *testing.T) {
	m := NewMonitor()
	m.Observe("blue", t0)

	changes := 0
	for i, p := range []string{"green", "blue", "green", "blue"} {
		if _, changed := m.Observe(p, t0.Add(time.Duration(i)*time.Second)); changed {
			changes++
		}
	}
	// The monitor reports every change; dedup is the alert layer's job.
	assert.Equal(t, 4, changes)
}

func TestMonitor_EmptyPoolIgnored(t *testing.T) {
	m := NewMonitor()

	_, changed := m.Observe("", t0)
	assert.False(t, changed)
	assert.Equal(t, "", m.Current())

	m.Observe("blue", t0)
	_, changed = m.Observe("", t0.Add(time.Second))
	assert.False(t, changed)
	assert.Equal(t, "blue", m.Current())
}

func TestMonitor_StateSnapshot(t *testing.T) {
	m := NewMonitor()
	m.Observe("blue", t0)
	m.Observe("green", t0.Add(time.Minute))

	st := m.State()
	assert.Equal(t, "green", st.Current)
	assert.Equal(t, t0.Add(time.Minute), st.LastTransitionAt)
}
