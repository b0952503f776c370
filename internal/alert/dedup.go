package alert

import "time"

// Deduper suppresses repeat alerts of the same kind within a cooldown interval.
//
// The key is the kind alone: a blue->green->blue flap is still one failover
// story, and an error rate oscillating around the threshold is one incident,
// so neither re-fires per change or per sample. A kind that has never fired is
// never suppressed.
//
// ShouldFire and MarkFired are expected to be called back to back by the
// processing loop; the type is not safe for concurrent use.
type Deduper struct {
	cooldown  time.Duration
	lastFired map[Kind]time.Time
}

// NewDeduper creates a gate with the given minimum spacing between repeat
// alerts of one kind.
func NewDeduper(cooldown time.Duration) *Deduper {
	return &Deduper{
		cooldown:  cooldown,
		lastFired: make(map[Kind]time.Time),
	}
}

// ShouldFire reports whether an alert of this kind is outside its cooldown.
func (d *Deduper) ShouldFire(kind Kind, now time.Time) bool {
	last, ok := d.lastFired[kind]
	if !ok {
		return true
	}
	return now.Sub(last) >= d.cooldown
}

// MarkFired records the firing decision. Callers invoke it immediately after a
// true ShouldFire, before delivery: cooldown is spent at decision time, so an
// unreachable webhook cannot turn into a retry storm.
func (d *Deduper) MarkFired(kind Kind, now time.Time) {
	d.lastFired[kind] = now
}

// LastFired returns when this kind last fired, if it ever has.
func (d *Deduper) LastFired(kind Kind) (time.Time, bool) {
	last, ok := d.lastFired[kind]
	return last, ok
}
