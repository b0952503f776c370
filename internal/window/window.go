// Package window maintains a fixed-capacity rolling view of recent outcomes.
//
// DESIGN: A ring buffer of booleans (true = server error) with an incrementally
// maintained error count. Pushing is O(1) and memory is bounded by the capacity
// regardless of how much traffic flows through. The rate is computed over
// however many records have been seen when the window isn't full yet; early in
// the stream a single error therefore reads as a high rate, which callers gate
// with a minimum-sample requirement.
package window

// Rolling is a FIFO window over the last Cap() outcomes.
// Not safe for concurrent use; owned by the single processing loop.
type Rolling struct {
	buf    []bool
	head   int // index of the oldest entry when full
	size   int
	errors int
}

// NewRolling creates a window holding up to capacity outcomes.
func NewRolling(capacity int) *Rolling {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling{buf: make([]bool, capacity)}
}

// Record pushes one outcome, evicting the oldest if the window is full.
func (w *Rolling) Record(isError bool) {
	if w.size == len(w.buf) {
		if w.buf[w.head] {
			w.errors--
		}
		w.buf[w.head] = isError
		w.head = (w.head + 1) % len(w.buf)
	} else {
		w.buf[(w.head+w.size)%len(w.buf)] = isError
		w.size++
	}
	if isError {
		w.errors++
	}
}

// Len returns how many outcomes the window currently holds.
func (w *Rolling) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *Rolling) Cap() int {
	return len(w.buf)
}

// ErrorCount returns the number of errors among the current contents.
func (w *Rolling) ErrorCount() int {
	return w.errors
}

// ErrorRatePercent returns 100 * errors / observed. Returns 0 when empty.
func (w *Rolling) ErrorRatePercent() float64 {
	if w.size == 0 {
		return 0
	}
	return 100 * float64(w.errors) / float64(w.size)
}
