package dash

import (
	"sync"
	"time"
)

// The button sends two ARP packets about a second apart for each press, stays
// awake for roughly ten seconds and repeats the same pair 36 seconds after
// the press. The window has to sit between those two gaps.
const DefaultWindow = 25 * time.Second

// ShouldAccept decides whether a signal at now starts a new press. The zero
// time for last means no press has been accepted yet.
func ShouldAccept(now, last time.Time, window time.Duration) bool {
	return last.IsZero() || now.Sub(last) > window
}

// Debouncer holds the time of the last accepted press.
type Debouncer struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Accept applies ShouldAccept and records now when it accepts. Both happen
// under one lock, so concurrent callers cannot both accept the same press.
func (d *Debouncer) Accept(now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !ShouldAccept(now, d.last, d.window) {
		return false
	}
	d.last = now
	return true
}

// Last returns the time of the last accepted press, or the zero time.
func (d *Debouncer) Last() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

func (d *Debouncer) Window() time.Duration {
	return d.window
}
