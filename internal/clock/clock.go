// ABOUTME: Local clock sources and server-to-local time anchoring
// ABOUTME: Maps the server's millisecond clock onto the local wall clock
package clock

import (
	"sync"
	"time"
)

// Clock provides the current local time
type Clock interface {
	Now() time.Time
}

// System is the wall clock
type System struct{}

// Now returns time.Now()
func (System) Now() time.Time {
	return time.Now()
}

// Manual is a clock that only moves when told to. Used for deterministic timing.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual creates a manual clock starting at start
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set jumps the clock to t
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Anchor ties one server timestamp (milliseconds) to the local instant it was observed.
// The zero value is unset.
type Anchor struct {
	serverMillis int64
	local        time.Time
	set          bool
}

// Set records the anchor pair. Later calls overwrite it.
func (a *Anchor) Set(serverMillis int64, local time.Time) {
	a.serverMillis = serverMillis
	a.local = local
	a.set = true
}

// IsSet reports whether the anchor has been recorded
func (a *Anchor) IsSet() bool {
	return a.set
}

// ServerMillis returns the anchored server timestamp
func (a *Anchor) ServerMillis() int64 {
	return a.serverMillis
}

// ServerTime converts a local instant to server time in (fractional) milliseconds:
// serverMillis + (local - anchorLocal)
func (a *Anchor) ServerTime(local time.Time) float64 {
	elapsed := float64(local.Sub(a.local)) / float64(time.Millisecond)
	return float64(a.serverMillis) + elapsed
}

// LocalTime converts a server timestamp (milliseconds) to the local instant it maps to
func (a *Anchor) LocalTime(serverMillis int64) time.Time {
	return a.local.Add(time.Duration(serverMillis-a.serverMillis) * time.Millisecond)
}
