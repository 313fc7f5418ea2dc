// ABOUTME: Time-ordered snapshot buffer with render-time pruning
// ABOUTME: Anchors the server clock on first push and keeps only the live bracket
package snapshot

import (
	"log"
	"time"

	"github.com/harperreed/snapline/internal/clock"
)

// DefaultRenderDelay is how far behind the estimated server time rendering runs
const DefaultRenderDelay = 100 * time.Millisecond

// Config holds buffer configuration
type Config struct {
	// RenderDelay trades latency for smoothness (default: 100ms)
	RenderDelay time.Duration

	// Clock supplies local time (default: wall clock)
	Clock clock.Clock
}

// Buffer holds recent snapshots in timestamp order.
//
// A Buffer is owned by a single goroutine: Push and every query must not
// run concurrently. It performs no locking.
type Buffer struct {
	snapshots   []Snapshot
	anchor      clock.Anchor
	renderDelay time.Duration
	clock       clock.Clock

	pushed int64
	pruned int64
}

// NewBuffer creates an empty buffer
func NewBuffer(config Config) *Buffer {
	if config.RenderDelay <= 0 {
		config.RenderDelay = DefaultRenderDelay
	}
	if config.Clock == nil {
		config.Clock = clock.System{}
	}

	return &Buffer{
		renderDelay: config.RenderDelay,
		clock:       config.Clock,
	}
}

// Push appends a snapshot and prunes entries the render window has passed.
// The first push anchors the server clock to the local clock for the rest of
// the session. Timestamp regressions are accepted as-is.
func (b *Buffer) Push(s Snapshot) {
	if !b.anchor.IsSet() {
		b.anchor.Set(s.Timestamp, b.clock.Now())
		log.Printf("Buffer anchored: server=%dms, render delay=%v", s.Timestamp, b.renderDelay)
	}

	b.snapshots = append(b.snapshots, s)
	b.pushed++

	b.Prune()
}

// CurrentRenderTime returns the server time (milliseconds) that should be on
// screen now: firstServerTimestamp + elapsed local time - render delay.
// Returns 0 before the first push.
func (b *Buffer) CurrentRenderTime() float64 {
	if !b.anchor.IsSet() {
		return 0
	}
	delay := float64(b.renderDelay) / float64(time.Millisecond)
	return b.anchor.ServerTime(b.clock.Now()) - delay
}

// FindBracketIndex returns the index of the newest snapshot whose timestamp is
// at or before renderTime, or -1 if every buffered snapshot is newer.
func (b *Buffer) FindBracketIndex(renderTime float64) int {
	for i := len(b.snapshots) - 1; i >= 0; i-- {
		if float64(b.snapshots[i].Timestamp) <= renderTime {
			return i
		}
	}
	return -1
}

// Prune discards every snapshot older than the current bracket's lower bound.
// The bracket itself and everything newer are kept, so a buffer that has
// seen a push is never emptied.
func (b *Buffer) Prune() {
	i := b.FindBracketIndex(b.CurrentRenderTime())
	if i <= 0 {
		return
	}

	n := copy(b.snapshots, b.snapshots[i:])
	for j := n; j < len(b.snapshots); j++ {
		b.snapshots[j] = Snapshot{}
	}
	b.snapshots = b.snapshots[:n]
	b.pruned += int64(i)
}

// Len returns the number of buffered snapshots
func (b *Buffer) Len() int {
	return len(b.snapshots)
}

// At returns the snapshot at index i (0 is oldest)
func (b *Buffer) At(i int) Snapshot {
	return b.snapshots[i]
}

// Latest returns the newest snapshot
func (b *Buffer) Latest() (Snapshot, bool) {
	if len(b.snapshots) == 0 {
		return Snapshot{}, false
	}
	return b.snapshots[len(b.snapshots)-1], true
}

// Initialized reports whether a snapshot has ever been pushed
func (b *Buffer) Initialized() bool {
	return b.anchor.IsSet()
}

// RenderDelay returns the configured render delay
func (b *Buffer) RenderDelay() time.Duration {
	return b.renderDelay
}

// DueAt returns the local instant at which a server timestamp reaches the render time
func (b *Buffer) DueAt(serverMillis int64) time.Time {
	return b.anchor.LocalTime(serverMillis).Add(b.renderDelay)
}

// Pushed returns the total number of snapshots pushed
func (b *Buffer) Pushed() int64 {
	return b.pushed
}

// Pruned returns the total number of snapshots discarded by pruning
func (b *Buffer) Pruned() int64 {
	return b.pruned
}

// Reset tears the buffer down to its initial, unanchored state
func (b *Buffer) Reset() {
	b.snapshots = nil
	b.anchor = clock.Anchor{}
	b.pushed = 0
	b.pruned = 0
}
