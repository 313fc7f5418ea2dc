// ABOUTME: Render tick sources for the session loop
// ABOUTME: Wall-clock ticker for real runs, manual ticks for tests
package session

import (
	"time"
)

// DefaultFPS is the render rate when none is configured
const DefaultFPS = 60

// Scheduler decides when the session renders a frame
type Scheduler interface {
	Next() <-chan time.Time
	Stop()
}

// TickerScheduler ticks at a fixed frame rate
type TickerScheduler struct {
	ticker *time.Ticker
}

// NewTickerScheduler creates a scheduler firing fps times per second
func NewTickerScheduler(fps int) *TickerScheduler {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &TickerScheduler{ticker: time.NewTicker(time.Second / time.Duration(fps))}
}

// Next returns the tick channel
func (s *TickerScheduler) Next() <-chan time.Time {
	return s.ticker.C
}

// Stop stops the ticker
func (s *TickerScheduler) Stop() {
	s.ticker.Stop()
}

// ManualScheduler only ticks when Tick is called
type ManualScheduler struct {
	ticks chan time.Time
}

// NewManualScheduler creates a scheduler driven by Tick
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{ticks: make(chan time.Time)}
}

// Tick blocks until the session loop takes the tick
func (s *ManualScheduler) Tick(now time.Time) {
	s.ticks <- now
}

// Next returns the tick channel
func (s *ManualScheduler) Next() <-chan time.Time {
	return s.ticks
}

// Stop is a no-op; pending Tick calls are not released
func (s *ManualScheduler) Stop() {}
