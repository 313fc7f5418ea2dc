// ABOUTME: Client session that owns the snapshot buffer and drives rendering
// ABOUTME: Single goroutine loop over incoming snapshots and render ticks
package session

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/snapline/internal/clock"
	"github.com/harperreed/snapline/internal/interp"
	"github.com/harperreed/snapline/internal/snapshot"
)

// ErrSourceClosed is returned by Run when the snapshot source shuts down
var ErrSourceClosed = errors.New("snapshot source closed")

// Renderer draws interpolated frames
type Renderer interface {
	Render(frame *interp.Frame)
}

// Config holds session configuration
type Config struct {
	RenderDelay time.Duration
	FPS         int
	Clock       clock.Clock
	Renderer    Renderer
	Scheduler   Scheduler
}

// Stats is a point-in-time copy of session counters
type Stats struct {
	Pushed      int64
	Pruned      int64
	Frames      int64
	Skipped     int64 // Ticks with nothing to draw
	Stalled     int64 // Frames that held the newest snapshot
	BufferDepth int
	Lead        time.Duration // Until the newest snapshot reaches the screen
	RenderTime  float64
	Phase       interp.Phase
	RenderDelay time.Duration
}

// Session couples a buffer with an interpolator and a renderer.
//
// Buffer and interpolator are touched only from the goroutine calling Push,
// Frame or Run. Stats may be read from anywhere.
type Session struct {
	id        string
	clock     clock.Clock
	buf       *snapshot.Buffer
	ip        *interp.Interpolator
	renderer  Renderer
	scheduler Scheduler

	frames  int64
	skipped int64
	stalled int64
	phase   interp.Phase

	stats atomic.Pointer[Stats]
}

// New creates a session
func New(config Config) *Session {
	if config.Clock == nil {
		config.Clock = clock.System{}
	}
	if config.Scheduler == nil {
		config.Scheduler = NewTickerScheduler(config.FPS)
	}

	buf := snapshot.NewBuffer(snapshot.Config{
		RenderDelay: config.RenderDelay,
		Clock:       config.Clock,
	})

	s := &Session{
		id:        uuid.New().String(),
		clock:     config.Clock,
		buf:       buf,
		ip:        interp.New(buf),
		renderer:  config.Renderer,
		scheduler: config.Scheduler,
	}
	s.publish()

	return s
}

// ID identifies the session in logs
func (s *Session) ID() string {
	return s.id
}

// Push adds a received snapshot
func (s *Session) Push(snap snapshot.Snapshot) {
	s.buf.Push(snap)
	s.publish()
}

// Frame samples the buffer at the current render time and updates counters.
// Returns nil before the first snapshot.
func (s *Session) Frame() *interp.Frame {
	frame := s.ip.Sample()

	phase := interp.PhaseUninitialized
	if frame == nil {
		s.skipped++
	} else {
		s.frames++
		phase = frame.Phase
		if phase == interp.PhaseStale {
			s.stalled++
		}
	}

	if phase != s.phase {
		log.Printf("Session %s: %v -> %v", s.id[:8], s.phase, phase)
		s.phase = phase
	}

	s.publish()
	return frame
}

// Run consumes snapshots and renders on every scheduler tick until ctx is
// cancelled or done is closed
func (s *Session) Run(ctx context.Context, snapshots <-chan snapshot.Snapshot, done <-chan struct{}) error {
	defer s.scheduler.Stop()

	log.Printf("Session %s started (render delay %v)", s.id[:8], s.buf.RenderDelay())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-done:
			return ErrSourceClosed

		case snap, ok := <-snapshots:
			if !ok {
				return ErrSourceClosed
			}
			s.Push(snap)

		case <-s.scheduler.Next():
			frame := s.Frame()
			if frame != nil && s.renderer != nil {
				s.renderer.Render(frame)
			}
		}
	}
}

// Stats returns the latest published counters
func (s *Session) Stats() Stats {
	return *s.stats.Load()
}

func (s *Session) publish() {
	st := &Stats{
		Pushed:      s.buf.Pushed(),
		Pruned:      s.buf.Pruned(),
		Frames:      s.frames,
		Skipped:     s.skipped,
		Stalled:     s.stalled,
		BufferDepth: s.buf.Len(),
		RenderTime:  s.buf.CurrentRenderTime(),
		Phase:       s.phase,
		RenderDelay: s.buf.RenderDelay(),
	}
	if latest, ok := s.buf.Latest(); ok {
		st.Lead = s.buf.DueAt(latest.Timestamp).Sub(s.clock.Now())
	}
	s.stats.Store(st)
}
