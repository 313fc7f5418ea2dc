// ABOUTME: Tests for the session loop
// ABOUTME: Drives pushes and render ticks deterministically with manual clock and scheduler
package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harperreed/snapline/internal/clock"
	"github.com/harperreed/snapline/internal/interp"
	"github.com/harperreed/snapline/internal/snapshot"
)

type recordingRenderer struct {
	frames chan *interp.Frame
}

func (r *recordingRenderer) Render(frame *interp.Frame) {
	r.frames <- frame
}

func snap(ts int64, x float64) snapshot.Snapshot {
	return snapshot.Snapshot{
		Timestamp: ts,
		Player:    snapshot.EntityState{ID: "me", Position: snapshot.Vec2{X: x}},
	}
}

func TestFrameBeforeFirstPush(t *testing.T) {
	s := New(Config{Clock: clock.NewManual(time.Unix(0, 0)), Scheduler: NewManualScheduler()})

	if f := s.Frame(); f != nil {
		t.Errorf("expected nil frame, got %+v", f)
	}

	st := s.Stats()
	if st.Skipped != 1 || st.Frames != 0 {
		t.Errorf("expected 1 skipped and 0 frames, got %+v", st)
	}
	if st.Phase != interp.PhaseUninitialized {
		t.Errorf("expected uninitialized phase, got %v", st.Phase)
	}
	if st.RenderDelay != snapshot.DefaultRenderDelay {
		t.Errorf("expected default render delay, got %v", st.RenderDelay)
	}
}

func TestPushAndFrameStats(t *testing.T) {
	c := clock.NewManual(time.Unix(100, 0))
	s := New(Config{Clock: c, RenderDelay: 100 * time.Millisecond, Scheduler: NewManualScheduler()})

	s.Push(snap(1000, 0))
	s.Push(snap(1100, 10))

	st := s.Stats()
	if st.Pushed != 2 || st.BufferDepth != 2 {
		t.Errorf("expected 2 pushed and depth 2, got %+v", st)
	}
	// Newest snapshot (1100) is shown 100ms of server time + 100ms delay after the anchor
	if st.Lead != 200*time.Millisecond {
		t.Errorf("expected lead 200ms, got %v", st.Lead)
	}

	// Buffering: render time 900
	f := s.Frame()
	if f == nil || f.Phase != interp.PhaseBuffering {
		t.Fatalf("expected buffering frame, got %+v", f)
	}

	c.Advance(150 * time.Millisecond)
	f = s.Frame()
	if f == nil || f.Phase != interp.PhaseSteady || f.Player.Position.X != 5 {
		t.Fatalf("expected steady frame at x=5, got %+v", f)
	}

	c.Advance(time.Second)
	f = s.Frame()
	if f == nil || f.Phase != interp.PhaseStale {
		t.Fatalf("expected stale frame, got %+v", f)
	}

	st = s.Stats()
	if st.Frames != 3 || st.Stalled != 1 || st.Skipped != 0 {
		t.Errorf("expected 3 frames with 1 stalled, got %+v", st)
	}
	if st.Phase != interp.PhaseStale {
		t.Errorf("expected stale phase, got %v", st.Phase)
	}
}

func TestRunRendersOnTicks(t *testing.T) {
	c := clock.NewManual(time.Unix(100, 0))
	sched := NewManualScheduler()
	r := &recordingRenderer{frames: make(chan *interp.Frame, 10)}
	s := New(Config{Clock: c, Scheduler: sched, Renderer: r})

	snapshots := make(chan snapshot.Snapshot)
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx, snapshots, done)
	}()

	// Nothing buffered yet: tick renders nothing
	sched.Tick(c.Now())

	snapshots <- snap(5000, 0)
	snapshots <- snap(5100, 20)

	c.Advance(125 * time.Millisecond)
	sched.Tick(c.Now())

	select {
	case f := <-r.frames:
		if f.Phase != interp.PhaseSteady || f.Player.Position.X != 5 {
			t.Errorf("expected steady frame at x=5, got %+v", f)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a rendered frame")
	}

	if len(r.frames) != 0 {
		t.Errorf("expected exactly one rendered frame, got %d extra", len(r.frames))
	}

	close(done)

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSourceClosed) {
			t.Errorf("expected ErrSourceClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after source closed")
	}

	st := s.Stats()
	if st.Skipped != 1 || st.Frames != 1 || st.Pushed != 2 {
		t.Errorf("unexpected stats: %+v", st)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Config{Scheduler: NewManualScheduler()})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Run(ctx, make(chan snapshot.Snapshot), nil)
	}()

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunStopsWhenSnapshotsClosed(t *testing.T) {
	s := New(Config{Scheduler: NewManualScheduler()})

	snapshots := make(chan snapshot.Snapshot)
	close(snapshots)

	if err := s.Run(context.Background(), snapshots, nil); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("expected ErrSourceClosed, got %v", err)
	}
}

func TestSessionIDsAreUnique(t *testing.T) {
	a := New(Config{Scheduler: NewManualScheduler()})
	b := New(Config{Scheduler: NewManualScheduler()})

	if a.ID() == b.ID() {
		t.Error("expected distinct session ids")
	}
	if len(a.ID()) != 36 {
		t.Errorf("expected uuid session id, got %q", a.ID())
	}
}

func TestTickerScheduler(t *testing.T) {
	s := NewTickerScheduler(100)
	defer s.Stop()

	select {
	case <-s.Next():
	case <-time.After(time.Second):
		t.Fatal("expected a tick within a second at 100fps")
	}
}

func TestLogRendererCounts(t *testing.T) {
	r := &LogRenderer{Every: 2}
	f := &interp.Frame{Phase: interp.PhaseSteady}

	for i := 0; i < 5; i++ {
		r.Render(f)
	}

	if r.Count() != 5 {
		t.Errorf("expected 5 frames counted, got %d", r.Count())
	}
}
