// ABOUTME: Tests for clock sources and anchoring
// ABOUTME: Tests manual clock movement and server/local conversion
package clock

import (
	"testing"
	"time"
)

func TestManualClock(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}

	c.Advance(250 * time.Millisecond)
	if got := c.Now().Sub(start); got != 250*time.Millisecond {
		t.Errorf("expected 250ms elapsed, got %v", got)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("expected clock reset to start, got %v", c.Now())
	}
}

func TestAnchorUnsetByDefault(t *testing.T) {
	var a Anchor
	if a.IsSet() {
		t.Error("expected zero anchor to be unset")
	}
}

func TestAnchorServerTime(t *testing.T) {
	local := time.Unix(50, 0)

	var a Anchor
	a.Set(1000, local)

	if !a.IsSet() {
		t.Fatal("expected anchor to be set")
	}

	if got := a.ServerTime(local); got != 1000 {
		t.Errorf("expected 1000 at anchor instant, got %v", got)
	}

	if got := a.ServerTime(local.Add(1500 * time.Microsecond)); got != 1001.5 {
		t.Errorf("expected 1001.5, got %v", got)
	}

	// Local instants before the anchor map to earlier server time
	if got := a.ServerTime(local.Add(-40 * time.Millisecond)); got != 960 {
		t.Errorf("expected 960, got %v", got)
	}
}

func TestAnchorLocalTime(t *testing.T) {
	local := time.Unix(50, 0)

	var a Anchor
	a.Set(1000, local)

	want := local.Add(100 * time.Millisecond)
	if got := a.LocalTime(1100); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSystemClockMoves(t *testing.T) {
	var c System
	a := c.Now()
	b := c.Now()
	if b.Before(a) {
		t.Error("expected system clock to be non-decreasing")
	}
}
