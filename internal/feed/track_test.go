// ABOUTME: Tests for track loading and generation
// ABOUTME: Tests rebasing, validation, determinism and viewer-relative snapshots
package feed

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/harperreed/snapline/internal/protocol"
	"github.com/harperreed/snapline/internal/snapshot"
)

const recording = `
{"type":"update","timestamp":5000,"player":{"id":"a","name":"ann","position":{"x":1,"y":1},"angle":0},"otherPlayers":[{"id":"b","name":"ben","position":{"x":9,"y":9},"angle":1}]}

{"type":"update","timestamp":5040,"player":{"id":"a","name":"ann","position":{"x":2,"y":1},"angle":0},"otherPlayers":[{"id":"b","name":"ben","position":{"x":8,"y":9},"angle":1}]}
{"type":"update","timestamp":5100,"player":{"id":"a","name":"ann","position":{"x":3,"y":1},"angle":0},"otherPlayers":[]}
`

func TestLoadTrack(t *testing.T) {
	track, err := LoadTrack(strings.NewReader(recording))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(track.Frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(track.Frames))
	}

	wantAt := []int64{0, 40, 100}
	for i, at := range wantAt {
		if track.Frames[i].At != at {
			t.Errorf("frame %d: expected at=%d, got %d", i, at, track.Frames[i].At)
		}
	}

	if len(track.Frames[0].Entities) != 2 || track.Frames[0].Entities[1].ID != "b" {
		t.Errorf("expected player then other players as entities, got %+v", track.Frames[0].Entities)
	}

	if track.Interval != 50*time.Millisecond {
		t.Errorf("expected loop gap of the average spacing (50ms), got %v", track.Interval)
	}
	if track.Period() != 150 {
		t.Errorf("expected period 150ms, got %d", track.Period())
	}
}

func TestLoadTrackErrors(t *testing.T) {
	if _, err := LoadTrack(strings.NewReader("\n\n")); !errors.Is(err, ErrEmptyTrack) {
		t.Errorf("expected ErrEmptyTrack, got %v", err)
	}

	_, err := LoadTrack(strings.NewReader(`{"type":"update","player":{"id":"a"}}`))
	if !errors.Is(err, protocol.ErrMissingTimestamp) {
		t.Errorf("expected ErrMissingTimestamp, got %v", err)
	}

	backwards := `{"type":"update","timestamp":10,"player":{"id":"a"}}
{"type":"update","timestamp":5,"player":{"id":"a"}}`
	if _, err := LoadTrack(strings.NewReader(backwards)); err == nil {
		t.Error("expected error for timestamps going backwards")
	}
}

func TestGenerateTrackDeterministic(t *testing.T) {
	config := GenerateConfig{Bots: 3, Frames: 50, Interval: 20 * time.Millisecond}

	a := GenerateTrack(config)
	b := GenerateTrack(config)

	if len(a.Frames) != 50 {
		t.Fatalf("expected 50 frames, got %d", len(a.Frames))
	}

	for i := range a.Frames {
		if a.Frames[i].At != int64(i)*20 {
			t.Fatalf("frame %d: expected at=%d, got %d", i, i*20, a.Frames[i].At)
		}
		for j := range a.Frames[i].Entities {
			if a.Frames[i].Entities[j] != b.Frames[i].Entities[j] {
				t.Fatalf("frame %d entity %d differs between runs", i, j)
			}
		}
	}

	ids := map[string]bool{}
	for _, e := range a.Frames[0].Entities {
		if ids[e.ID] {
			t.Errorf("duplicate entity id %s", e.ID)
		}
		ids[e.ID] = true
	}
}

func TestGenerateTrackStaysInWorld(t *testing.T) {
	track := GenerateTrack(GenerateConfig{Bots: 5, Frames: 400})

	wrapped := false
	for i, f := range track.Frames {
		for _, e := range f.Entities {
			if e.Position.X < 0 || e.Position.Y < 0 ||
				e.Position.X > float64(track.Width) || e.Position.Y > float64(track.Height) {
				t.Fatalf("frame %d: %s left the world at %+v", i, e.Name, e.Position)
			}
			if e.Angle < 0 || e.Angle >= 2*math.Pi {
				t.Fatalf("frame %d: heading %v outside [0, 2π)", i, e.Angle)
			}
		}
		for _, b := range f.Bullets {
			if b.ID == "" {
				t.Fatalf("frame %d: bullet without id", i)
			}
		}

		if i > 0 {
			for j, e := range f.Entities {
				if math.Abs(e.Angle-track.Frames[i-1].Entities[j].Angle) > math.Pi {
					wrapped = true
				}
			}
		}
	}

	if !wrapped {
		t.Error("expected at least one heading to wrap across zero")
	}
}

func TestTrackSnapshotIsViewerRelative(t *testing.T) {
	track := &Track{
		Frames: []Frame{{
			At: 0,
			Entities: []snapshot.EntityState{
				{ID: "a"}, {ID: "b"}, {ID: "c"},
			},
		}},
	}

	s := track.Snapshot(0, 1, 777)
	if s.Timestamp != 777 {
		t.Errorf("expected timestamp 777, got %d", s.Timestamp)
	}
	if s.Player.ID != "b" {
		t.Errorf("expected viewer 1 to be b, got %s", s.Player.ID)
	}
	if len(s.OtherPlayers) != 2 || s.OtherPlayers[0].ID != "a" || s.OtherPlayers[1].ID != "c" {
		t.Errorf("expected others a,c, got %+v", s.OtherPlayers)
	}

	// Slots wrap around the entity list
	if s := track.Snapshot(0, 4, 0); s.Player.ID != "b" {
		t.Errorf("expected slot 4 to wrap to b, got %s", s.Player.ID)
	}
}
