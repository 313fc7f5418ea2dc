// ABOUTME: Tests for TUI model and arena drawing
// ABOUTME: Tests status updates, key handling, and world-to-grid mapping
package ui

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/snapline/internal/interp"
	"github.com/harperreed/snapline/internal/session"
	"github.com/harperreed/snapline/internal/snapshot"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil) // Controls are optional for testing

	if model.connected {
		t.Error("expected connected to be false initially")
	}
	if model.worldW != DefaultWorldWidth || model.worldH != DefaultWorldHeight {
		t.Errorf("expected default world %dx%d, got %dx%d",
			DefaultWorldWidth, DefaultWorldHeight, model.worldW, model.worldH)
	}
	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgConnected(t *testing.T) {
	model := NewModel(nil)

	connected := true
	model.applyStatus(StatusMsg{Connected: &connected, ServerName: "arena"})

	if !model.connected {
		t.Error("expected connected to be true after status update")
	}
	if model.serverName != "arena" {
		t.Errorf("expected serverName 'arena', got '%s'", model.serverName)
	}

	disconnected := false
	model.applyStatus(StatusMsg{Connected: &disconnected})
	if model.connected {
		t.Error("expected connected to be false after disconnect")
	}
	if model.serverName != "arena" {
		t.Error("expected serverName to be kept when not provided")
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel(nil)

	model.applyStatus(StatusMsg{Stats: &session.Stats{Pushed: 12, BufferDepth: 3, Phase: interp.PhaseSteady}})

	if model.stats.Pushed != 12 || model.stats.BufferDepth != 3 || model.stats.Phase != interp.PhaseSteady {
		t.Errorf("unexpected stats: %+v", model.stats)
	}
}

func TestUpdateMessages(t *testing.T) {
	var m tea.Model = NewModel(nil)

	frame := &interp.Frame{Phase: interp.PhaseSteady}
	m, _ = m.Update(FrameMsg{Frame: frame})
	m, _ = m.Update(SettingMsg{Width: 800, Height: 600})
	m, _ = m.Update(SettingMsg{Width: 0, Height: 10})
	m, _ = m.Update(EndMsg{Text: "you died"})
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	model := m.(Model)
	if model.frame != frame {
		t.Error("expected frame to be stored")
	}
	if model.worldW != 800 || model.worldH != 600 {
		t.Errorf("expected world 800x600 and invalid size ignored, got %dx%d", model.worldW, model.worldH)
	}
	if !model.ended || model.endText != "you died" {
		t.Errorf("expected game over state, got ended=%v text=%q", model.ended, model.endText)
	}
	if model.width != 100 || model.height != 40 {
		t.Errorf("expected 100x40, got %dx%d", model.width, model.height)
	}

	view := model.View()
	if !strings.Contains(view, "GAME OVER") || !strings.Contains(view, "you died") {
		t.Error("expected game over banner in view")
	}
}

func TestViewBeforeSize(t *testing.T) {
	if v := NewModel(nil).View(); v != "Loading..." {
		t.Errorf("expected loading view, got %q", v)
	}
}

func TestQuitKey(t *testing.T) {
	controls := NewControls()
	model := NewModel(controls)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}

	select {
	case <-controls.Quit:
	default:
		t.Error("expected quit signal on controls")
	}
}

func TestDebugToggle(t *testing.T) {
	m, _ := NewModel(nil).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !m.(Model).showDebug {
		t.Error("expected d to enable debug")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if m.(Model).showDebug {
		t.Error("expected second d to disable debug")
	}
}

func TestArrow(t *testing.T) {
	cases := []struct {
		angle float64
		want  string
	}{
		{0, "→"},
		{math.Pi / 2, "↓"},
		{math.Pi, "←"},
		{-math.Pi / 2, "↑"},
		{2 * math.Pi, "→"},
		{-0.1, "→"},
		{math.Pi / 4, "↘"},
		{7 * math.Pi / 4, "↗"},
	}

	for _, tc := range cases {
		if got := arrow(tc.angle); got != tc.want {
			t.Errorf("arrow(%v) = %s, expected %s", tc.angle, got, tc.want)
		}
	}
}

func TestCellFor(t *testing.T) {
	cases := []struct {
		pos      snapshot.Vec2
		col, row int
		ok       bool
	}{
		{snapshot.Vec2{X: 0, Y: 0}, 0, 0, true},
		{snapshot.Vec2{X: 640, Y: 360}, 20, 5, true},
		{snapshot.Vec2{X: 1280, Y: 720}, 39, 9, true},
		{snapshot.Vec2{X: -1, Y: 10}, 0, 0, false},
		{snapshot.Vec2{X: 10, Y: 721}, 0, 0, false},
	}

	for _, tc := range cases {
		col, row, ok := cellFor(tc.pos, 1280, 720, 40, 10)
		if ok != tc.ok || (ok && (col != tc.col || row != tc.row)) {
			t.Errorf("cellFor(%v) = (%d,%d,%v), expected (%d,%d,%v)",
				tc.pos, col, row, ok, tc.col, tc.row, tc.ok)
		}
	}

	if _, _, ok := cellFor(snapshot.Vec2{}, 0, 720, 40, 10); ok {
		t.Error("expected zero-width world to map nothing")
	}
}

func TestRenderArenaDrawsEntities(t *testing.T) {
	frame := &interp.Frame{
		Player:       snapshot.EntityState{Position: snapshot.Vec2{X: 100, Y: 100}, Angle: math.Pi},
		OtherPlayers: []snapshot.EntityState{{Position: snapshot.Vec2{X: 500, Y: 100}, Angle: -math.Pi / 2}},
		Bullets:      []snapshot.Bullet{{Position: snapshot.Vec2{X: 900, Y: 100}}},
	}

	out := renderArena(frame, 1000, 200, 10, 2)
	for _, glyph := range []string{"←", "↑", "•"} {
		if !strings.Contains(out, glyph) {
			t.Errorf("expected %s in arena, got:\n%s", glyph, out)
		}
	}

	empty := renderArena(nil, 1000, 200, 10, 2)
	if strings.Contains(empty, "←") {
		t.Error("expected empty arena without a frame")
	}
}
