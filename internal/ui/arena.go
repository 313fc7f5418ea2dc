// ABOUTME: Character-grid drawing of the game world
// ABOUTME: Scales world coordinates onto terminal cells and draws heading arrows
package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/snapline/internal/interp"
	"github.com/harperreed/snapline/internal/snapshot"
)

// Default world size used until the server sends a config message
const (
	DefaultWorldWidth  = 1280
	DefaultWorldHeight = 720
)

// Screen y grows downward, so a positive angle turns clockwise
var arrows = []string{"→", "↘", "↓", "↙", "←", "↖", "↑", "↗"}

var (
	playerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	otherStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	bulletStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	floorStyle  = lipgloss.NewStyle().Faint(true)
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
)

// arrow returns the glyph closest to heading angle (radians)
func arrow(angle float64) string {
	a := math.Mod(angle, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	i := int(math.Round(a/(math.Pi/4))) % len(arrows)
	return arrows[i]
}

// cellFor maps a world position to a grid cell. ok is false outside the world.
func cellFor(p snapshot.Vec2, worldW, worldH float64, cols, rows int) (col, row int, ok bool) {
	if worldW <= 0 || worldH <= 0 || cols <= 0 || rows <= 0 {
		return 0, 0, false
	}
	if p.X < 0 || p.Y < 0 || p.X > worldW || p.Y > worldH {
		return 0, 0, false
	}

	col = int(p.X / worldW * float64(cols))
	row = int(p.Y / worldH * float64(rows))
	if col >= cols {
		col = cols - 1
	}
	if row >= rows {
		row = rows - 1
	}
	return col, row, true
}

// renderArena draws a frame onto a cols x rows grid inside a border.
// Bullets are drawn first so entities stay visible on top of them.
func renderArena(frame *interp.Frame, worldW, worldH int32, cols, rows int) string {
	grid := make([][]string, rows)
	for r := range grid {
		grid[r] = make([]string, cols)
		for c := range grid[r] {
			grid[r][c] = floorStyle.Render("·")
		}
	}

	w, h := float64(worldW), float64(worldH)
	put := func(p snapshot.Vec2, glyph string) {
		if c, r, ok := cellFor(p, w, h, cols, rows); ok {
			grid[r][c] = glyph
		}
	}

	if frame != nil {
		for _, b := range frame.Bullets {
			put(b.Position, bulletStyle.Render("•"))
		}
		for _, e := range frame.OtherPlayers {
			put(e.Position, otherStyle.Render(arrow(e.Angle)))
		}
		put(frame.Player.Position, playerStyle.Render(arrow(frame.Player.Angle)))
	}

	lines := make([]string, rows)
	for r, row := range grid {
		lines[r] = strings.Join(row, "")
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}
