// ABOUTME: Bubbletea model for the client TUI
// ABOUTME: Defines view state, message handling and layout
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harperreed/snapline/internal/interp"
	"github.com/harperreed/snapline/internal/session"
)

// Rows taken by everything except the arena
const chromeRows = 9

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string

	// World
	worldW int32
	worldH int32
	frame  *interp.Frame

	// Session
	stats session.Stats

	// Game over
	ended   bool
	endText string

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int

	controls *Controls
}

// FrameMsg carries the latest interpolated frame
type FrameMsg struct {
	Frame *interp.Frame
}

// SettingMsg carries the world size from the server
type SettingMsg struct {
	Width  int32
	Height int32
}

// EndMsg reports that the game is over
type EndMsg struct {
	Text string
}

// StatusMsg updates connection and session state
type StatusMsg struct {
	Connected  *bool
	ServerName string
	Stats      *session.Stats
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FrameMsg:
		m.frame = msg.Frame
	case SettingMsg:
		if msg.Width > 0 && msg.Height > 0 {
			m.worldW = msg.Width
			m.worldH = msg.Height
		}
	case EndMsg:
		m.ended = true
		m.endText = msg.Text
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.ended {
		b.WriteString(warnStyle.Render("GAME OVER"))
		if m.endText != "" {
			b.WriteString(valueStyle.Render("  " + m.endText))
		}
		b.WriteString("\n")
	}

	cols, rows := m.arenaSize()
	b.WriteString(renderArena(m.frame, m.worldW, m.worldH, cols, rows))
	b.WriteString("\n")

	b.WriteString(m.renderStats())

	if m.showDebug {
		b.WriteString(m.renderDebug())
	}

	b.WriteString(helpStyle.Render("d: debug  q: quit"))

	return b.String()
}

// arenaSize fits the grid inside the terminal, keeping at least a small board
func (m Model) arenaSize() (cols, rows int) {
	cols = m.width - 2
	rows = m.height - chromeRows
	if m.showDebug {
		rows -= 3
	}
	if cols < 20 {
		cols = 20
	}
	if rows < 6 {
		rows = 6
	}
	return cols, rows
}

// renderHeader renders connection status and phase
func (m Model) renderHeader() string {
	conn := "Disconnected"
	if m.connected {
		conn = "Connected to " + m.serverName
	}

	phase := m.stats.Phase.String()
	phaseStyle := valueStyle
	if m.stats.Phase == interp.PhaseStale {
		phaseStyle = warnStyle
	}

	return titleStyle.Render("snapline") + "  " +
		headerStyle.Render("Status: ") + valueStyle.Render(conn) + "  " +
		headerStyle.Render("Phase: ") + phaseStyle.Render(phase)
}

// renderStats renders buffer and frame counters
func (m Model) renderStats() string {
	s := m.stats
	line := fmt.Sprintf("Buffer: %d  Delay: %v  Lead: %v  RX: %d  Pruned: %d  Frames: %d  Stalled: %d",
		s.BufferDepth, s.RenderDelay, s.Lead.Round(time.Millisecond),
		s.Pushed, s.Pruned, s.Frames, s.Stalled)
	return valueStyle.Render(line) + "\n"
}

// renderDebug renders the raw frame state
func (m Model) renderDebug() string {
	if m.frame == nil {
		return headerStyle.Render("DEBUG: ") + valueStyle.Render("no frame") + "\n"
	}

	f := m.frame
	return headerStyle.Render("DEBUG:") + "\n" +
		valueStyle.Render(fmt.Sprintf("  render=%.1fms ratio=%.3f skipped=%d", f.RenderTime, f.Ratio, m.stats.Skipped)) + "\n" +
		valueStyle.Render(fmt.Sprintf("  player %s (%.1f, %.1f) angle %.3f others=%d bullets=%d",
			truncate(f.Player.Name, 16), f.Player.Position.X, f.Player.Position.Y, f.Player.Angle,
			len(f.OtherPlayers), len(f.Bullets))) + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
	}
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
