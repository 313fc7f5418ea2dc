// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and bridges frames and key input
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/snapline/internal/interp"
)

// Controls holds channels for signals leaving the TUI
type Controls struct {
	Quit chan struct{}
}

// NewControls creates a new controls handler
func NewControls() *Controls {
	return &Controls{
		Quit: make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		worldW:   DefaultWorldWidth,
		worldH:   DefaultWorldHeight,
		controls: controls,
	}
}

// Run creates the TUI program; the caller starts it
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}

// Renderer forwards frames to a running TUI program
type Renderer struct {
	prog *tea.Program
}

// NewRenderer creates a renderer for prog
func NewRenderer(prog *tea.Program) *Renderer {
	return &Renderer{prog: prog}
}

// Render sends the frame to the TUI
func (r *Renderer) Render(frame *interp.Frame) {
	r.prog.Send(FrameMsg{Frame: frame})
}
