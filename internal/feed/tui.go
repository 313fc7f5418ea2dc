// ABOUTME: Feed server TUI listing connected viewers
// ABOUTME: Real-time server status display using bubbletea
package feed

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FeedTUI manages the server TUI
type FeedTUI struct {
	program  *tea.Program
	updates  chan FeedStatus
	quitChan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// FeedStatus holds server state for the TUI
type FeedStatus struct {
	Name    string
	Port    int
	Track   string
	Viewers []ViewerInfo
}

// ViewerInfo describes one connected viewer
type ViewerInfo struct {
	Name   string
	ID     string
	Entity string
	Sent   int64
}

type tuiModel struct {
	status    FeedStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type statusMsg FeedStatus

func (m tuiModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case statusMsg:
		m.status = FeedStatus(msg)
	}

	return m, nil
}

func (m tuiModel) View() string {
	if m.quitting {
		return "Shutting down feed...\n"
	}

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	viewerHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("snapline feed"))
	b.WriteString("\n\n")

	field := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("Server", m.status.Name)
	field("Port", fmt.Sprintf("%d", m.status.Port))
	field("Uptime", time.Since(m.startTime).Round(time.Second).String())
	field("Track", m.status.Track)
	b.WriteString("\n")

	b.WriteString(viewerHeaderStyle.Render(fmt.Sprintf("Viewers (%d)", len(m.status.Viewers))))
	b.WriteString("\n\n")

	if len(m.status.Viewers) == 0 {
		b.WriteString(valueStyle.Render("  No viewers connected"))
		b.WriteString("\n")
	}
	for _, v := range m.status.Viewers {
		b.WriteString(fmt.Sprintf("  • %s", v.Name))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" (as %s, %d sent)", v.Entity, v.Sent)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Faint(true).Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// NewFeedTUI creates the TUI; Start runs it
func NewFeedTUI(name string, port int, track string) *FeedTUI {
	quit := make(chan struct{}, 1)
	m := tuiModel{
		status:    FeedStatus{Name: name, Port: port, Track: track},
		startTime: time.Now(),
		quitChan:  quit,
	}

	return &FeedTUI{
		program:  tea.NewProgram(m, tea.WithAltScreen()),
		updates:  make(chan FeedStatus, 10),
		quitChan: quit,
		done:     make(chan struct{}),
	}
}

// Start runs the TUI until it quits
func (t *FeedTUI) Start() error {
	go func() {
		for {
			select {
			case status := <-t.updates:
				t.program.Send(statusMsg(status))
			case <-t.done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI
func (t *FeedTUI) Update(status FeedStatus) {
	select {
	case <-t.done:
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI. Later updates are dropped.
func (t *FeedTUI) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
		t.program.Quit()
	})
}

// QuitChan signals when the user wants to quit
func (t *FeedTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
