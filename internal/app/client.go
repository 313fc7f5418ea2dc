// ABOUTME: Client application orchestration
// ABOUTME: Coordinates discovery, connection, the render session and the UI
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/harperreed/snapline/internal/client"
	"github.com/harperreed/snapline/internal/discovery"
	"github.com/harperreed/snapline/internal/session"
	"github.com/harperreed/snapline/internal/ui"
	"github.com/harperreed/snapline/internal/version"
)

// ErrNoServer is returned when discovery finds nothing in time
var ErrNoServer = errors.New("no server found")

// ErrConnectionLost is returned when the server goes away mid-game
var ErrConnectionLost = errors.New("connection lost")

// Config holds client configuration
type Config struct {
	ServerAddr       string
	Name             string
	RenderDelay      time.Duration
	FPS              int
	UseTUI           bool
	DiscoveryTimeout time.Duration
}

// App is the game client
type App struct {
	config Config

	mu       sync.Mutex
	client   *client.Client
	session  *session.Session
	tuiProg  *tea.Program
	controls *ui.Controls

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new client application
func New(config Config) *App {
	if config.FPS <= 0 {
		config.FPS = session.DefaultFPS
	}
	if config.DiscoveryTimeout <= 0 {
		config.DiscoveryTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Run connects and renders until Stop, a TUI quit or connection loss
func (a *App) Run() error {
	log.Printf("%s %s starting as %q", version.Product, version.Version, a.config.Name)

	var renderer session.Renderer
	if a.config.UseTUI {
		controls := ui.NewControls()
		prog, err := ui.Run(controls)
		if err != nil {
			return fmt.Errorf("failed to start TUI: %w", err)
		}

		a.mu.Lock()
		a.tuiProg = prog
		a.controls = controls
		a.mu.Unlock()

		go func() {
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		renderer = ui.NewRenderer(prog)
	} else {
		renderer = &session.LogRenderer{Every: a.config.FPS}
	}
	defer a.teardown()

	addr, path, err := a.resolveServer()
	if err != nil {
		return err
	}

	c := client.NewClient(client.Config{
		ServerAddr: addr,
		Path:       path,
		ClientID:   uuid.New().String(),
		Name:       a.config.Name,
	})
	if err := c.Connect(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	log.Printf("Connected to server: %s", addr)

	sess := session.New(session.Config{
		RenderDelay: a.config.RenderDelay,
		FPS:         a.config.FPS,
		Renderer:    renderer,
	})

	a.mu.Lock()
	a.client = c
	a.session = sess
	a.mu.Unlock()

	connected := true
	a.updateTUI(ui.StatusMsg{Connected: &connected, ServerName: addr})

	errCh := make(chan error, 1)
	go func() {
		errCh <- sess.Run(a.ctx, c.Snapshots, c.Done())
	}()

	go a.handleSettings(c)
	go a.handleEnd(c)
	go a.statsLoop(sess)

	var quit <-chan struct{}
	if a.controls != nil {
		quit = a.controls.Quit
	}

	select {
	case <-a.ctx.Done():
		return nil
	case <-quit:
		log.Printf("Received quit signal from TUI")
		return nil
	case err := <-errCh:
		if errors.Is(err, session.ErrSourceClosed) {
			return ErrConnectionLost
		}
		return err
	}
}

// resolveServer returns the configured server or waits for one on mDNS
func (a *App) resolveServer() (addr, path string, err error) {
	if a.config.ServerAddr != "" {
		return a.config.ServerAddr, client.DefaultPath, nil
	}

	log.Printf("Starting server discovery...")
	disc := discovery.NewManager(discovery.Config{ServiceName: a.config.Name})
	defer disc.Stop()

	if err := disc.Browse(); err != nil {
		return "", "", fmt.Errorf("discovery failed: %w", err)
	}

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered server %s at %s", server.Name, server.Addr())
		return server.Addr(), server.Path, nil
	case <-time.After(a.config.DiscoveryTimeout):
		return "", "", fmt.Errorf("%w after %v", ErrNoServer, a.config.DiscoveryTimeout)
	case <-a.ctx.Done():
		return "", "", a.ctx.Err()
	}
}

// handleSettings forwards world size changes to the UI
func (a *App) handleSettings(c *client.Client) {
	for {
		select {
		case s := <-c.Settings:
			a.updateTUI(ui.SettingMsg{Width: s.GameWidth, Height: s.GameHeight})
		case <-c.Done():
			return
		case <-a.ctx.Done():
			return
		}
	}
}

// handleEnd shows the game over banner; rendering continues until the server hangs up
func (a *App) handleEnd(c *client.Client) {
	select {
	case end := <-c.End:
		a.updateTUI(ui.EndMsg{Text: end.Data})
	case <-c.Done():
	case <-a.ctx.Done():
	}
}

// statsLoop periodically pushes session stats to the UI
func (a *App) statsLoop(sess *session.Session) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := sess.Stats()
			a.updateTUI(ui.StatusMsg{Stats: &stats})
		case <-a.ctx.Done():
			return
		}
	}
}

func (a *App) updateTUI(msg tea.Msg) {
	a.mu.Lock()
	prog := a.tuiProg
	a.mu.Unlock()

	if prog != nil {
		prog.Send(msg)
	}
}

// Stats returns the session counters, or false before connecting
func (a *App) Stats() (session.Stats, bool) {
	a.mu.Lock()
	sess := a.session
	a.mu.Unlock()

	if sess == nil {
		return session.Stats{}, false
	}
	return sess.Stats(), true
}

// Stop asks Run to return
func (a *App) Stop() {
	a.cancel()
}

func (a *App) teardown() {
	a.cancel()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		a.client.Close()
	}
	if a.tuiProg != nil {
		a.tuiProg.Quit()
	}
}
