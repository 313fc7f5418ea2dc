// ABOUTME: Feed server replaying a world track to WebSocket viewers
// ABOUTME: Manages connections, per-viewer replay loops, mDNS and the TUI
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/snapline/internal/discovery"
	"github.com/harperreed/snapline/internal/protocol"
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	Path       string
	Track      *Track
	TrackName  string
	Jitter     time.Duration // Upper bound of random extra delay per update
	Loops      int           // Track loops per viewer before "end"; 0 replays forever
	EnableMDNS bool
	UseTUI     bool
}

// Server streams a track to every connected viewer
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	viewers   map[string]*Viewer
	viewersMu sync.RWMutex
	nextSlot  atomic.Int64

	mdnsManager *discovery.Manager
	tui         *FeedTUI

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Viewer is a connected client
type Viewer struct {
	ID   string
	Slot int
	Conn *websocket.Conn

	mu   sync.RWMutex
	name string
	sent int64
}

// Name returns the name the viewer logged in with
func (v *Viewer) Name() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.name
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Path == "" {
		config.Path = "/ws"
	}
	if config.Track == nil {
		config.Track = GenerateTrack(GenerateConfig{})
	}
	if config.TrackName == "" {
		config.TrackName = "orbit demo"
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Viewers are terminal clients and local browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		viewers:  make(map[string]*Viewer),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(config.Path, s.handleWebSocket)

	return s
}

// Handler exposes the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop, TUI quit or a listener error
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewFeedTUI(s.config.Name, s.config.Port, s.config.TrackName)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	log.Printf("Feed starting: %s (ID: %s), track %q with %d frames", s.config.Name, s.serverID,
		s.config.TrackName, len(s.config.Track.Frames))

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket feed listening on %s%s", addr, s.config.Path)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Feed shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	s.closeViewers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Feed stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server. Safe to call more than once.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// ViewerCount returns the number of connected viewers
func (s *Server) ViewerCount() int {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()
	return len(s.viewers)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection registers a viewer, starts its replay and reads its events
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	v := &Viewer{
		ID:   uuid.New().String(),
		Slot: int(s.nextSlot.Add(1) - 1),
		Conn: conn,
		name: "anonymous",
	}

	s.viewersMu.Lock()
	s.viewers[v.ID] = v
	s.viewersMu.Unlock()
	s.updateTUI()

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		s.viewersMu.Lock()
		delete(s.viewers, v.ID)
		s.viewersMu.Unlock()
		log.Printf("Viewer disconnected: %s (%s)", v.Name(), v.ID[:8])
		s.updateTUI()
	}()

	setting := protocol.Setting{
		Type:       protocol.TypeConfig,
		GameWidth:  s.config.Track.Width,
		GameHeight: s.config.Track.Height,
	}
	if err := conn.WriteJSON(setting); err != nil {
		log.Printf("Error sending config: %v", err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.stream(ctx, v)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}

		s.handleViewerMessage(v, data)
	}
}

// handleViewerMessage processes client events
func (s *Server) handleViewerMessage(v *Viewer, data []byte) {
	var msg protocol.EventMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling event: %v", err)
		return
	}

	switch msg.Type {
	case protocol.EventLogin:
		name, _ := msg.Payload.(string)
		if name == "" {
			return
		}
		v.mu.Lock()
		v.name = name
		v.mu.Unlock()
		log.Printf("Viewer login: %s (%s)", name, v.ID[:8])
		s.updateTUI()
	case protocol.EventKeyDown, protocol.EventKeyUp:
		// Replays cannot be steered
		log.Printf("Viewer %s %s %v", v.Name(), msg.Type, msg.Payload)
	default:
		log.Printf("Unknown event type: %s", msg.Type)
	}
}

// stream replays the track to one viewer. Timestamps follow the server clock
// from the moment the viewer joined and keep rising across loops.
func (s *Server) stream(ctx context.Context, v *Viewer) {
	track := s.config.Track
	n := len(track.Frames)
	if n == 0 {
		return
	}

	started := time.Now()
	base := started.UnixMilli()
	period := track.Period()

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i := 0; ; i++ {
		loop := i / n
		if s.config.Loops > 0 && loop >= s.config.Loops {
			s.sendEnd(v, fmt.Sprintf("replay of %s finished", s.config.TrackName))
			return
		}

		offset := int64(loop)*period + track.Frames[i%n].At
		due := started.Add(time.Duration(offset)*time.Millisecond + s.jitter())

		timer.Reset(time.Until(due))
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		msg := protocol.NewUpdate(track.Snapshot(i%n, v.Slot, base+offset))

		v.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := v.Conn.WriteJSON(msg); err != nil {
			log.Printf("Error writing update to %s: %v", v.ID[:8], err)
			v.Conn.Close()
			return
		}

		v.mu.Lock()
		v.sent++
		v.mu.Unlock()

		if i%n == 0 {
			s.updateTUI()
		}
	}
}

func (s *Server) sendEnd(v *Viewer, text string) {
	msg := protocol.Envelope{Type: protocol.TypeEnd}
	payload, err := json.Marshal(protocol.EndGame{Data: text})
	if err != nil {
		log.Printf("Error marshaling end: %v", err)
		return
	}
	msg.Payload = payload

	v.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := v.Conn.WriteJSON(msg); err != nil {
		log.Printf("Error writing end to %s: %v", v.ID[:8], err)
		return
	}
	log.Printf("Sent end to %s", v.Name())
}

// jitter returns a uniform random send delay in [0, Jitter)
func (s *Server) jitter() time.Duration {
	if s.config.Jitter <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(s.config.Jitter)))
}

func (s *Server) closeViewers() {
	s.viewersMu.RLock()
	defer s.viewersMu.RUnlock()

	for _, v := range s.viewers {
		v.Conn.Close()
	}
}

// updateTUI sends current server state to the TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	s.viewersMu.RLock()
	viewers := make([]ViewerInfo, 0, len(s.viewers))
	for _, v := range s.viewers {
		v.mu.RLock()
		info := ViewerInfo{Name: v.name, ID: v.ID, Sent: v.sent}
		v.mu.RUnlock()

		if frames := s.config.Track.Frames; len(frames) > 0 && len(frames[0].Entities) > 0 {
			ents := frames[0].Entities
			info.Entity = ents[v.Slot%len(ents)].Name
		}
		viewers = append(viewers, info)
	}
	s.viewersMu.RUnlock()

	s.tui.Update(FeedStatus{
		Name:    s.config.Name,
		Port:    s.config.Port,
		Track:   s.config.TrackName,
		Viewers: viewers,
	})
}
