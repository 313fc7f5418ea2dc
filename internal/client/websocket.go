// ABOUTME: WebSocket client for the game server feed
// ABOUTME: Handles connection, login, and routing of server messages to channels
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harperreed/snapline/internal/protocol"
	"github.com/harperreed/snapline/internal/snapshot"
)

// DefaultPath is the endpoint game servers serve their feed on
const DefaultPath = "/ws"

// ErrNotConnected is returned when sending on a closed or never-opened connection
var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr  string
	Path        string
	ClientID    string
	Name        string
	DialTimeout time.Duration
}

// Client receives world snapshots from a game server
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex

	// Message channels
	Snapshots chan snapshot.Snapshot
	Settings  chan protocol.Setting
	End       chan protocol.EndGame

	// State
	connected bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:    config,
		Snapshots: make(chan snapshot.Snapshot, 100),
		Settings:  make(chan protocol.Setting, 4),
		End:       make(chan protocol.EndGame, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the server, logs in and starts the reader
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	dialer := websocket.Dialer{HandshakeTimeout: c.config.DialTimeout}
	conn, _, err := dialer.DialContext(c.ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if c.config.Name != "" {
		if err := c.SendEvent(protocol.EventLogin, c.config.Name); err != nil {
			c.Close()
			return fmt.Errorf("login failed: %w", err)
		}
	}

	go c.readMessages()

	return nil
}

// SendEvent sends a client event such as a key press
func (c *Client) SendEvent(eventType string, payload interface{}) error {
	return c.sendJSON(protocol.EventMsg{Type: eventType, Payload: payload})
}

// sendJSON writes under the write lock; gorilla allows one concurrent writer
func (c *Client) sendJSON(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("Server closed connection")
			} else if c.ctx.Err() == nil {
				log.Printf("Read error: %v", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			log.Printf("Ignoring non-text message (type %d, %d bytes)", messageType, len(data))
			continue
		}

		c.handleJSONMessage(data)
	}
}

// handleJSONMessage routes JSON messages by their type field
func (c *Client) handleJSONMessage(data []byte) {
	msgType, err := protocol.PeekType(data)
	if err != nil {
		log.Printf("Dropping message: %v", err)
		return
	}

	switch msgType {
	case protocol.TypeUpdate:
		c.onSnapshotReceived(data)

	case protocol.TypeConfig, protocol.TypeStart:
		setting, err := protocol.DecodeSetting(data)
		if err != nil {
			log.Printf("Dropping %s message: %v", msgType, err)
			return
		}
		log.Printf("World setting: %dx%d", setting.GameWidth, setting.GameHeight)
		select {
		case c.Settings <- setting:
		case <-c.ctx.Done():
		}

	case protocol.TypeEnd:
		end, err := protocol.DecodeEnd(data)
		if err != nil {
			log.Printf("Dropping end message: %v", err)
			return
		}
		log.Printf("Game ended: %s", end.Data)
		select {
		case c.End <- end:
		default:
			// Only the first end matters
		}

	default:
		log.Printf("Unknown message type: %s", msgType)
	}
}

// onSnapshotReceived validates an update and forwards it to Snapshots.
// Malformed updates are dropped so a bad message never reaches the buffer.
func (c *Client) onSnapshotReceived(data []byte) {
	s, err := protocol.DecodeUpdate(data)
	if err != nil {
		log.Printf("Dropping update: %v", err)
		return
	}

	select {
	case c.Snapshots <- s:
	case <-c.ctx.Done():
	}
}

// Close closes the connection. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		c.cancel()
		if c.connected {
			c.connected = false
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			c.conn.Close()
			log.Printf("Connection closed")
		}
	})
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Done is closed once the client shuts down for any reason
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}
