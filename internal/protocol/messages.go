// ABOUTME: Game wire protocol message type definitions
// ABOUTME: Defines JSON shapes exchanged with the game server and snapshot decoding
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harperreed/snapline/internal/snapshot"
)

// Message types sent by the server
const (
	TypeUpdate = "update"
	TypeConfig = "config"
	TypeStart  = "start"
	TypeEnd    = "end"
)

// Event types sent by the client
const (
	EventLogin   = "login"
	EventKeyDown = "keydown"
	EventKeyUp   = "keyup"
)

var (
	ErrMissingType      = errors.New("message has no type")
	ErrMissingTimestamp = errors.New("update has no timestamp")
	ErrMissingPlayer    = errors.New("update has no player")
	ErrUnexpectedType   = errors.New("unexpected message type")
)

// Envelope carries the type of any server message, plus the payload for
// message kinds that nest one
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EventMsg wraps every message the client sends
type EventMsg struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// EntityID accepts both string and numeric ids on the wire
type EntityID string

// UnmarshalJSON decodes a string or number id
func (id *EntityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = EntityID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("entity id must be a string or number: %w", err)
	}
	*id = EntityID(n.String())
	return nil
}

// Position is a world position on the wire
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entity is one player's state on the wire
type Entity struct {
	ID       EntityID `json:"id"`
	Name     string   `json:"name"`
	Position Position `json:"position"`
	Angle    float64  `json:"angle"`
}

// Bullet is a projectile on the wire
type Bullet struct {
	ID         EntityID `json:"id,omitempty"`
	Position   Position `json:"position"`
	Angle      float64  `json:"angle"`
	BulletType string   `json:"bullet_type,omitempty"`
	Speed      float64  `json:"speed,omitempty"`
}

// UpdateMessage is a world snapshot as sent by the server.
// Timestamp and Player are pointers so a missing field can be told apart from a zero one.
type UpdateMessage struct {
	Type         string   `json:"type"`
	Timestamp    *int64   `json:"timestamp"`
	Player       *Entity  `json:"player"`
	OtherPlayers []Entity `json:"otherPlayers"`
	Bullets      []Bullet `json:"bullets,omitempty"`
}

// Setting describes the world the server is running
type Setting struct {
	Type       string `json:"type,omitempty"`
	GameWidth  int32  `json:"game_width"`
	GameHeight int32  `json:"game_height"`
}

// EndGame is sent when the local player's game is over
type EndGame struct {
	Data string `json:"data"`
}

// PeekType returns the type field of a raw server message
func PeekType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}
	if env.Type == "" {
		return "", ErrMissingType
	}
	return env.Type, nil
}

// DecodeUpdate parses and validates an update message into a snapshot
func DecodeUpdate(data []byte) (snapshot.Snapshot, error) {
	var msg UpdateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("failed to parse update: %w", err)
	}
	if msg.Type != TypeUpdate {
		return snapshot.Snapshot{}, fmt.Errorf("%w: %q", ErrUnexpectedType, msg.Type)
	}
	return msg.Snapshot()
}

// Snapshot converts a validated update into the buffer's value type
func (m UpdateMessage) Snapshot() (snapshot.Snapshot, error) {
	if m.Timestamp == nil {
		return snapshot.Snapshot{}, ErrMissingTimestamp
	}
	if m.Player == nil {
		return snapshot.Snapshot{}, ErrMissingPlayer
	}

	s := snapshot.Snapshot{
		Timestamp: *m.Timestamp,
		Player:    m.Player.state(),
	}

	if m.OtherPlayers != nil {
		s.OtherPlayers = make([]snapshot.EntityState, len(m.OtherPlayers))
		for i, e := range m.OtherPlayers {
			s.OtherPlayers[i] = e.state()
		}
	}

	if m.Bullets != nil {
		s.Bullets = make([]snapshot.Bullet, len(m.Bullets))
		for i, b := range m.Bullets {
			s.Bullets[i] = snapshot.Bullet{
				ID:       string(b.ID),
				Position: snapshot.Vec2{X: b.Position.X, Y: b.Position.Y},
				Angle:    b.Angle,
				Type:     b.BulletType,
				Speed:    b.Speed,
			}
		}
	}

	return s, nil
}

func (e Entity) state() snapshot.EntityState {
	return snapshot.EntityState{
		ID:       string(e.ID),
		Name:     e.Name,
		Position: snapshot.Vec2{X: e.Position.X, Y: e.Position.Y},
		Angle:    e.Angle,
	}
}

// NewEntity converts a snapshot entity to its wire form
func NewEntity(s snapshot.EntityState) Entity {
	return Entity{
		ID:       EntityID(s.ID),
		Name:     s.Name,
		Position: Position{X: s.Position.X, Y: s.Position.Y},
		Angle:    s.Angle,
	}
}

// NewUpdate builds an update message for a snapshot
func NewUpdate(s snapshot.Snapshot) UpdateMessage {
	ts := s.Timestamp
	player := NewEntity(s.Player)

	others := make([]Entity, len(s.OtherPlayers))
	for i, e := range s.OtherPlayers {
		others[i] = NewEntity(e)
	}

	var bullets []Bullet
	if len(s.Bullets) > 0 {
		bullets = make([]Bullet, len(s.Bullets))
		for i, b := range s.Bullets {
			bullets[i] = Bullet{
				ID:         EntityID(b.ID),
				Position:   Position{X: b.Position.X, Y: b.Position.Y},
				Angle:      b.Angle,
				BulletType: b.Type,
				Speed:      b.Speed,
			}
		}
	}

	return UpdateMessage{
		Type:         TypeUpdate,
		Timestamp:    &ts,
		Player:       &player,
		OtherPlayers: others,
		Bullets:      bullets,
	}
}

// DecodeSetting parses world settings from either a flat "config" message or
// a "start" message carrying the setting as payload
func DecodeSetting(data []byte) (Setting, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Setting{}, fmt.Errorf("failed to parse setting: %w", err)
	}

	body := data
	switch env.Type {
	case TypeConfig:
	case TypeStart:
		if len(env.Payload) == 0 {
			return Setting{}, fmt.Errorf("start message has no payload")
		}
		body = env.Payload
	default:
		return Setting{}, fmt.Errorf("%w: %q", ErrUnexpectedType, env.Type)
	}

	var setting Setting
	if err := json.Unmarshal(body, &setting); err != nil {
		return Setting{}, fmt.Errorf("failed to parse setting: %w", err)
	}
	setting.Type = env.Type
	return setting, nil
}

// DecodeEnd parses an end message. A missing payload is not an error.
func DecodeEnd(data []byte) (EndGame, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return EndGame{}, fmt.Errorf("failed to parse end: %w", err)
	}
	if env.Type != TypeEnd {
		return EndGame{}, fmt.Errorf("%w: %q", ErrUnexpectedType, env.Type)
	}

	var end EndGame
	if len(env.Payload) == 0 {
		return end, nil
	}

	// Older servers send a bare string
	if env.Payload[0] == '"' {
		if err := json.Unmarshal(env.Payload, &end.Data); err != nil {
			return EndGame{}, fmt.Errorf("failed to parse end payload: %w", err)
		}
		return end, nil
	}

	if err := json.Unmarshal(env.Payload, &end); err != nil {
		return EndGame{}, fmt.Errorf("failed to parse end payload: %w", err)
	}
	return end, nil
}
