// ABOUTME: World snapshot value types
// ABOUTME: Defines the immutable per-tick capture of every player's state
package snapshot

// Vec2 is a 2D world position
type Vec2 struct {
	X float64
	Y float64
}

// EntityState is one player's state at a server instant
type EntityState struct {
	ID       string // Stable identity key
	Name     string
	Position Vec2
	Angle    float64 // Radians, not normalized
}

// Bullet is a projectile carried alongside player state
type Bullet struct {
	ID       string // May be empty; unidentified bullets are never blended
	Position Vec2
	Angle    float64
	Type     string
	Speed    float64
}

// Snapshot is one timestamped capture of the world as seen by the local player.
// A stored Snapshot must not be mutated.
type Snapshot struct {
	Timestamp    int64 // Server clock, milliseconds
	Player       EntityState
	OtherPlayers []EntityState
	Bullets      []Bullet
}
