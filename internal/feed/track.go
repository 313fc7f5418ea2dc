// ABOUTME: Recorded and generated world tracks for the feed server
// ABOUTME: Loads JSON-lines recordings and builds a deterministic orbit demo
package feed

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/snapline/internal/protocol"
	"github.com/harperreed/snapline/internal/snapshot"
)

// ErrEmptyTrack is returned when a recording holds no frames
var ErrEmptyTrack = errors.New("track has no frames")

// Frame is one recorded world state
type Frame struct {
	At       int64 // Milliseconds since the first frame
	Entities []snapshot.EntityState
	Bullets  []snapshot.Bullet
}

// Track is an ordered sequence of frames replayed in a loop
type Track struct {
	Frames   []Frame
	Interval time.Duration // Gap between the last frame and the first of the next loop
	Width    int32
	Height   int32
}

// Period returns the length of one loop in milliseconds
func (t *Track) Period() int64 {
	if len(t.Frames) == 0 {
		return 0
	}
	return t.Frames[len(t.Frames)-1].At + t.Interval.Milliseconds()
}

// Snapshot builds the view of frame i for the viewer owning entity slot viewer.
// The viewer's entity becomes the player; everyone else is an other player.
func (t *Track) Snapshot(i, viewer int, ts int64) snapshot.Snapshot {
	f := t.Frames[i]

	s := snapshot.Snapshot{
		Timestamp:    ts,
		OtherPlayers: make([]snapshot.EntityState, 0, len(f.Entities)),
	}
	if len(f.Bullets) > 0 {
		s.Bullets = append([]snapshot.Bullet(nil), f.Bullets...)
	}

	if len(f.Entities) == 0 {
		return s
	}

	slot := viewer % len(f.Entities)
	for j, e := range f.Entities {
		if j == slot {
			s.Player = e
			continue
		}
		s.OtherPlayers = append(s.OtherPlayers, e)
	}

	return s
}

// LoadTrack reads update messages, one JSON object per line.
// Timestamps are rebased so the first frame is at 0.
func LoadTrack(r io.Reader) (*Track, error) {
	track := &Track{
		Interval: 50 * time.Millisecond,
		Width:    1280,
		Height:   720,
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var first int64
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		s, err := protocol.DecodeUpdate([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if len(track.Frames) == 0 {
			first = s.Timestamp
		}

		at := s.Timestamp - first
		if n := len(track.Frames); n > 0 && at < track.Frames[n-1].At {
			return nil, fmt.Errorf("line %d: timestamp %d goes backwards", line, s.Timestamp)
		}

		entities := make([]snapshot.EntityState, 0, 1+len(s.OtherPlayers))
		entities = append(entities, s.Player)
		entities = append(entities, s.OtherPlayers...)

		track.Frames = append(track.Frames, Frame{At: at, Entities: entities, Bullets: s.Bullets})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track: %w", err)
	}

	if len(track.Frames) == 0 {
		return nil, ErrEmptyTrack
	}

	// Loop gap follows the recording's average spacing
	if n := len(track.Frames); n > 1 {
		avg := track.Frames[n-1].At / int64(n-1)
		if avg > 0 {
			track.Interval = time.Duration(avg) * time.Millisecond
		}
	}

	return track, nil
}

// GenerateConfig controls the orbit demo
type GenerateConfig struct {
	Bots     int
	Frames   int
	Interval time.Duration
	Width    int32
	Height   int32
}

// idSpace keeps generated ids stable across runs
var idSpace = uuid.MustParse("6f1d8a52-2b0e-4c59-9a57-2f2d0d7e4c11")

func stableID(name string) string {
	return uuid.NewSHA1(idSpace, []byte(name)).String()
}

// GenerateTrack builds bots circling the arena centre at different radii and
// speeds. Headings are reported in [0, 2π) so they jump across zero as bots
// come round.
func GenerateTrack(config GenerateConfig) *Track {
	if config.Bots <= 0 {
		config.Bots = 4
	}
	if config.Frames <= 0 {
		config.Frames = 600
	}
	if config.Interval <= 0 {
		config.Interval = 50 * time.Millisecond
	}
	if config.Width <= 0 {
		config.Width = 1280
	}
	if config.Height <= 0 {
		config.Height = 720
	}

	cx, cy := float64(config.Width)/2, float64(config.Height)/2
	maxRadius := math.Min(cx, cy) * 0.9

	type bot struct {
		id, name      string
		radius, speed float64 // px, rad/s
		phase         float64
	}

	bots := make([]bot, config.Bots)
	for i := range bots {
		dir := 1.0
		if i%2 == 1 {
			dir = -1
		}
		bots[i] = bot{
			id:     stableID(fmt.Sprintf("bot-%d", i)),
			name:   fmt.Sprintf("bot-%d", i+1),
			radius: maxRadius * float64(i+1) / float64(config.Bots),
			speed:  dir * (0.6 + 0.3*float64(i)),
			phase:  float64(i) * math.Pi / 3,
		}
	}

	const (
		shotEvery = 20  // frames between shots
		shotSpeed = 300 // px/s
	)

	track := &Track{
		Frames:   make([]Frame, config.Frames),
		Interval: config.Interval,
		Width:    config.Width,
		Height:   config.Height,
	}

	step := config.Interval.Seconds()
	for f := range track.Frames {
		sec := float64(f) * step

		frame := Frame{
			At:       int64(f) * config.Interval.Milliseconds(),
			Entities: make([]snapshot.EntityState, len(bots)),
		}

		for i, b := range bots {
			theta := b.phase + b.speed*sec
			pos := snapshot.Vec2{X: cx + b.radius*math.Cos(theta), Y: cy + b.radius*math.Sin(theta)}
			frame.Entities[i] = snapshot.EntityState{
				ID:       b.id,
				Name:     b.name,
				Position: pos,
				Angle:    heading(theta, b.speed),
			}

			// One shot in flight per bot, fired along the heading at the last shot frame
			shot := f / shotEvery
			fired := float64(shot*shotEvery) * step
			ftheta := b.phase + b.speed*fired
			origin := snapshot.Vec2{X: cx + b.radius*math.Cos(ftheta), Y: cy + b.radius*math.Sin(ftheta)}
			dir := heading(ftheta, b.speed)
			age := sec - fired

			bp := snapshot.Vec2{
				X: origin.X + math.Cos(dir)*shotSpeed*age,
				Y: origin.Y + math.Sin(dir)*shotSpeed*age,
			}
			if bp.X < 0 || bp.Y < 0 || bp.X > float64(config.Width) || bp.Y > float64(config.Height) {
				continue
			}
			frame.Bullets = append(frame.Bullets, snapshot.Bullet{
				ID:       stableID(fmt.Sprintf("%s-shot-%d", b.id, shot)),
				Position: bp,
				Angle:    dir,
				Type:     "basic",
				Speed:    shotSpeed,
			})
		}

		track.Frames[f] = frame
	}

	return track
}

// heading is the direction of travel on a circle at theta, in [0, 2π)
func heading(theta, speed float64) float64 {
	h := theta + math.Pi/2
	if speed < 0 {
		h = theta - math.Pi/2
	}
	h = math.Mod(h, 2*math.Pi)
	if h < 0 {
		h += 2 * math.Pi
	}
	return h
}
