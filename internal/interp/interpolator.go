// ABOUTME: Render-time sampling over the snapshot buffer
// ABOUTME: Finds the bracketing snapshot pair and blends it into a frame
package interp

import (
	"github.com/harperreed/snapline/internal/snapshot"
)

// Phase is the effective session state derived from buffer contents and render time
type Phase int

const (
	// PhaseUninitialized means no snapshot has ever been pushed
	PhaseUninitialized Phase = iota
	// PhaseBuffering means every buffered snapshot is newer than the render time
	PhaseBuffering
	// PhaseSteady means the render time sits inside a bracket
	PhaseSteady
	// PhaseStale means the render time has outrun the newest snapshot
	PhaseStale
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseBuffering:
		return "buffering"
	case PhaseSteady:
		return "steady"
	case PhaseStale:
		return "stale"
	}
	return "unknown"
}

// Frame is the state to draw for one render tick
type Frame struct {
	Player       snapshot.EntityState
	OtherPlayers []snapshot.EntityState
	Bullets      []snapshot.Bullet

	RenderTime float64 // Server milliseconds being displayed
	Ratio      float64 // Blend factor inside the bracket, 0 outside one
	Phase      Phase
}

// Interpolator samples a buffer at arbitrary render times
type Interpolator struct {
	buf *snapshot.Buffer
}

// New creates an interpolator over buf
func New(buf *snapshot.Buffer) *Interpolator {
	return &Interpolator{buf: buf}
}

// Sample samples at the buffer's current render time
func (ip *Interpolator) Sample() *Frame {
	return ip.SampleAt(ip.buf.CurrentRenderTime())
}

// SampleAt returns the world state to display at renderTime, or nil when the
// buffer is empty. Outside a bracket the nearest snapshot is returned
// unblended: the earliest one before the data starts, the latest one after it
// ends. Nothing is extrapolated.
func (ip *Interpolator) SampleAt(renderTime float64) *Frame {
	n := ip.buf.Len()
	if n == 0 {
		return nil
	}

	i := ip.buf.FindBracketIndex(renderTime)

	switch {
	case i < 0:
		return passthrough(ip.buf.At(0), renderTime, PhaseBuffering)
	case i == n-1:
		return passthrough(ip.buf.At(i), renderTime, PhaseStale)
	}

	lower := ip.buf.At(i)
	upper := ip.buf.At(i + 1)
	ratio := Ratio(renderTime, lower.Timestamp, upper.Timestamp)

	return &Frame{
		Player:       LerpEntity(lower.Player, upper.Player, ratio),
		OtherPlayers: LerpEntityList(lower.OtherPlayers, upper.OtherPlayers, ratio),
		Bullets:      LerpBullets(lower.Bullets, upper.Bullets, ratio),
		RenderTime:   renderTime,
		Ratio:        ratio,
		Phase:        PhaseSteady,
	}
}

// PhaseAt reports the effective phase at renderTime without building a frame
func (ip *Interpolator) PhaseAt(renderTime float64) Phase {
	if !ip.buf.Initialized() || ip.buf.Len() == 0 {
		return PhaseUninitialized
	}

	i := ip.buf.FindBracketIndex(renderTime)
	switch {
	case i < 0:
		return PhaseBuffering
	case i == ip.buf.Len()-1:
		return PhaseStale
	}
	return PhaseSteady
}

// passthrough copies a snapshot into a frame so renderers never alias buffer memory
func passthrough(s snapshot.Snapshot, renderTime float64, phase Phase) *Frame {
	return &Frame{
		Player:       s.Player,
		OtherPlayers: cloneEntities(s.OtherPlayers),
		Bullets:      cloneBullets(s.Bullets),
		RenderTime:   renderTime,
		Phase:        phase,
	}
}

func cloneEntities(in []snapshot.EntityState) []snapshot.EntityState {
	if in == nil {
		return nil
	}
	out := make([]snapshot.EntityState, len(in))
	copy(out, in)
	return out
}

func cloneBullets(in []snapshot.Bullet) []snapshot.Bullet {
	if in == nil {
		return nil
	}
	out := make([]snapshot.Bullet, len(in))
	copy(out, in)
	return out
}
