// ABOUTME: Component-wise interpolation helpers
// ABOUTME: Linear position blending and shortest-arc angle blending
package interp

import (
	"math"

	"github.com/harperreed/snapline/internal/snapshot"
)

// Lerp blends a and b: a*(1-t) + b*t
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// LerpPosition blends each axis independently
func LerpPosition(a, b snapshot.Vec2, t float64) snapshot.Vec2 {
	return snapshot.Vec2{
		X: Lerp(a.X, b.X, t),
		Y: Lerp(a.Y, b.Y, t),
	}
}

// WrapAngle maps d into (-π, π] modulo 2π
func WrapAngle(d float64) float64 {
	d = math.Mod(d, 2*math.Pi)
	if d <= -math.Pi {
		d += 2 * math.Pi
	} else if d > math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

// LerpAngle blends two angles along the shortest arc, so 350° -> 10° passes
// through 0° rather than 180°. The result is not normalized.
func LerpAngle(a, b, t float64) float64 {
	return a + WrapAngle(b-a)*t
}

// LerpEntity blends position and angle. Identity and name come from a.
func LerpEntity(a, b snapshot.EntityState, t float64) snapshot.EntityState {
	return snapshot.EntityState{
		ID:       a.ID,
		Name:     a.Name,
		Position: LerpPosition(a.Position, b.Position, t),
		Angle:    LerpAngle(a.Angle, b.Angle, t),
	}
}

// LerpEntityList blends every entity in lower with its same-ID counterpart in
// upper. Entities missing from upper pass through unchanged. The result has
// lower's length and order; entities only in upper are left out until they
// show up in a lower bound.
func LerpEntityList(lower, upper []snapshot.EntityState, t float64) []snapshot.EntityState {
	if lower == nil {
		return nil
	}

	byID := make(map[string]int, len(upper))
	for i := len(upper) - 1; i >= 0; i-- {
		byID[upper[i].ID] = i
	}

	out := make([]snapshot.EntityState, len(lower))
	for i, e := range lower {
		j, ok := byID[e.ID]
		if !ok {
			out[i] = e
			continue
		}
		out[i] = LerpEntity(e, upper[j], t)
	}
	return out
}

// LerpBullets blends bullets that carry the same non-empty ID on both sides.
// Everything else passes through from lower.
func LerpBullets(lower, upper []snapshot.Bullet, t float64) []snapshot.Bullet {
	if lower == nil {
		return nil
	}

	byID := make(map[string]int, len(upper))
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i].ID != "" {
			byID[upper[i].ID] = i
		}
	}

	out := make([]snapshot.Bullet, len(lower))
	for i, b := range lower {
		out[i] = b
		if b.ID == "" {
			continue
		}
		if j, ok := byID[b.ID]; ok {
			out[i].Position = LerpPosition(b.Position, upper[j].Position, t)
			out[i].Angle = LerpAngle(b.Angle, upper[j].Angle, t)
		}
	}
	return out
}

// Ratio returns where renderTime sits between two timestamps, clamped to [0, 1].
// A zero-length (or inverted) interval yields 0.
func Ratio(renderTime float64, lower, upper int64) float64 {
	span := float64(upper - lower)
	if span <= 0 {
		return 0
	}

	r := (renderTime - float64(lower)) / span
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
