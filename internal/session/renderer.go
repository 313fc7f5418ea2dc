// ABOUTME: Log-based renderer for headless runs
// ABOUTME: Prints a summary of every Nth interpolated frame
package session

import (
	"log"

	"github.com/harperreed/snapline/internal/interp"
)

// LogRenderer logs frames instead of drawing them
type LogRenderer struct {
	Every int // Log one frame in Every (default 60)

	count int64
}

// Render logs the frame if it is due
func (r *LogRenderer) Render(frame *interp.Frame) {
	every := r.Every
	if every <= 0 {
		every = DefaultFPS
	}

	r.count++
	if r.count%int64(every) != 1 && every != 1 {
		return
	}

	p := frame.Player
	log.Printf("Frame %d [%v] t=%.1f ratio=%.2f player=%s (%.1f, %.1f) angle=%.2f others=%d bullets=%d",
		r.count, frame.Phase, frame.RenderTime, frame.Ratio,
		p.Name, p.Position.X, p.Position.Y, p.Angle,
		len(frame.OtherPlayers), len(frame.Bullets))
}

// Count returns how many frames were rendered
func (r *LogRenderer) Count() int64 {
	return r.count
}
