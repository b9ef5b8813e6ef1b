package game

import (
	"math/rand"
	"time"
)

// Hotspot is the clickable position revealing a stage, in percent of the room.
type Hotspot struct {
	X float64
	Y float64
}

// Hotspot bounds keep the object away from the room edges.
const (
	hotspotMinX  = 15.0
	hotspotSpanX = 70.0
	hotspotMinY  = 20.0
	hotspotSpanY = 60.0
)

// Placer draws hotspot positions.
type Placer struct {
	rnd *rand.Rand
}

// NewPlacer returns a Placer seeded with the current time.
func NewPlacer() *Placer {
	return &Placer{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeededPlacer returns a deterministic Placer.
func NewSeededPlacer(seed int64) *Placer {
	return &Placer{rnd: rand.New(rand.NewSource(seed))}
}

// Place draws x in [15,85] and y in [20,80] independently and uniformly.
func (p *Placer) Place() Hotspot {
	return Hotspot{
		X: hotspotMinX + p.rnd.Float64()*hotspotSpanX,
		Y: hotspotMinY + p.rnd.Float64()*hotspotSpanY,
	}
}

// Cell maps the hotspot to a cell of a width x height grid.
func (h Hotspot) Cell(width, height int) (col, row int) {
	col = int(h.X / 100 * float64(width))
	row = int(h.Y / 100 * float64(height))
	if col >= width {
		col = width - 1
	}
	if row >= height {
		row = height - 1
	}
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	return col, row
}
