package grid

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// DefaultFloorTag marks probe hits that must not receive a tile (ocean, pit floor).
const DefaultFloorTag = "Floor"

// Hit is the first surface a vertical probe meets.
type Hit struct {
	Z   float64
	Tag string
}

// Probe resolves the surface height under a planar point by tracing from top
// down to bottom. ok is false when nothing was hit.
type Probe interface {
	Trace(at r2.Vec, top, bottom float64) (hit Hit, ok bool)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(at r2.Vec, top, bottom float64) (Hit, bool)

// Trace implements Probe.
func (f ProbeFunc) Trace(at r2.Vec, top, bottom float64) (Hit, bool) { return f(at, top, bottom) }

// TraceSettings controls the vertical probe window and the rejection rule.
type TraceSettings struct {
	Height float64
	Depth  float64
	// SkipFloorHits rejects candidates whose first hit carries FloorTag.
	SkipFloorHits bool
	FloorTag      string
}

// DefaultTraceSettings mirrors a 1000 unit window above and below the origin.
func DefaultTraceSettings() TraceSettings {
	return TraceSettings{
		Height:        1000,
		Depth:         1000,
		SkipFloorHits: true,
		FloorTag:      DefaultFloorTag,
	}
}

// TileFactory produces the occupant handle stored with an accepted cell.
// Returning nil rejects the cell.
type TileFactory interface {
	NewTile(coord hex.Axial, pos r3.Vec) any
}

// TileFactoryFunc adapts a function to TileFactory.
type TileFactoryFunc func(coord hex.Axial, pos r3.Vec) any

// NewTile implements TileFactory.
func (f TileFactoryFunc) NewTile(coord hex.Axial, pos r3.Vec) any { return f(coord, pos) }
