package terrain

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gravitas-games/hexmove/internal/grid"
)

// Flat is a level plane at Z.
type Flat struct {
	Z   float64
	Tag string
}

// Trace implements grid.Probe.
func (f Flat) Trace(_ r2.Vec, top, bottom float64) (grid.Hit, bool) {
	if f.Z > top || f.Z < bottom {
		return grid.Hit{}, false
	}
	return grid.Hit{Z: f.Z, Tag: f.Tag}, true
}

// Holes wraps a probe and reports a miss within Tolerance of any listed point.
type Holes struct {
	Probe     grid.Probe
	Points    []r2.Vec
	Tolerance float64
}

// Trace implements grid.Probe.
func (h Holes) Trace(at r2.Vec, top, bottom float64) (grid.Hit, bool) {
	tol2 := h.Tolerance * h.Tolerance
	for _, p := range h.Points {
		if r2.Norm2(r2.Sub(at, p)) <= tol2 {
			return grid.Hit{}, false
		}
	}
	if h.Probe == nil {
		return grid.Hit{}, false
	}
	return h.Probe.Trace(at, top, bottom)
}
