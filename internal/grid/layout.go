package grid

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Orientation selects the axis along which alternating rows are staggered.
type Orientation int

const (
	// StaggerRows is the pointy-top layout: rows shift by half a tile.
	StaggerRows Orientation = iota
	// StaggerColumns is the flat-top layout: columns shift by half a tile.
	StaggerColumns
)

func (o Orientation) String() string {
	if o == StaggerColumns {
		return "columns"
	}
	return "rows"
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "", "rows", "pointy", "pointy-top":
		*o = StaggerRows
	case "columns", "flat", "flat-top":
		*o = StaggerColumns
	default:
		return fmt.Errorf("unknown stagger orientation %q", string(b))
	}
	return nil
}

// Layout places generation indices in the world.
type Layout struct {
	Orientation Orientation
	// TileSize is the hex radius (corner to center) in world units.
	TileSize float64
	// XSpacing and YSpacing scale the ideal spacing on each axis. Values other
	// than 1 distort the grid and can make nearest-in-world neighbors disagree
	// with the formulaic table.
	XSpacing float64
	YSpacing float64
	Origin   r3.Vec
	Nudge    r2.Vec
	// TileZOffset lifts every tile above its probe hit.
	TileZOffset float64
}

// DefaultLayout returns a regular pointy-top layout with 250 unit tiles.
func DefaultLayout() Layout {
	return Layout{
		Orientation: StaggerRows,
		TileSize:    250,
		XSpacing:    1,
		YSpacing:    1,
		TileZOffset: 1,
	}
}

// Validate reports layout parameters that cannot place tiles.
func (l Layout) Validate() error {
	if l.TileSize <= 0 || math.IsNaN(l.TileSize) || math.IsInf(l.TileSize, 0) {
		return fmt.Errorf("%w: tile size %v", ErrInvalidLayout, l.TileSize)
	}
	if l.XSpacing <= 0 || l.YSpacing <= 0 {
		return fmt.Errorf("%w: spacing %v x %v", ErrInvalidLayout, l.XSpacing, l.YSpacing)
	}
	return nil
}

// Position converts a standard axial generation index to a planar world point.
func (l Layout) Position(idx hex.Axial) r2.Vec {
	q := float64(idx.Q)
	r := float64(idx.R)
	var x, y float64
	switch l.Orientation {
	case StaggerColumns:
		// flat-top: x = size*3/2*q; y = size*sqrt(3)*(r + q/2)
		x = l.TileSize * 1.5 * q
		y = l.TileSize * math.Sqrt(3) * (r + q/2.0)
	default:
		// pointy-top: x = size*sqrt(3)*(q + r/2); y = size*3/2*r
		x = l.TileSize * math.Sqrt(3) * (q + r/2.0)
		y = l.TileSize * 1.5 * r
	}
	return r2.Vec{
		X: l.Origin.X + l.Nudge.X + x*l.XSpacing,
		Y: l.Origin.Y + l.Nudge.Y + y*l.YSpacing,
	}
}

// NeighborSpacing is the planar distance between adjacent tile centers on an
// undistorted layout.
func (l Layout) NeighborSpacing() float64 {
	return l.TileSize * math.Sqrt(3)
}

// ErrInvalidLayout is wrapped by Layout.Validate.
var ErrInvalidLayout = errors.New("grid: invalid layout")
