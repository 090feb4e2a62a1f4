// Package grid owns which hex cells exist and how they connect. Cells are
// generated once from a placement probe, indexed by label, and queried by the
// path finder and the movement layer.
package grid

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

var (
	ErrInvalidRadius      = errors.New("grid: radius out of range")
	ErrNoTileFactory      = errors.New("grid: tile factory is nil")
	ErrNoProbe            = errors.New("grid: placement probe is nil")
	ErrConventionMismatch = errors.New("grid: snapshot convention differs from index")
)

// DefaultMaxRadius bounds Generate. A radius-r disk holds 3r(r+1)+1 cells and
// the world-neighbor cache is quadratic in that count.
const DefaultMaxRadius = 64

// Option configures an Index.
type Option func(*Index)

// WithConvention selects the label convention.
func WithConvention(c hex.Convention) Option {
	return func(ix *Index) { ix.conv = c }
}

// WithLabelTransform mirrors or swaps labels relative to generation indices.
func WithLabelTransform(t hex.LabelTransform) Option {
	return func(ix *Index) { ix.transform = t }
}

// WithLayout sets the world placement formula.
func WithLayout(l Layout) Option {
	return func(ix *Index) { ix.layout = l }
}

// WithTrace sets the probe window and floor rule.
func WithTrace(t TraceSettings) Option {
	return func(ix *Index) { ix.trace = t }
}

// WithTileFactory sets the occupant factory.
func WithTileFactory(f TileFactory) Option {
	return func(ix *Index) { ix.factory = f }
}

// WithSpecial assigns kinds to labels after each generation.
func WithSpecial(s Special) Option {
	return func(ix *Index) { ix.special = s }
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// WithMaxRadius sets the largest radius Generate accepts. Values <= 0 keep
// DefaultMaxRadius.
func WithMaxRadius(r int) Option {
	return func(ix *Index) {
		if r > 0 {
			ix.maxRadius = r
		}
	}
}

// Index maps labels to cells. It is built by Generate or Restore and is
// read-only otherwise; callers must not query it while a rebuild is running.
type Index struct {
	conv      hex.Convention
	transform hex.LabelTransform
	layout    Layout
	trace     TraceSettings
	factory   TileFactory
	special   Special
	logger    *slog.Logger
	maxRadius int

	radius int
	cells  map[hex.Axial]*Cell

	world      map[hex.Axial][]hex.Axial
	worldValid bool
}

// New creates an empty index.
func New(opts ...Option) *Index {
	ix := &Index{
		conv:      hex.ConventionAxial,
		layout:    DefaultLayout(),
		trace:     DefaultTraceSettings(),
		maxRadius: DefaultMaxRadius,
		cells:     make(map[hex.Axial]*Cell),
	}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.logger == nil {
		ix.logger = slog.Default()
	}
	ix.logger = ix.logger.With("component", "grid")
	return ix
}

// Stats summarises one Generate pass.
type Stats struct {
	Candidates      int
	Accepted        int
	RejectedNoHit   int
	RejectedFloor   int
	RejectedFactory int
	Collisions      int
	MissingSpecial  int
}

// Generate rebuilds the index from a disk of generation indices. Each
// candidate is placed by the layout, probed for height, and admitted unless the
// probe missed or hit a floor-tagged surface. On a configuration error the
// index is left as it was.
func (ix *Index) Generate(radius int, probe Probe) (Stats, error) {
	var st Stats
	if err := ix.CheckRadius(radius); err != nil {
		return st, err
	}
	if ix.factory == nil {
		return st, ErrNoTileFactory
	}
	if probe == nil {
		return st, ErrNoProbe
	}
	if err := ix.layout.Validate(); err != nil {
		return st, err
	}

	top := ix.layout.Origin.Z + ix.trace.Height
	bottom := ix.layout.Origin.Z - ix.trace.Depth

	indices := hex.Disk(hex.Axial{}, int32(radius))
	cells := make(map[hex.Axial]*Cell, len(indices))
	for _, idx := range indices {
		st.Candidates++
		at := ix.layout.Position(idx)
		hit, ok := probe.Trace(at, top, bottom)
		if !ok {
			st.RejectedNoHit++
			continue
		}
		if ix.trace.SkipFloorHits && hit.Tag != "" && hit.Tag == ix.trace.FloorTag {
			st.RejectedFloor++
			continue
		}

		label := hex.MapIndexToAxial(ix.conv, ix.transform, idx)
		pos := r3.Vec{X: at.X, Y: at.Y, Z: hit.Z + ix.layout.TileZOffset}
		occ := ix.factory.NewTile(label, pos)
		if occ == nil {
			st.RejectedFactory++
			ix.logger.Debug("tile factory declined cell", "coord", label)
			continue
		}
		if prev, dup := cells[label]; dup {
			st.Collisions++
			ix.logger.Error("duplicate cell label, keeping last write",
				"coord", label, "first_index", prev.Index, "second_index", idx)
		}
		cells[label] = &Cell{Coord: label, Index: idx, Position: pos, Occupant: occ}
	}
	st.Accepted = len(cells)
	st.MissingSpecial = ix.applySpecial(cells)

	ix.radius = radius
	ix.cells = cells
	ix.invalidateWorld()

	ix.logger.Info("grid generated",
		"radius", radius,
		"convention", ix.conv,
		"candidates", st.Candidates,
		"accepted", st.Accepted,
		"rejected_no_hit", st.RejectedNoHit,
		"rejected_floor", st.RejectedFloor,
		"collisions", st.Collisions,
	)
	return st, nil
}

// CheckRadius reports ErrInvalidRadius unless 0 < radius <= MaxRadius.
func (ix *Index) CheckRadius(radius int) error {
	if radius <= 0 || radius > ix.maxRadius || radius > math.MaxInt32 {
		return fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidRadius, radius, ix.maxRadius)
	}
	return nil
}

// MaxRadius returns the largest radius Generate accepts.
func (ix *Index) MaxRadius() int { return ix.maxRadius }

func (ix *Index) applySpecial(cells map[hex.Axial]*Cell) int {
	missing := 0
	ix.special.each(func(a hex.Axial, k Kind) {
		c, ok := cells[a]
		if !ok {
			missing++
			ix.logger.Warn("special tile not generated", "coord", a, "kind", k)
			return
		}
		c.Kind = k
	})
	return missing
}

// Convention returns the label convention in use.
func (ix *Index) Convention() hex.Convention { return ix.conv }

// Layout returns the placement formula in use.
func (ix *Index) Layout() Layout { return ix.layout }

// Radius returns the radius of the last generation, 0 if none.
func (ix *Index) Radius() int { return ix.radius }

// Len returns the number of cells.
func (ix *Index) Len() int { return len(ix.cells) }

// Has reports whether a cell exists at coord.
func (ix *Index) Has(coord hex.Axial) bool {
	_, ok := ix.cells[coord]
	return ok
}

// CellAt returns a copy of the cell at coord.
func (ix *Index) CellAt(coord hex.Axial) (Cell, bool) {
	c, ok := ix.cells[coord]
	if !ok {
		return Cell{}, false
	}
	return *c, true
}

// Coords returns every label ordered by R then Q.
func (ix *Index) Coords() []hex.Axial {
	out := make([]hex.Axial, 0, len(ix.cells))
	for a := range ix.cells {
		out = append(out, a)
	}
	slices.SortFunc(out, compareAxial)
	return out
}

// ForEach visits cells in Coords order.
func (ix *Index) ForEach(fn func(Cell)) {
	for _, a := range ix.Coords() {
		fn(*ix.cells[a])
	}
}

// Neighbors applies the convention's six-delta table to coord and keeps the
// labels that exist, in table order.
func (ix *Index) Neighbors(coord hex.Axial) []hex.Axial {
	out := make([]hex.Axial, 0, 6)
	for _, nb := range ix.conv.Neighbors(coord) {
		if _, ok := ix.cells[nb]; ok {
			out = append(out, nb)
		}
	}
	return out
}

// Distance is the closed-form hop count under the index's convention.
func (ix *Index) Distance(a, b hex.Axial) int {
	return ix.conv.Distance(a, b)
}

// SetOccupant replaces the occupant handle of an existing cell.
func (ix *Index) SetOccupant(coord hex.Axial, occ any) bool {
	c, ok := ix.cells[coord]
	if !ok {
		return false
	}
	c.Occupant = occ
	return true
}

// Remove prunes a single cell. The world-neighbor cache becomes stale.
func (ix *Index) Remove(coord hex.Axial) bool {
	if _, ok := ix.cells[coord]; !ok {
		return false
	}
	delete(ix.cells, coord)
	ix.invalidateWorld()
	return true
}

// Clear drops every cell.
func (ix *Index) Clear() {
	ix.cells = make(map[hex.Axial]*Cell)
	ix.radius = 0
	ix.invalidateWorld()
}

// CellsOfKind returns labels of the given kind in Coords order.
func (ix *Index) CellsOfKind(k Kind) []hex.Axial {
	var out []hex.Axial
	for _, a := range ix.Coords() {
		if ix.cells[a].Kind == k {
			out = append(out, a)
		}
	}
	return out
}

func compareAxial(a, b hex.Axial) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	}
	return 0
}
