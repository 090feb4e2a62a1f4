package grid

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

type testTile struct {
	coord hex.Axial
}

func testFactory() TileFactory {
	return TileFactoryFunc(func(c hex.Axial, _ r3.Vec) any { return &testTile{coord: c} })
}

func flatProbe() Probe {
	return ProbeFunc(func(r2.Vec, float64, float64) (Hit, bool) { return Hit{Z: 0}, true })
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestIndex(opts ...Option) *Index {
	base := []Option{WithTileFactory(testFactory()), WithLogger(quietLogger())}
	return New(append(base, opts...)...)
}

func TestGenerateFullDisk(t *testing.T) {
	ix := newTestIndex()
	st, err := ix.Generate(2, flatProbe())
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if st.Accepted != 19 || ix.Len() != 19 {
		t.Fatalf("expected 19 cells, got stats=%d len=%d", st.Accepted, ix.Len())
	}
	for _, idx := range hex.Disk(hex.Axial{}, 2) {
		c, ok := ix.CellAt(idx)
		if !ok {
			t.Fatalf("expected cell at %v", idx)
		}
		if tile, _ := c.Occupant.(*testTile); tile == nil || tile.coord != idx {
			t.Fatalf("occupant mismatch at %v: %#v", idx, c.Occupant)
		}
		if c.Position.Z != ix.Layout().TileZOffset {
			t.Fatalf("expected z offset %v at %v, got %v", ix.Layout().TileZOffset, idx, c.Position.Z)
		}
	}
	if _, ok := ix.CellAt(hex.Axial{Q: 3, R: 0}); ok {
		t.Fatalf("expected no cell outside radius")
	}
}

func TestGenerateConfigurationErrorsLeaveIndexUnchanged(t *testing.T) {
	ix := newTestIndex()
	if _, err := ix.Generate(1, flatProbe()); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	before := ix.Coords()

	if _, err := ix.Generate(0, flatProbe()); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius, got %v", err)
	}
	if _, err := ix.Generate(-3, flatProbe()); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius for negative radius, got %v", err)
	}
	if _, err := ix.Generate(DefaultMaxRadius+1, flatProbe()); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius above the maximum, got %v", err)
	}
	if ix.Radius() != 1 {
		t.Fatalf("radius changed after failed generate: %d", ix.Radius())
	}
	if _, err := ix.Generate(2, nil); !errors.Is(err, ErrNoProbe) {
		t.Fatalf("expected ErrNoProbe, got %v", err)
	}
	if !slices.Equal(before, ix.Coords()) {
		t.Fatalf("index changed after failed generate")
	}

	noFactory := New(WithLogger(quietLogger()))
	if _, err := noFactory.Generate(2, flatProbe()); !errors.Is(err, ErrNoTileFactory) {
		t.Fatalf("expected ErrNoTileFactory, got %v", err)
	}
	if noFactory.Len() != 0 {
		t.Fatalf("expected empty index, got %d cells", noFactory.Len())
	}

	bad := newTestIndex(WithLayout(Layout{TileSize: 0, XSpacing: 1, YSpacing: 1}))
	if _, err := bad.Generate(2, flatProbe()); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestGenerateRadiusBounds(t *testing.T) {
	ix := newTestIndex(WithMaxRadius(3))
	if ix.MaxRadius() != 3 {
		t.Fatalf("expected max radius 3, got %d", ix.MaxRadius())
	}
	if _, err := ix.Generate(3, flatProbe()); err != nil {
		t.Fatalf("radius at the maximum should generate: %v", err)
	}
	if _, err := ix.Generate(4, flatProbe()); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius, got %v", err)
	}
	if ix.Radius() != 3 || ix.Len() != hex.DiskSize(3) {
		t.Fatalf("index changed after rejected radius: radius %d, %d cells", ix.Radius(), ix.Len())
	}

	if newTestIndex(WithMaxRadius(0)).MaxRadius() != DefaultMaxRadius {
		t.Fatalf("non-positive max radius should keep the default")
	}

	// labels are int32, so the bound holds even when the configured maximum does not
	unbounded := newTestIndex(WithMaxRadius(math.MaxInt))
	if math.MaxInt > math.MaxInt32 {
		huge := int(math.MaxInt32)
		huge++
		if err := unbounded.CheckRadius(huge); !errors.Is(err, ErrInvalidRadius) {
			t.Fatalf("expected ErrInvalidRadius for %d, got %v", huge, err)
		}
	}
}

func TestGenerateRejectsMissesAndFloorHits(t *testing.T) {
	layout := DefaultLayout()
	ocean := layout.Position(hex.Axial{Q: 1, R: 0})
	hole := layout.Position(hex.Axial{Q: -1, R: 0})
	probe := ProbeFunc(func(at r2.Vec, top, bottom float64) (Hit, bool) {
		if at == hole {
			return Hit{}, false
		}
		if at == ocean {
			return Hit{Z: -5, Tag: DefaultFloorTag}, true
		}
		return Hit{Z: 10, Tag: "Land"}, true
	})

	ix := newTestIndex(WithLayout(layout))
	st, err := ix.Generate(1, probe)
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if st.RejectedNoHit != 1 || st.RejectedFloor != 1 || st.Accepted != 5 {
		t.Fatalf("unexpected stats: %+v", st)
	}
	if ix.Has(hex.Axial{Q: 1, R: 0}) || ix.Has(hex.Axial{Q: -1, R: 0}) {
		t.Fatalf("rejected cells were admitted")
	}

	trace := DefaultTraceSettings()
	trace.SkipFloorHits = false
	keep := newTestIndex(WithLayout(layout), WithTrace(trace))
	st, err = keep.Generate(1, probe)
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if st.RejectedFloor != 0 || !keep.Has(hex.Axial{Q: 1, R: 0}) {
		t.Fatalf("floor hit should be admitted when skipping is disabled: %+v", st)
	}
}

func TestProbeWindowFollowsOrigin(t *testing.T) {
	layout := DefaultLayout()
	layout.Origin = r3.Vec{Z: 500}
	var gotTop, gotBottom float64
	probe := ProbeFunc(func(_ r2.Vec, top, bottom float64) (Hit, bool) {
		gotTop, gotBottom = top, bottom
		return Hit{Z: 0}, true
	})
	ix := newTestIndex(WithLayout(layout))
	if _, err := ix.Generate(1, probe); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if gotTop != 1500 || gotBottom != -500 {
		t.Fatalf("unexpected trace window [%v,%v]", gotBottom, gotTop)
	}
}

func TestFactoryMayDeclineCells(t *testing.T) {
	factory := TileFactoryFunc(func(c hex.Axial, _ r3.Vec) any {
		if c == (hex.Axial{}) {
			return nil
		}
		return c
	})
	ix := New(WithTileFactory(factory), WithLogger(quietLogger()))
	st, err := ix.Generate(1, flatProbe())
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if st.RejectedFactory != 1 || ix.Has(hex.Axial{}) {
		t.Fatalf("expected center to be declined: %+v", st)
	}
}

func TestNeighborsProperties(t *testing.T) {
	for _, conv := range []hex.Convention{hex.ConventionAxial, hex.ConventionDoubledQ} {
		ix := newTestIndex(WithConvention(conv))
		if _, err := ix.Generate(3, flatProbe()); err != nil {
			t.Fatalf("unexpected generate error: %v", err)
		}
		// probe labels inside the grid and a ring beyond it
		var probes []hex.Axial
		for _, idx := range hex.Disk(hex.Axial{}, 5) {
			probes = append(probes, conv.FromIndex(idx))
		}
		for _, c := range probes {
			nbs := ix.Neighbors(c)
			if len(nbs) > 6 {
				t.Fatalf("%s: %v has %d neighbors", conv, c, len(nbs))
			}
			for _, n := range nbs {
				if n == c {
					t.Fatalf("%s: %v listed as its own neighbor", conv, c)
				}
				if !ix.Has(n) {
					t.Fatalf("%s: neighbor %v of %v is not in the index", conv, n, c)
				}
				if !conv.IsNeighbor(c, n) {
					t.Fatalf("%s: %v is not a table delta away from %v", conv, n, c)
				}
				if ix.Distance(c, n) != 1 {
					t.Fatalf("%s: neighbor distance %d", conv, ix.Distance(c, n))
				}
			}
		}
		center := conv.FromIndex(hex.Axial{})
		if got := ix.Neighbors(center); len(got) != 6 {
			t.Fatalf("%s: expected 6 neighbors at center, got %v", conv, got)
		}
		want := conv.Neighbors(center)
		if !slices.Equal(ix.Neighbors(center), want[:]) {
			t.Fatalf("%s: neighbors not in table order: %v", conv, ix.Neighbors(center))
		}
	}
}

func TestNoLabelCollisionsForAnyConvention(t *testing.T) {
	transforms := []hex.LabelTransform{{}, {InvertQ: true}, {InvertR: true}, {SwapQR: true}, {InvertQ: true, InvertR: true, SwapQR: true}}
	for _, conv := range []hex.Convention{hex.ConventionAxial, hex.ConventionDoubledQ} {
		for _, tr := range transforms {
			ix := newTestIndex(WithConvention(conv), WithLabelTransform(tr))
			st, err := ix.Generate(4, flatProbe())
			if err != nil {
				t.Fatalf("unexpected generate error: %v", err)
			}
			if st.Collisions != 0 {
				t.Fatalf("%s %+v: %d label collisions", conv, tr, st.Collisions)
			}
			if st.Accepted != hex.DiskSize(4) {
				t.Fatalf("%s %+v: accepted %d, want %d", conv, tr, st.Accepted, hex.DiskSize(4))
			}
		}
	}
}

func TestWorldNeighborsAgreeWithTableOnRegularLayouts(t *testing.T) {
	cases := []struct {
		name   string
		conv   hex.Convention
		tr     hex.LabelTransform
		orient Orientation
	}{
		{"axial rows", hex.ConventionAxial, hex.LabelTransform{}, StaggerRows},
		{"axial columns", hex.ConventionAxial, hex.LabelTransform{}, StaggerColumns},
		{"doubled rows", hex.ConventionDoubledQ, hex.LabelTransform{}, StaggerRows},
		{"doubled columns inverted", hex.ConventionDoubledQ, hex.LabelTransform{InvertQ: true}, StaggerColumns},
		{"axial swapped", hex.ConventionAxial, hex.LabelTransform{SwapQR: true, InvertR: true}, StaggerRows},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			layout := DefaultLayout()
			layout.Orientation = tc.orient
			ix := newTestIndex(WithConvention(tc.conv), WithLabelTransform(tc.tr), WithLayout(layout))
			if _, err := ix.Generate(3, flatProbe()); err != nil {
				t.Fatalf("unexpected generate error: %v", err)
			}
			if ix.WorldNeighbors(tc.conv.FromIndex(hex.Axial{})) != nil {
				t.Fatalf("expected no world neighbors before the cache is built")
			}
			ix.BuildWorldNeighborCache()
			if mm := ix.Mismatches(); len(mm) != 0 {
				t.Fatalf("expected no adjacency mismatch, got %d (first %+v)", len(mm), mm[0])
			}
			center := hex.MapIndexToAxial(tc.conv, tc.tr, hex.Axial{})
			world := ix.WorldNeighbors(center)
			if len(world) != 6 {
				t.Fatalf("expected 6 world neighbors, got %v", world)
			}
			for _, w := range world {
				if !tc.conv.IsNeighbor(center, w) {
					t.Fatalf("world neighbor %v of %v is not formulaic", w, center)
				}
			}
		})
	}
}

func TestWorldNeighborTiesFollowTableOrder(t *testing.T) {
	for _, conv := range []hex.Convention{hex.ConventionAxial, hex.ConventionDoubledQ} {
		for _, tr := range []hex.LabelTransform{{}, {SwapQR: true}, {InvertQ: true, InvertR: true}} {
			ix := newTestIndex(WithConvention(conv), WithLabelTransform(tr))
			if _, err := ix.Generate(2, flatProbe()); err != nil {
				t.Fatalf("unexpected generate error: %v", err)
			}
			ix.BuildWorldNeighborCache()
			center := hex.MapIndexToAxial(conv, tr, hex.Axial{})
			want := conv.Neighbors(center)
			if got := ix.WorldNeighbors(center); !slices.Equal(got, want[:]) {
				t.Fatalf("%s %+v: equidistant neighbors %v, want table order %v", conv, tr, got, want)
			}
		}
	}
}

func TestDistortedLayoutReportsMismatches(t *testing.T) {
	layout := DefaultLayout()
	layout.XSpacing = 0.3
	ix := newTestIndex(WithLayout(layout))
	if _, err := ix.Generate(3, flatProbe()); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	ix.BuildWorldNeighborCache()
	if len(ix.Mismatches()) == 0 {
		t.Fatalf("expected squeezed layout to disagree with the neighbor table")
	}
}

func TestRemoveInvalidatesWorldCache(t *testing.T) {
	ix := newTestIndex()
	if _, err := ix.Generate(2, flatProbe()); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	ix.BuildWorldNeighborCache()
	if !ix.WorldCacheValid() {
		t.Fatalf("expected valid cache")
	}
	if !ix.Remove(hex.Axial{Q: 1, R: 0}) {
		t.Fatalf("expected remove to succeed")
	}
	if ix.Remove(hex.Axial{Q: 1, R: 0}) {
		t.Fatalf("expected second remove to fail")
	}
	if ix.WorldCacheValid() || ix.WorldNeighbors(hex.Axial{}) != nil {
		t.Fatalf("expected stale cache after remove")
	}
	for _, n := range ix.Neighbors(hex.Axial{}) {
		if n == (hex.Axial{Q: 1, R: 0}) {
			t.Fatalf("removed cell still reported as neighbor")
		}
	}
}

func TestSpecialTilesAndOccupants(t *testing.T) {
	special := Special{
		Shop:  []hex.Axial{{Q: 1, R: 0}},
		Spawn: []hex.Axial{{Q: 0, R: 0}},
		Goal:  []hex.Axial{{Q: 9, R: 9}},
	}
	ix := newTestIndex(WithSpecial(special))
	st, err := ix.Generate(2, flatProbe())
	if err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	if st.MissingSpecial != 1 {
		t.Fatalf("expected one missing special tile, got %d", st.MissingSpecial)
	}
	if c, _ := ix.CellAt(hex.Axial{Q: 1, R: 0}); c.Kind != KindShop {
		t.Fatalf("expected shop, got %s", c.Kind)
	}
	if got := ix.CellsOfKind(KindSpawn); len(got) != 1 || got[0] != (hex.Axial{}) {
		t.Fatalf("unexpected spawn cells %v", got)
	}
	if !ix.SetOccupant(hex.Axial{}, "pawn") {
		t.Fatalf("expected SetOccupant to succeed")
	}
	if c, _ := ix.CellAt(hex.Axial{}); c.Occupant != "pawn" {
		t.Fatalf("occupant not replaced: %v", c.Occupant)
	}
	if ix.SetOccupant(hex.Axial{Q: 7, R: 7}, "ghost") {
		t.Fatalf("expected SetOccupant on absent cell to fail")
	}
}

func TestSnapshotRestore(t *testing.T) {
	ix := newTestIndex(WithConvention(hex.ConventionDoubledQ), WithSpecial(Special{Goal: []hex.Axial{{Q: 2, R: 0}}}))
	if _, err := ix.Generate(2, flatProbe()); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	snap := ix.Snapshot()
	if len(snap.Cells) != 19 {
		t.Fatalf("expected 19 records, got %d", len(snap.Cells))
	}

	restored := newTestIndex(WithConvention(hex.ConventionDoubledQ))
	if err := restored.Restore(snap); err != nil {
		t.Fatalf("unexpected restore error: %v", err)
	}
	if !slices.Equal(ix.Coords(), restored.Coords()) {
		t.Fatalf("restored coordinates differ")
	}
	if c, _ := restored.CellAt(hex.Axial{Q: 2, R: 0}); c.Kind != KindGoal {
		t.Fatalf("expected goal kind after restore, got %s", c.Kind)
	}

	other := newTestIndex()
	if err := other.Restore(snap); !errors.Is(err, ErrConventionMismatch) {
		t.Fatalf("expected ErrConventionMismatch, got %v", err)
	}

	small := newTestIndex(WithConvention(hex.ConventionDoubledQ), WithMaxRadius(1))
	if err := small.Restore(snap); !errors.Is(err, ErrInvalidRadius) {
		t.Fatalf("expected ErrInvalidRadius for a snapshot beyond max radius, got %v", err)
	}
	padded := snap
	padded.Radius = 1
	if err := restored.Restore(padded); err == nil {
		t.Fatalf("expected an error for more cells than the radius allows")
	}
	if restored.Len() != 19 {
		t.Fatalf("failed restore changed the index: %d cells", restored.Len())
	}
}

func TestLocateAndClear(t *testing.T) {
	ix := newTestIndex()
	if _, err := ix.Generate(2, flatProbe()); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	target := ix.Layout().Position(hex.Axial{Q: -1, R: 2})
	got, ok := ix.Locate(r2.Vec{X: target.X + 10, Y: target.Y - 15})
	if !ok || got != (hex.Axial{Q: -1, R: 2}) {
		t.Fatalf("Locate returned %v,%v", got, ok)
	}
	ix.Clear()
	if ix.Len() != 0 || ix.Radius() != 0 {
		t.Fatalf("expected empty index after Clear")
	}
	if _, ok := ix.Locate(r2.Vec{}); ok {
		t.Fatalf("expected Locate to fail on empty index")
	}
}

func TestLayoutSpacing(t *testing.T) {
	l := DefaultLayout()
	a := l.Position(hex.Axial{})
	for _, d := range hex.ConventionAxial.Directions() {
		b := l.Position(d)
		if math.Abs(r2.Norm(r2.Sub(b, a))-l.NeighborSpacing()) > 1e-6 {
			t.Fatalf("neighbor %v at distance %v, want %v", d, r2.Norm(r2.Sub(b, a)), l.NeighborSpacing())
		}
	}
}
