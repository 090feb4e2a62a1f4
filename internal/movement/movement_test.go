package movement

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/hex"
	"github.com/gravitas-games/hexmove/internal/path"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGrid(t *testing.T, radius int) *grid.Index {
	t.Helper()
	ix := grid.New(
		grid.WithLogger(quietLogger()),
		grid.WithTileFactory(grid.TileFactoryFunc(func(c hex.Axial, _ r3.Vec) any { return c })),
	)
	probe := grid.ProbeFunc(func(r2.Vec, float64, float64) (grid.Hit, bool) { return grid.Hit{Z: 10}, true })
	if _, err := ix.Generate(radius, probe); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	return ix
}

func TestPlanCapsStepsPerTurn(t *testing.T) {
	ix := newGrid(t, 5)
	p := NewPlanner(ix, WithLogger(quietLogger()))
	from, to := hex.Axial{Q: -5, R: 0}, hex.Axial{Q: 5, R: 0}

	mv, err := p.Plan(from, to)
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if len(mv.Planned) != 11 {
		t.Fatalf("expected 11-cell route, got %d", len(mv.Planned))
	}
	if len(mv.Steps) != DefaultMaxStepsPerTurn+1 || len(mv.Hops) != DefaultMaxStepsPerTurn {
		t.Fatalf("expected %d hops, got steps=%d hops=%d", DefaultMaxStepsPerTurn, len(mv.Steps), len(mv.Hops))
	}
	if mv.Reached() {
		t.Fatalf("capped move should not reach the target")
	}
	if mv.Remaining() != 4 {
		t.Fatalf("expected 4 remaining hops, got %d", mv.Remaining())
	}
	if mv.Destination() != mv.Planned[6] {
		t.Fatalf("destination %v, want %v", mv.Destination(), mv.Planned[6])
	}

	// second turn from where the first ended
	next, err := p.Plan(mv.Destination(), to)
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if !next.Reached() || len(next.Hops) != 4 {
		t.Fatalf("expected to arrive in 4 hops, got %+v", next.Steps)
	}
}

func TestPlanUnlimited(t *testing.T) {
	ix := newGrid(t, 5)
	p := NewPlanner(ix, WithMaxStepsPerTurn(-1), WithLogger(quietLogger()))
	mv, err := p.Plan(hex.Axial{Q: -5, R: 0}, hex.Axial{Q: 5, R: 0})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if !mv.Reached() || len(mv.Hops) != 10 {
		t.Fatalf("expected full 10-hop move, got %d hops", len(mv.Hops))
	}
}

func TestPlanSameCell(t *testing.T) {
	ix := newGrid(t, 2)
	p := NewPlanner(ix, WithLogger(quietLogger()))
	mv, err := p.Plan(hex.Axial{}, hex.Axial{})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if len(mv.Hops) != 0 || mv.Duration() != 0 || !mv.Reached() {
		t.Fatalf("expected empty move, got %+v", mv)
	}
}

func TestPlanNoPath(t *testing.T) {
	ix := newGrid(t, 2)
	p := NewPlanner(ix, WithLogger(quietLogger()))
	if _, err := p.Plan(hex.Axial{}, hex.Axial{Q: 7, R: 0}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
	for _, n := range ix.Neighbors(hex.Axial{}) {
		ix.Remove(n)
	}
	if _, err := p.Plan(hex.Axial{}, hex.Axial{Q: 2, R: 0}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("expected ErrNoPath for isolated start, got %v", err)
	}
}

func TestHopsFollowCellPositions(t *testing.T) {
	ix := newGrid(t, 3)
	p := NewPlanner(ix, WithHopDuration(100*time.Millisecond), WithLogger(quietLogger()))
	mv, err := p.Plan(hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 3, R: -3})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if mv.Duration() != 300*time.Millisecond {
		t.Fatalf("expected 300ms, got %v", mv.Duration())
	}
	for i, h := range mv.Hops {
		if h.From != mv.Steps[i] || h.To != mv.Steps[i+1] {
			t.Fatalf("hop %d runs %v->%v, steps %v", i, h.From, h.To, mv.Steps)
		}
		from, _ := ix.CellAt(h.From)
		to, _ := ix.CellAt(h.To)
		if h.FromPos != from.Position || h.ToPos != to.Position {
			t.Fatalf("hop %d positions do not match cells", i)
		}
		if h.Start != time.Duration(i)*100*time.Millisecond {
			t.Fatalf("hop %d starts at %v", i, h.Start)
		}
		mid := h.At(0.5)
		want := r3.Scale(0.5, r3.Add(from.Position, to.Position))
		if r3.Norm(r3.Sub(mid, want)) > 1e-9 {
			t.Fatalf("midpoint %v, want %v", mid, want)
		}
		if h.At(-1) != h.FromPos || h.At(2) != h.ToPos {
			t.Fatalf("At must clamp alpha")
		}
	}
}

func TestPlanWithBridge(t *testing.T) {
	ix := newGrid(t, 3)
	p := NewPlanner(ix, WithBridge(path.DefaultBridger()), WithLogger(quietLogger()))
	mv, err := p.Plan(hex.Axial{Q: -3, R: 0}, hex.Axial{Q: 3, R: 0})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if mv.Bridge != (path.BridgeStats{}) {
		t.Fatalf("A* output needs no repair, got %+v", mv.Bridge)
	}
	if !path.Adjacent(mv.Planned, ix) {
		t.Fatalf("planned route is not adjacent: %v", mv.Planned)
	}
}

func TestFollowerAdvance(t *testing.T) {
	ix := newGrid(t, 3)
	p := NewPlanner(ix, WithHopDuration(time.Second), WithLogger(quietLogger()))
	mv, err := p.Plan(hex.Axial{Q: 0, R: 0}, hex.Axial{Q: 2, R: 0})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	f := NewFollower(mv)
	if f.Current() != mv.Steps[0] {
		t.Fatalf("follower should start at %v", mv.Steps[0])
	}

	pos, done := f.Advance(500 * time.Millisecond)
	if done || r3.Norm(r3.Sub(pos, mv.Hops[0].At(0.5))) > 1e-9 {
		t.Fatalf("unexpected mid-hop state %v done=%v", pos, done)
	}
	if f.Current() != mv.Steps[0] {
		t.Fatalf("current should not change mid-hop")
	}

	_, done = f.Advance(time.Second)
	if done || f.Current() != mv.Steps[1] {
		t.Fatalf("expected to be past the first hop at %v, got %v", mv.Steps[1], f.Current())
	}

	pos, done = f.Advance(time.Hour)
	if !done || !f.Done() || pos != mv.Hops[len(mv.Hops)-1].ToPos || f.Current() != mv.Destination() {
		t.Fatalf("expected playback to finish at %v", mv.Destination())
	}
}

func TestFollowerHoldsStartCellOnEmptyMove(t *testing.T) {
	layout := grid.DefaultLayout()
	layout.Origin = r3.Vec{X: 1000, Y: 2000}
	ix := grid.New(
		grid.WithLogger(quietLogger()),
		grid.WithLayout(layout),
		grid.WithTileFactory(grid.TileFactoryFunc(func(c hex.Axial, _ r3.Vec) any { return c })),
	)
	probe := grid.ProbeFunc(func(r2.Vec, float64, float64) (grid.Hit, bool) { return grid.Hit{Z: 5}, true })
	if _, err := ix.Generate(2, probe); err != nil {
		t.Fatalf("unexpected generate error: %v", err)
	}
	cell, _ := ix.CellAt(hex.Axial{})

	mv, err := NewPlanner(ix, WithLogger(quietLogger())).Plan(hex.Axial{}, hex.Axial{})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}
	if mv.StartPos != cell.Position {
		t.Fatalf("start position %v, want %v", mv.StartPos, cell.Position)
	}
	pos, done := NewFollower(mv).Advance(10 * time.Millisecond)
	if !done || pos != cell.Position {
		t.Fatalf("empty move should stay at %v, got %v done=%v", cell.Position, pos, done)
	}
}

type locatorFunc func(r2.Vec) (hex.Axial, bool)

func (f locatorFunc) Locate(p r2.Vec) (hex.Axial, bool) { return f(p) }

func TestFollowerTracksCellThroughLocator(t *testing.T) {
	ix := newGrid(t, 3)
	p := NewPlanner(ix, WithHopDuration(time.Second), WithLogger(quietLogger()))
	mv, err := p.Plan(hex.Axial{}, hex.Axial{Q: 2, R: 0})
	if err != nil {
		t.Fatalf("unexpected plan error: %v", err)
	}

	f := NewFollower(mv, Tracking(ix))
	f.Advance(1500 * time.Millisecond)
	if f.Current() != mv.Steps[1] {
		t.Fatalf("grid locator should report %v, got %v", mv.Steps[1], f.Current())
	}

	var calls int
	shifted := hex.Axial{Q: -3, R: 3}
	f = NewFollower(mv, Tracking(locatorFunc(func(r2.Vec) (hex.Axial, bool) {
		calls++
		return shifted, true
	})))
	f.Advance(time.Hour)
	f.Advance(time.Second)
	if f.Current() != shifted || calls != len(mv.Hops) {
		t.Fatalf("expected located cell %v after %d lookups, got %v after %d", shifted, len(mv.Hops), f.Current(), calls)
	}
}
