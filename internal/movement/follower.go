package movement

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Locator maps a world point back to the cell under it. *grid.Index
// implements it.
type Locator interface {
	Locate(p r2.Vec) (hex.Axial, bool)
}

// FollowerOption configures a Follower.
type FollowerOption func(*Follower)

// Tracking makes the follower re-derive its current cell from the world
// position after every completed hop instead of trusting the hop label.
func Tracking(l Locator) FollowerOption {
	return func(f *Follower) { f.locator = l }
}

// Follower plays a Move back frame by frame.
type Follower struct {
	move    Move
	elapsed time.Duration
	current hex.Axial
	reached int // hops already applied to current
	locator Locator
}

// NewFollower starts playback at the first step of m.
func NewFollower(m Move, opts ...FollowerOption) *Follower {
	f := &Follower{move: m}
	if len(m.Steps) > 0 {
		f.current = m.Steps[0]
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Advance moves playback forward by dt and returns the interpolated position.
// A move without hops stays at its start position.
func (f *Follower) Advance(dt time.Duration) (r3.Vec, bool) {
	if dt > 0 {
		f.elapsed += dt
	}
	if len(f.move.Hops) == 0 {
		return f.move.StartPos, true
	}
	for i, h := range f.move.Hops {
		end := h.Start + h.Duration
		if f.elapsed >= end {
			f.arrive(i, h)
			continue
		}
		alpha := 1.0
		if h.Duration > 0 {
			alpha = float64(f.elapsed-h.Start) / float64(h.Duration)
		}
		return h.At(alpha), false
	}
	last := f.move.Hops[len(f.move.Hops)-1]
	return last.ToPos, true
}

func (f *Follower) arrive(i int, h Hop) {
	if i < f.reached {
		return
	}
	f.reached = i + 1
	f.current = h.To
	if f.locator == nil {
		return
	}
	if at, ok := f.locator.Locate(r2.Vec{X: h.ToPos.X, Y: h.ToPos.Y}); ok {
		f.current = at
	}
}

// Current is the last cell fully reached.
func (f *Follower) Current() hex.Axial { return f.current }

// Done reports whether playback finished.
func (f *Follower) Done() bool { return f.elapsed >= f.move.Duration() }
