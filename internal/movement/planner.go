// Package movement turns grid paths into per-turn moves: it caps the number
// of steps a unit may take in one turn and schedules the hop-by-hop
// interpolation the animation layer plays back.
package movement

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/hex"
	"github.com/gravitas-games/hexmove/internal/path"
)

const (
	DefaultMaxStepsPerTurn = 6
	DefaultHopDuration     = 250 * time.Millisecond
)

var (
	ErrNoPath      = errors.New("movement: no path")
	ErrMissingCell = errors.New("movement: path crosses a missing cell")
)

// Option configures a Planner.
type Option func(*Planner)

// WithMaxStepsPerTurn sets the per-turn hop allowance. Negative means unlimited.
func WithMaxStepsPerTurn(n int) Option {
	return func(p *Planner) { p.maxSteps = n }
}

// WithHopDuration sets how long one hop takes to play back.
func WithHopDuration(d time.Duration) Option {
	return func(p *Planner) { p.hopDuration = d }
}

// WithBridge repairs each planned path with b before it is capped.
func WithBridge(b path.Bridger) Option {
	return func(p *Planner) {
		p.bridger = b
		p.bridge = true
	}
}

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) { p.logger = l }
}

// Planner plans moves against a grid it does not own.
type Planner struct {
	grid        *grid.Index
	maxSteps    int
	hopDuration time.Duration
	bridge      bool
	bridger     path.Bridger
	logger      *slog.Logger
}

// NewPlanner creates a planner reading from ix.
func NewPlanner(ix *grid.Index, opts ...Option) *Planner {
	p := &Planner{
		grid:        ix,
		maxSteps:    DefaultMaxStepsPerTurn,
		hopDuration: DefaultHopDuration,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.bridger.Logger == nil {
		p.bridger.Logger = p.logger
	}
	return p
}

// MaxStepsPerTurn returns the configured allowance.
func (p *Planner) MaxStepsPerTurn() int { return p.maxSteps }

// Hop is one interpolated step between adjacent cells.
type Hop struct {
	From, To       hex.Axial
	FromPos, ToPos r3.Vec
	Start          time.Duration // offset from the beginning of the move
	Duration       time.Duration
}

// At returns the interpolated position for alpha in [0,1].
func (h Hop) At(alpha float64) r3.Vec {
	if alpha <= 0 {
		return h.FromPos
	}
	if alpha >= 1 {
		return h.ToPos
	}
	return r3.Add(h.FromPos, r3.Scale(alpha, r3.Sub(h.ToPos, h.FromPos)))
}

// Move is the outcome of planning one turn.
type Move struct {
	// Planned is the whole route to the requested target.
	Planned []hex.Axial
	// Steps is the part of Planned walked this turn, start included.
	Steps []hex.Axial
	// StartPos is the world position of Steps[0].
	StartPos r3.Vec
	Hops     []Hop
	Bridge   path.BridgeStats
}

// Duration is the total playback time.
func (m Move) Duration() time.Duration {
	if len(m.Hops) == 0 {
		return 0
	}
	last := m.Hops[len(m.Hops)-1]
	return last.Start + last.Duration
}

// Destination is where the unit stands after this turn.
func (m Move) Destination() hex.Axial {
	if len(m.Steps) == 0 {
		return hex.Axial{}
	}
	return m.Steps[len(m.Steps)-1]
}

// Reached reports whether this turn ends on the requested target.
func (m Move) Reached() bool {
	return len(m.Steps) > 0 && len(m.Planned) > 0 && m.Destination() == m.Planned[len(m.Planned)-1]
}

// Remaining returns the hops still needed after this turn.
func (m Move) Remaining() int {
	if len(m.Planned) == 0 {
		return 0
	}
	return len(m.Planned) - len(m.Steps)
}

// Plan finds a path from→to, optionally bridges it, caps it to the per-turn
// allowance and schedules the hops.
func (p *Planner) Plan(from, to hex.Axial) (Move, error) {
	route := path.FindPath(from, to, p.grid)
	if len(route) == 0 {
		return Move{}, fmt.Errorf("%w: %v -> %v", ErrNoPath, from, to)
	}

	var mv Move
	if p.bridge {
		route, mv.Bridge = p.bridger.Bridge(route, p.grid)
	}
	mv.Planned = route
	mv.Steps = path.Truncate(route, p.maxSteps)
	if len(mv.Steps) == 0 {
		return Move{}, fmt.Errorf("%w: %v -> %v", ErrNoPath, from, to)
	}

	start, ok := p.grid.CellAt(mv.Steps[0])
	if !ok {
		return Move{}, fmt.Errorf("%w: %v", ErrMissingCell, mv.Steps[0])
	}
	mv.StartPos = start.Position

	hops, err := p.schedule(mv.Steps)
	if err != nil {
		return Move{}, err
	}
	mv.Hops = hops

	p.logger.Debug("move planned",
		"from", from, "to", to,
		"planned", len(mv.Planned)-1, "steps", len(mv.Steps)-1,
		"reached", mv.Reached())
	return mv, nil
}

func (p *Planner) schedule(steps []hex.Axial) ([]Hop, error) {
	if len(steps) < 2 {
		return nil, nil
	}
	hops := make([]Hop, 0, len(steps)-1)
	var offset time.Duration
	for i := 1; i < len(steps); i++ {
		from, ok := p.grid.CellAt(steps[i-1])
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrMissingCell, steps[i-1])
		}
		to, ok := p.grid.CellAt(steps[i])
		if !ok {
			return nil, fmt.Errorf("%w: %v", ErrMissingCell, steps[i])
		}
		hops = append(hops, Hop{
			From: from.Coord, To: to.Coord,
			FromPos: from.Position, ToPos: to.Position,
			Start: offset, Duration: p.hopDuration,
		})
		offset += p.hopDuration
	}
	return hops, nil
}
