package path

import (
	"log/slog"

	"github.com/zyedidia/generic/mapset"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// DefaultMaxGreedySteps bounds the greedy tier of Bridge.
const DefaultMaxGreedySteps = 32

// BridgeStats counts how each non-adjacent hop was handled.
type BridgeStats struct {
	Bridged int // repaired by BFS over existing cells
	Greedy  int // repaired by the greedy world-neighbor walk; not grid-adjacent
	Dropped int // could not be repaired and were removed
}

// Lossy reports whether any waypoint was dropped.
func (s BridgeStats) Lossy() bool { return s.Dropped > 0 }

// Bridger repairs paths whose consecutive steps are not grid neighbors.
type Bridger struct {
	// MaxGreedySteps caps the greedy fallback per hop.
	MaxGreedySteps int
	// WorldFallback enables the greedy tier over nearest-in-world neighbors
	// when the graph provides them. Hops produced that way need not be
	// formulaic neighbors, so a repaired path may fail Adjacent.
	WorldFallback bool
	Logger        *slog.Logger
}

// DefaultBridger enables the world-neighbor fallback.
func DefaultBridger() Bridger {
	return Bridger{MaxGreedySteps: DefaultMaxGreedySteps, WorldFallback: true}
}

// Bridge repairs p with DefaultBridger.
func Bridge(p []hex.Axial, g Graph) []hex.Axial {
	out, _ := DefaultBridger().Bridge(p, g)
	return out
}

// Bridge walks p pairwise. Adjacent pairs are kept. Otherwise a BFS chain
// over existing cells is spliced in (start excluded, end included). When BFS
// fails the target is unreachable over formulaic adjacency, so the only
// remaining repair is a bounded greedy walk over world neighbors, enabled by
// WorldFallback; its hops are counted in Greedy and are not grid-adjacent.
// Failing that, the target waypoint is dropped and the next pair starts from
// the last kept point. A path that is already adjacent comes back unchanged.
func (b Bridger) Bridge(p []hex.Axial, g Graph) ([]hex.Axial, BridgeStats) {
	var st BridgeStats
	if len(p) == 0 {
		return nil, st
	}
	out := make([]hex.Axial, 1, len(p))
	out[0] = p[0]
	if len(p) == 1 || g == nil {
		return append(out, p[1:]...), st
	}

	prev := p[0]
	for _, next := range p[1:] {
		if next == prev {
			continue
		}
		if isNeighbor(g, prev, next) {
			out = append(out, next)
			prev = next
			continue
		}
		if chain := BFS(prev, next, g.Neighbors); chain != nil {
			out = append(out, chain[1:]...)
			st.Bridged++
			prev = next
			continue
		}
		if chain, ok := b.greedy(prev, next, g); ok {
			out = append(out, chain[1:]...)
			st.Greedy++
			prev = next
			continue
		}
		st.Dropped++
		b.logger().Warn("dropping unreachable waypoint", "from", prev, "to", next)
	}
	return out, st
}

// greedy steps from `from` toward `to` over world neighbors, each time taking
// the candidate that most reduces the closed-form distance. It stops on
// arrival, when no candidate improves, or after MaxGreedySteps. Formulaic
// neighbors are never tried: BFS already exhausted them.
func (b Bridger) greedy(from, to hex.Axial, g Graph) ([]hex.Axial, bool) {
	wg, hasWorld := g.(WorldGraph)
	if !b.WorldFallback || !hasWorld {
		return nil, false
	}
	limit := b.MaxGreedySteps
	if limit <= 0 {
		limit = DefaultMaxGreedySteps
	}

	chain := []hex.Axial{from}
	visited := mapset.New[hex.Axial]()
	visited.Put(from)
	cur := from
	for step := 0; step < limit && cur != to; step++ {
		candidates := wg.WorldNeighbors(cur)
		best, bestD := cur, g.Distance(cur, to)
		for _, c := range candidates {
			if visited.Has(c) {
				continue
			}
			if d := g.Distance(c, to); d < bestD {
				best, bestD = c, d
			}
		}
		if best == cur {
			break
		}
		visited.Put(best)
		chain = append(chain, best)
		cur = best
	}
	return chain, cur == to
}

func (b Bridger) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
