package path

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// BFS finds a fewest-hops path from start to goal, visiting neighbors in the
// order the callback returns them. Returns nil if goal cannot be reached.
func BFS(start, goal hex.Axial, neighbors func(a hex.Axial) []hex.Axial) []hex.Axial {
	if start == goal {
		return []hex.Axial{start}
	}
	prev := make(map[hex.Axial]hex.Axial)
	visited := mapset.New[hex.Axial]()
	visited.Put(start)
	q := []hex.Axial{start}
	found := false
	for len(q) > 0 && !found {
		cur := q[0]
		q = q[1:]
		for _, nxt := range neighbors(cur) {
			if visited.Has(nxt) {
				continue
			}
			visited.Put(nxt)
			prev[nxt] = cur
			if nxt == goal {
				found = true
				break
			}
			q = append(q, nxt)
		}
	}
	if !found {
		return nil
	}
	return reconstruct(prev, start, goal)
}

// Adjacent reports whether every consecutive pair of p is a grid neighbor.
func Adjacent(p []hex.Axial, g Graph) bool {
	for i := 1; i < len(p); i++ {
		if !isNeighbor(g, p[i-1], p[i]) {
			return false
		}
	}
	return true
}

// Truncate keeps at most maxHops steps after the start. A negative maxHops
// keeps the whole path. The search itself is never affected; this is the
// caller's per-turn allowance.
func Truncate(p []hex.Axial, maxHops int) []hex.Axial {
	if len(p) == 0 {
		return nil
	}
	n := len(p)
	if maxHops >= 0 && n > maxHops+1 {
		n = maxHops + 1
	}
	out := make([]hex.Axial, n)
	copy(out, p[:n])
	return out
}

func isNeighbor(g Graph, a, b hex.Axial) bool {
	for _, n := range g.Neighbors(a) {
		if n == b {
			return true
		}
	}
	return false
}
