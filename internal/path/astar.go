// Package path finds and repairs movement paths over a hex grid. It only
// sees the grid through Graph, so it does not care which label convention the
// grid uses.
package path

import (
	"container/heap"
	"math"

	"github.com/zyedidia/generic/mapset"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Graph is the read surface the path finder needs from a grid.
// *grid.Index satisfies it.
type Graph interface {
	Has(a hex.Axial) bool
	Neighbors(a hex.Axial) []hex.Axial
	Distance(a, b hex.Axial) int
}

// WorldGraph is a Graph that also exposes nearest-in-world neighbors.
type WorldGraph interface {
	Graph
	WorldNeighbors(a hex.Axial) []hex.Axial
}

// FindPath returns the shortest start→goal path over existing cells,
// inclusive of both ends. It returns [start] when start == goal and nil when
// either end is absent or the goal is unreachable. Every edge costs 1 and the
// grid's closed-form distance is the heuristic.
func FindPath(start, goal hex.Axial, g Graph) []hex.Axial {
	if start == goal {
		return []hex.Axial{start}
	}
	if g == nil || !g.Has(start) || !g.Has(goal) {
		return nil
	}
	return AStar(start, goal,
		func(a hex.Axial) int { return g.Distance(a, goal) },
		g.Neighbors,
		func(a, b hex.Axial) int { return 1 },
	)
}

// AStar computes a shortest path using the A* algorithm.
//   - start, goal: grid labels
//   - h: admissible heuristic (e.g., the grid's distance to goal)
//   - neighbors: returns adjacent labels to explore
//   - cost: edge cost between two adjacent labels (must be >=1)
//
// Among open nodes with equal f the one with the larger g is expanded first,
// then the one pushed earliest, so results are deterministic.
// Returns the path including start and goal, or nil if no path exists.
func AStar(start, goal hex.Axial,
	h func(a hex.Axial) int,
	neighbors func(a hex.Axial) []hex.Axial,
	cost func(a, b hex.Axial) int,
) []hex.Axial {
	if start == goal {
		return []hex.Axial{start}
	}
	open := &nodePQ{}
	heap.Init(open)
	var seq int
	push := func(a hex.Axial, g int, f float64) {
		heap.Push(open, &pqNode{a: a, g: g, f: f, seq: seq})
		seq++
	}

	g := map[hex.Axial]int{start: 0}
	came := map[hex.Axial]hex.Axial{}
	closed := mapset.New[hex.Axial]()
	push(start, 0, float64(h(start)))

	for open.Len() > 0 {
		node := heap.Pop(open).(*pqNode)
		cur := node.a
		if closed.Has(cur) || node.g != g[cur] {
			continue
		}
		closed.Put(cur)
		if cur == goal {
			return reconstruct(came, start, goal)
		}
		for _, nb := range neighbors(cur) {
			if closed.Has(nb) {
				continue
			}
			step := cost(cur, nb)
			if step <= 0 {
				step = 1
			}
			tentative := g[cur] + step
			old, ok := g[nb]
			if !ok || tentative < old {
				g[nb] = tentative
				came[nb] = cur
				f := float64(tentative + h(nb))
				// guard against NaN/Inf
				if math.IsNaN(f) || math.IsInf(f, 0) {
					f = float64(tentative)
				}
				push(nb, tentative, f)
			}
		}
	}
	return nil
}

// reconstruct follows parent links from goal back to start, then reverses.
func reconstruct(came map[hex.Axial]hex.Axial, start, goal hex.Axial) []hex.Axial {
	path := []hex.Axial{goal}
	cur := goal
	for cur != start {
		prev, ok := came[cur]
		if !ok {
			return nil
		}
		cur = prev
		path = append(path, cur)
	}
	reverse(path)
	return path
}

func reverse(p []hex.Axial) {
	for i, j := 0, len(p)-1; i < j; i, j = i+1, j-1 {
		p[i], p[j] = p[j], p[i]
	}
}

// PQ implementation
type pqNode struct {
	a   hex.Axial
	f   float64
	g   int
	seq int
}

type nodePQ []*pqNode

func (p nodePQ) Len() int { return len(p) }
func (p nodePQ) Less(i, j int) bool {
	if p[i].f != p[j].f {
		return p[i].f < p[j].f
	}
	if p[i].g != p[j].g {
		return p[i].g > p[j].g
	}
	return p[i].seq < p[j].seq
}
func (p nodePQ) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p *nodePQ) Push(x any)   { *p = append(*p, x.(*pqNode)) }
func (p *nodePQ) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}
