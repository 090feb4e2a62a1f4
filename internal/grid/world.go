package grid

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gravitas-games/hexmove/internal/hex"
)

const worldNeighborCount = 6

// BuildWorldNeighborCache records, for every cell, the six other cells whose
// centers are closest in the horizontal plane. It is O(N²) and must run once
// after generation, not per query. The cache is a fallback for when the
// formulaic table and the physical layout disagree; path finding never reads it.
// Equidistant candidates are ordered by their direction in the convention's
// table, then by label.
func (ix *Index) BuildWorldNeighborCache() {
	type candidate struct {
		coord hex.Axial
		d2    float64
	}

	coords := ix.Coords()
	world := make(map[hex.Axial][]hex.Axial, len(coords))
	buf := make([]candidate, 0, len(coords))
	for _, a := range coords {
		pa := ix.cells[a].Planar()
		table := ix.conv.Neighbors(a)
		buf = buf[:0]
		for _, b := range coords {
			if a == b {
				continue
			}
			buf = append(buf, candidate{coord: b, d2: r2.Norm2(r2.Sub(ix.cells[b].Planar(), pa))})
		}
		slices.SortStableFunc(buf, func(x, y candidate) int {
			if !nearlyEqual(x.d2, y.d2) {
				if x.d2 < y.d2 {
					return -1
				}
				return 1
			}
			if rx, ry := directionRank(table, x.coord), directionRank(table, y.coord); rx != ry {
				return rx - ry
			}
			return compareAxial(x.coord, y.coord)
		})
		n := min(worldNeighborCount, len(buf))
		list := make([]hex.Axial, n)
		for i := 0; i < n; i++ {
			list[i] = buf[i].coord
		}
		world[a] = list
	}
	ix.world = world
	ix.worldValid = true
	ix.logger.Debug("world neighbor cache built", "cells", len(coords))
}

// directionRank is the table index of b, or len(table) when b is not a
// formulaic neighbor.
func directionRank(table [6]hex.Axial, b hex.Axial) int {
	for i, n := range table {
		if n == b {
			return i
		}
	}
	return len(table)
}

// WorldNeighbors returns the cached closest-first neighbors of coord, or nil
// when the cache was never built, went stale, or coord is absent.
func (ix *Index) WorldNeighbors(coord hex.Axial) []hex.Axial {
	if !ix.worldValid {
		return nil
	}
	list, ok := ix.world[coord]
	if !ok {
		return nil
	}
	return slices.Clone(list)
}

// WorldCacheValid reports whether WorldNeighbors reflects the current cells.
func (ix *Index) WorldCacheValid() bool { return ix.worldValid }

func (ix *Index) invalidateWorld() {
	ix.world = nil
	ix.worldValid = false
}

// Locate returns the label of the cell whose center is nearest to p.
func (ix *Index) Locate(p r2.Vec) (hex.Axial, bool) {
	var (
		best  hex.Axial
		bestD = math.Inf(1)
		found bool
	)
	for _, a := range ix.Coords() {
		d := r2.Norm2(r2.Sub(ix.cells[a].Planar(), p))
		if d < bestD && !nearlyEqual(d, bestD) {
			best, bestD, found = a, d, true
		}
	}
	return best, found
}

// Mismatch describes a cell whose formulaic neighbors are not its physically
// nearest cells.
type Mismatch struct {
	Coord     hex.Axial
	Formulaic []hex.Axial
	World     []hex.Axial
}

// Mismatches compares, for every cell, the formulaic neighbor set with the
// same number of closest cells from the world cache. It needs a valid cache
// and returns nil otherwise.
func (ix *Index) Mismatches() []Mismatch {
	if !ix.worldValid {
		return nil
	}
	var out []Mismatch
	for _, a := range ix.Coords() {
		formulaic := ix.Neighbors(a)
		world := ix.world[a]
		n := min(len(formulaic), len(world))
		nearest := world[:n]
		same := len(formulaic) == n
		for _, f := range formulaic {
			if !slices.Contains(nearest, f) {
				same = false
				break
			}
		}
		if !same {
			out = append(out, Mismatch{Coord: a, Formulaic: formulaic, World: slices.Clone(world)})
		}
	}
	return out
}

func nearlyEqual(a, b float64) bool {
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= 1e-9*(1+math.Max(math.Abs(a), math.Abs(b)))
}
