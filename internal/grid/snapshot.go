package grid

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// CellRecord is the persisted form of a cell; occupants are not stored.
type CellRecord struct {
	Q      int32   `csv:"q" json:"q"`
	R      int32   `csv:"r" json:"r"`
	IndexQ int32   `csv:"index_q" json:"index_q"`
	IndexR int32   `csv:"index_r" json:"index_r"`
	X      float64 `csv:"x" json:"x"`
	Y      float64 `csv:"y" json:"y"`
	Z      float64 `csv:"z" json:"z"`
	Kind   Kind    `csv:"kind" json:"kind"`
}

// Snapshot captures the generated layout so it can be restored without
// probing again.
type Snapshot struct {
	Radius     int
	Convention hex.Convention
	Transform  hex.LabelTransform
	Cells      []CellRecord
}

// Snapshot returns the current cells in Coords order.
func (ix *Index) Snapshot() Snapshot {
	snap := Snapshot{
		Radius:     ix.radius,
		Convention: ix.conv,
		Transform:  ix.transform,
		Cells:      make([]CellRecord, 0, len(ix.cells)),
	}
	ix.ForEach(func(c Cell) {
		snap.Cells = append(snap.Cells, CellRecord{
			Q: c.Coord.Q, R: c.Coord.R,
			IndexQ: c.Index.Q, IndexR: c.Index.R,
			X: c.Position.X, Y: c.Position.Y, Z: c.Position.Z,
			Kind: c.Kind,
		})
	})
	return snap
}

// Restore replaces the cells with those of a snapshot, asking the tile factory
// for fresh occupants. The snapshot must use the index's convention.
func (ix *Index) Restore(snap Snapshot) error {
	if ix.factory == nil {
		return ErrNoTileFactory
	}
	if snap.Convention != ix.conv {
		return fmt.Errorf("%w: snapshot %s, index %s", ErrConventionMismatch, snap.Convention, ix.conv)
	}
	if err := ix.CheckRadius(snap.Radius); err != nil {
		return fmt.Errorf("grid: snapshot: %w", err)
	}
	if limit := hex.DiskSize(int32(snap.Radius)); len(snap.Cells) > limit {
		return fmt.Errorf("grid: snapshot holds %d cells, radius %d allows %d", len(snap.Cells), snap.Radius, limit)
	}
	cells := make(map[hex.Axial]*Cell, len(snap.Cells))
	for _, rec := range snap.Cells {
		label := hex.Axial{Q: rec.Q, R: rec.R}
		if !ix.conv.Valid(label) {
			return fmt.Errorf("grid: snapshot label %v invalid under %s", label, ix.conv)
		}
		pos := r3.Vec{X: rec.X, Y: rec.Y, Z: rec.Z}
		occ := ix.factory.NewTile(label, pos)
		if occ == nil {
			continue
		}
		cells[label] = &Cell{
			Coord:    label,
			Index:    hex.Axial{Q: rec.IndexQ, R: rec.IndexR},
			Position: pos,
			Kind:     rec.Kind,
			Occupant: occ,
		}
	}
	ix.radius = snap.Radius
	ix.transform = snap.Transform
	ix.cells = cells
	ix.invalidateWorld()
	ix.logger.Info("grid restored", "radius", snap.Radius, "cells", len(cells))
	return nil
}
