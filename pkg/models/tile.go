package models

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Tile is the handle stored with every accepted grid cell.
type Tile struct {
	Coord    hex.Axial `json:"coord"`
	Position r3.Vec    `json:"position"`
}

// NewTile is a grid tile factory.
func NewTile(coord hex.Axial, pos r3.Vec) any {
	return &Tile{Coord: coord, Position: pos}
}
