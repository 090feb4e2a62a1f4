package grid

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Kind tags a cell for the gameplay layer; the grid only stores it.
type Kind uint8

const (
	KindNormal Kind = iota
	KindShop
	KindSpawn
	KindGoal
)

func (k Kind) String() string {
	switch k {
	case KindShop:
		return "shop"
	case KindSpawn:
		return "spawn"
	case KindGoal:
		return "goal"
	}
	return "normal"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return KindNormal, nil
	case "shop":
		return KindShop, nil
	case "spawn":
		return KindSpawn, nil
	case "goal":
		return KindGoal, nil
	}
	return KindNormal, fmt.Errorf("unknown cell kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Cell is one admitted tile.
type Cell struct {
	Coord    hex.Axial // public label
	Index    hex.Axial // generation index
	Position r3.Vec
	Kind     Kind
	Occupant any
}

// Planar returns the cell's horizontal position.
func (c Cell) Planar() r2.Vec { return r2.Vec{X: c.Position.X, Y: c.Position.Y} }

// Special lists labels that receive a non-normal kind after generation.
type Special struct {
	Shop  []hex.Axial `yaml:"shop"`
	Spawn []hex.Axial `yaml:"spawn"`
	Goal  []hex.Axial `yaml:"goal"`
}

func (s Special) each(fn func(hex.Axial, Kind)) {
	for _, a := range s.Shop {
		fn(a, KindShop)
	}
	for _, a := range s.Spawn {
		fn(a, KindSpawn)
	}
	for _, a := range s.Goal {
		fn(a, KindGoal)
	}
}
