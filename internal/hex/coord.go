// Package hex holds the coordinate types shared by the grid and the path
// finder: axial keys, the two labeling conventions and the shapes used to
// enumerate generation indices.
package hex

import (
	"fmt"
	"strconv"
	"strings"
)

// Axial is a hex cell key (q, r). Whether it is read as standard axial or
// doubled-q depends on the Convention it was produced under.
type Axial struct {
	Q int32 `yaml:"q" json:"q"`
	R int32 `yaml:"r" json:"r"`
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Add returns a+b.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Sub returns a-b.
func (a Axial) Sub(b Axial) Axial { return Axial{a.Q - b.Q, a.R - b.R} }

// Mul scales a by k.
func (a Axial) Mul(k int32) Axial { return Axial{a.Q * k, a.R * k} }

// Neg returns -a.
func (a Axial) Neg() Axial { return Axial{-a.Q, -a.R} }

// Less orders coordinates by R, then Q.
func (a Axial) Less(b Axial) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	return a.Q < b.Q
}

func (a Axial) String() string { return fmt.Sprintf("(%d,%d)", a.Q, a.R) }

// Hash mixes Q and R into a 64-bit value.
func (a Axial) Hash() uint64 {
	x := uint64(uint32(a.Q)) * 0x9E3779B97F4A7C15
	x ^= uint64(uint32(a.R)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	x ^= x >> 31
	return x
}

// ToCube converts standard axial to cube.
func (a Axial) ToCube() Cube {
	x := int(a.Q)
	z := int(a.R)
	return Cube{X: x, Y: -x - z, Z: z}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: int32(c.X), R: int32(c.Z)} }

// ParseAxial reads "q,r".
func ParseAxial(s string) (Axial, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Axial{}, fmt.Errorf("invalid coordinate %q: want q,r", s)
	}
	q, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 32)
	if err != nil {
		return Axial{}, fmt.Errorf("invalid q in %q: %w", s, err)
	}
	r, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
	if err != nil {
		return Axial{}, fmt.Errorf("invalid r in %q: %w", s, err)
	}
	return Axial{Q: int32(q), R: int32(r)}, nil
}

// DistanceAxial returns hex distance between two standard axial coords.
func DistanceAxial(a, b Axial) int {
	return DistanceCube(a.ToCube(), b.ToCube())
}

// DistanceCube returns hex distance between two cube coords.
func DistanceCube(a, b Cube) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	dz := abs(a.Z - b.Z)
	if dx > dy && dx > dz {
		return dx
	}
	if dy > dz {
		return dy
	}
	return dz
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
