package hex

import (
	"fmt"
	"strings"
)

// Convention selects how cell labels are written. Generation always works in
// standard axial index space; the convention only governs labels, the
// neighbor table and the distance function, which must agree with each other.
type Convention int

const (
	// ConventionAxial labels cells with their standard axial index.
	ConventionAxial Convention = iota
	// ConventionDoubledQ scales Q so east/west neighbors differ by 2.
	ConventionDoubledQ
)

// Directions for axial neighbors in pointy-top orientation.
var axialDirections = [6]Axial{
	{+1, 0}, {+1, -1}, {0, -1}, {-1, 0}, {-1, +1}, {0, +1},
}

// Doubled-q neighbors: same row (±2,0), diagonals (±1,±1).
var doubledQDirections = [6]Axial{
	{+2, 0}, {-2, 0}, {+1, +1}, {-1, +1}, {+1, -1}, {-1, -1},
}

func (c Convention) String() string {
	switch c {
	case ConventionAxial:
		return "axial"
	case ConventionDoubledQ:
		return "doubled-q"
	}
	return fmt.Sprintf("convention(%d)", int(c))
}

// ParseConvention accepts "axial" and "doubled-q" (case-insensitive).
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "axial":
		return ConventionAxial, nil
	case "doubled-q", "doubledq", "doubled_q":
		return ConventionDoubledQ, nil
	}
	return ConventionAxial, fmt.Errorf("unknown coordinate convention %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Convention) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Convention) UnmarshalText(b []byte) error {
	v, err := ParseConvention(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Directions returns the six neighbor deltas in table order.
func (c Convention) Directions() [6]Axial {
	if c == ConventionDoubledQ {
		return doubledQDirections
	}
	return axialDirections
}

// Neighbors returns the six coordinates one table delta away from a.
func (c Convention) Neighbors(a Axial) [6]Axial {
	var out [6]Axial
	for i, d := range c.Directions() {
		out[i] = a.Add(d)
	}
	return out
}

// IsNeighbor reports whether b is exactly one table delta away from a.
func (c Convention) IsNeighbor(a, b Axial) bool {
	d := b.Sub(a)
	for _, dir := range c.Directions() {
		if d == dir {
			return true
		}
	}
	return false
}

// Distance returns the hop count between two labels.
func (c Convention) Distance(a, b Axial) int {
	if c == ConventionDoubledQ {
		dc := abs(int(a.Q) - int(b.Q))
		dr := abs(int(a.R) - int(b.R))
		if dc <= dr {
			return dr
		}
		return dr + (dc-dr)/2
	}
	return DistanceAxial(a, b)
}

// Valid reports whether label can be produced under this convention.
// Doubled-q labels always have Q and R of equal parity.
func (c Convention) Valid(label Axial) bool {
	if c == ConventionDoubledQ {
		return (label.Q-label.R)%2 == 0
	}
	return true
}

// FromIndex converts a standard axial index to a label.
func (c Convention) FromIndex(idx Axial) Axial {
	if c == ConventionDoubledQ {
		return Axial{Q: 2*idx.Q + idx.R, R: idx.R}
	}
	return idx
}

// ToIndex converts a label back to a standard axial index.
func (c Convention) ToIndex(label Axial) (Axial, bool) {
	if !c.Valid(label) {
		return Axial{}, false
	}
	if c == ConventionDoubledQ {
		return Axial{Q: (label.Q - label.R) / 2, R: label.R}, true
	}
	return label, true
}
