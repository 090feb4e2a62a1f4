// Package terrain provides surface probes the grid generator places cells on.
package terrain

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/gravitas-games/hexmove/internal/grid"
)

// GroundTag is carried by hits at or above sea level.
const GroundTag = "Ground"

// Settings configures a Heightfield.
type Settings struct {
	Seed        int64   `yaml:"seed"`
	Octaves     int     `yaml:"octaves"`
	Frequency   float64 `yaml:"frequency"`   // per world unit
	Persistence float64 `yaml:"persistence"` // amplitude falloff per octave
	HeightScale float64 `yaml:"height_scale"`
	// SeaLevel is a normalized height in [0,1]; samples below it report
	// FloorTag so the grid skips them.
	SeaLevel float64 `yaml:"sea_level"`
	FloorTag string  `yaml:"floor_tag"`
	// IslandRadius fades heights toward zero with planar distance from
	// IslandCenter. Zero disables the falloff.
	IslandRadius float64 `yaml:"island_radius"`
	IslandCenter r2.Vec  `yaml:"-"`
}

// DefaultSettings returns gentle rolling terrain without water.
func DefaultSettings() Settings {
	return Settings{
		Seed:        42,
		Octaves:     4,
		Frequency:   0.0005,
		Persistence: 0.5,
		HeightScale: 200,
		FloorTag:    grid.DefaultFloorTag,
	}
}

// Heightfield is a noise-driven grid.Probe.
type Heightfield struct {
	s     Settings
	noise opensimplex.Noise
}

// NewHeightfield builds a heightfield; zero-valued fields take defaults.
func NewHeightfield(s Settings) *Heightfield {
	d := DefaultSettings()
	if s.Octaves <= 0 {
		s.Octaves = d.Octaves
	}
	if s.Frequency <= 0 {
		s.Frequency = d.Frequency
	}
	if s.Persistence <= 0 {
		s.Persistence = d.Persistence
	}
	if s.HeightScale == 0 {
		s.HeightScale = d.HeightScale
	}
	if s.FloorTag == "" {
		s.FloorTag = d.FloorTag
	}
	return &Heightfield{s: s, noise: opensimplex.NewNormalized(s.Seed)}
}

// Settings returns the effective settings.
func (h *Heightfield) Settings() Settings { return h.s }

// Height returns the normalized height in [0,1] at p.
func (h *Heightfield) Height(p r2.Vec) float64 {
	v := octaveNoise(h.noise, p.X, p.Y, h.s.Octaves, h.s.Frequency, h.s.Persistence)
	if h.s.IslandRadius > 0 {
		d := r2.Norm(r2.Sub(p, h.s.IslandCenter)) / h.s.IslandRadius
		v *= math.Max(0, 1-d*d)
	}
	return v
}

// Trace implements grid.Probe. Heights outside [bottom, top] count as a miss.
func (h *Heightfield) Trace(at r2.Vec, top, bottom float64) (grid.Hit, bool) {
	n := h.Height(at)
	z := n * h.s.HeightScale
	if z > top || z < bottom {
		return grid.Hit{}, false
	}
	tag := GroundTag
	if n < h.s.SeaLevel {
		tag = h.s.FloorTag
	}
	return grid.Hit{Z: z, Tag: tag}, true
}

// octaveNoise layers frequencies of noise and renormalizes to the input range.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
