package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/hex"
	"github.com/gravitas-games/hexmove/internal/movement"
	"github.com/gravitas-games/hexmove/internal/path"
	"github.com/gravitas-games/hexmove/internal/terrain"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all server configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	JWT      JWTConfig      `yaml:"jwt"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Grid     GridConfig     `yaml:"grid"`
	Terrain  TerrainConfig  `yaml:"terrain"`
	Movement MovementConfig `yaml:"movement"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings. An empty address disables the
// token blacklist.
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
}

// SessionConfig holds session settings
type SessionConfig struct {
	MaxPlayers int `yaml:"max_players"`
}

// TraceConfig mirrors grid.TraceSettings.
type TraceConfig struct {
	Height        float64 `yaml:"height"`
	Depth         float64 `yaml:"depth"`
	SkipFloorHits bool    `yaml:"skip_floor_hits"`
	FloorTag      string  `yaml:"floor_tag"`
}

// GridConfig describes how the hex grid is generated and labelled.
type GridConfig struct {
	Radius      int                `yaml:"radius"`
	MaxRadius   int                `yaml:"max_radius"`
	Convention  hex.Convention     `yaml:"convention"`
	Transform   hex.LabelTransform `yaml:"transform"`
	Orientation grid.Orientation   `yaml:"orientation"`
	TileSize    float64            `yaml:"tile_size"`
	XSpacing    float64            `yaml:"x_spacing"`
	YSpacing    float64            `yaml:"y_spacing"`
	Origin      r3.Vec             `yaml:"origin"`
	Nudge       r2.Vec             `yaml:"nudge"`
	TileZOffset float64            `yaml:"tile_z_offset"`
	Trace       TraceConfig        `yaml:"trace"`
	Special     grid.Special       `yaml:"special"`
	// WorldNeighbors builds the nearest-in-world cache after each generation.
	WorldNeighbors bool `yaml:"world_neighbors"`
}

// Layout returns the placement formula.
func (g GridConfig) Layout() grid.Layout {
	return grid.Layout{
		Orientation: g.Orientation,
		TileSize:    g.TileSize,
		XSpacing:    g.XSpacing,
		YSpacing:    g.YSpacing,
		Origin:      g.Origin,
		Nudge:       g.Nudge,
		TileZOffset: g.TileZOffset,
	}
}

// TerrainConfig selects the probe used for generation.
type TerrainConfig struct {
	Mode             string  `yaml:"mode"` // "noise" or "flat"
	FlatZ            float64 `yaml:"flat_z"`
	terrain.Settings `yaml:",inline"`
}

// Probe builds the configured probe.
func (t TerrainConfig) Probe() grid.Probe {
	if strings.EqualFold(t.Mode, "flat") {
		return terrain.Flat{Z: t.FlatZ, Tag: terrain.GroundTag}
	}
	return terrain.NewHeightfield(t.Settings)
}

// EffectiveFloorTag is the tag the noise probe puts on hits below sea level.
func (t TerrainConfig) EffectiveFloorTag() string {
	if t.FloorTag == "" {
		return grid.DefaultFloorTag
	}
	return t.FloorTag
}

// MovementConfig holds turn movement settings
type MovementConfig struct {
	MaxStepsPerTurn int           `yaml:"max_steps_per_turn"` // negative for unlimited
	HopDuration     time.Duration `yaml:"hop_duration"`
	Bridge          bool          `yaml:"bridge"`
	MaxGreedySteps  int           `yaml:"max_greedy_steps"`
	WorldFallback   bool          `yaml:"world_fallback"`
}

// Bridger returns the path repair settings.
func (m MovementConfig) Bridger(logger *slog.Logger) path.Bridger {
	return path.Bridger{MaxGreedySteps: m.MaxGreedySteps, WorldFallback: m.WorldFallback, Logger: logger}
}

// StorageConfig holds snapshot database settings. An empty path disables it.
type StorageConfig struct {
	Path          string `yaml:"path"`
	RestoreLatest bool   `yaml:"restore_latest"`
	SaveOnRebuild bool   `yaml:"save_on_rebuild"`
}

// Load reads the embedded defaults and overlays the YAML file, if any.
func Load(file string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse embedded defaults: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting that would make generation or serving fail.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...)))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		bad("server.port %d", c.Server.Port)
	}
	if c.JWT.PublicKeyRefreshHrs <= 0 {
		bad("jwt.public_key_refresh_hours %d", c.JWT.PublicKeyRefreshHrs)
	}
	if c.Session.MaxPlayers <= 0 {
		bad("session.max_players %d", c.Session.MaxPlayers)
	}
	if c.Grid.MaxRadius <= 0 || c.Grid.MaxRadius > math.MaxInt32 {
		bad("grid.max_radius %d", c.Grid.MaxRadius)
	}
	if c.Grid.Radius <= 0 || c.Grid.Radius > c.Grid.MaxRadius {
		bad("grid.radius %d outside 1..%d", c.Grid.Radius, c.Grid.MaxRadius)
	}
	if err := c.Grid.Layout().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.Grid.Trace.Height < 0 || c.Grid.Trace.Depth < 0 {
		bad("grid.trace window %v/%v", c.Grid.Trace.Height, c.Grid.Trace.Depth)
	}
	switch strings.ToLower(c.Terrain.Mode) {
	case "noise", "flat":
	default:
		bad("terrain.mode %q", c.Terrain.Mode)
	}
	if c.Terrain.SeaLevel < 0 || c.Terrain.SeaLevel > 1 {
		bad("terrain.sea_level %v outside [0,1]", c.Terrain.SeaLevel)
	}
	if tag := c.Terrain.EffectiveFloorTag(); !strings.EqualFold(c.Terrain.Mode, "flat") &&
		c.Grid.Trace.SkipFloorHits && tag != c.Grid.Trace.FloorTag {
		bad("terrain.floor_tag %q differs from grid.trace.floor_tag %q", tag, c.Grid.Trace.FloorTag)
	}
	if c.Movement.HopDuration < 0 {
		bad("movement.hop_duration %v", c.Movement.HopDuration)
	}
	return errors.Join(errs...)
}

// GridOptions converts the grid section to generator options.
func (c *Config) GridOptions(logger *slog.Logger) []grid.Option {
	return []grid.Option{
		grid.WithConvention(c.Grid.Convention),
		grid.WithLabelTransform(c.Grid.Transform),
		grid.WithLayout(c.Grid.Layout()),
		grid.WithTrace(grid.TraceSettings{
			Height:        c.Grid.Trace.Height,
			Depth:         c.Grid.Trace.Depth,
			SkipFloorHits: c.Grid.Trace.SkipFloorHits,
			FloorTag:      c.Grid.Trace.FloorTag,
		}),
		grid.WithSpecial(c.Grid.Special),
		grid.WithMaxRadius(c.Grid.MaxRadius),
		grid.WithLogger(logger),
	}
}

// PlannerOptions converts the movement section to planner options.
func (c *Config) PlannerOptions(logger *slog.Logger) []movement.Option {
	opts := []movement.Option{
		movement.WithMaxStepsPerTurn(c.Movement.MaxStepsPerTurn),
		movement.WithHopDuration(c.Movement.HopDuration),
		movement.WithLogger(logger),
	}
	if c.Movement.Bridge {
		opts = append(opts, movement.WithBridge(c.Movement.Bridger(logger)))
	}
	return opts
}
