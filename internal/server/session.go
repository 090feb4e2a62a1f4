package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gravitas-games/hexmove/internal/config"
	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/hex"
	"github.com/gravitas-games/hexmove/internal/movement"
	"github.com/gravitas-games/hexmove/internal/network"
	"github.com/gravitas-games/hexmove/internal/path"
	"github.com/gravitas-games/hexmove/internal/persistence"
	"github.com/gravitas-games/hexmove/pkg/models"
)

var (
	ErrSessionFull     = errors.New("session is full")
	ErrUnknownCell     = errors.New("unknown cell")
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrWorldCacheStale = errors.New("world neighbor cache not built")
	ErrEmptyGrid       = errors.New("grid has no cells")
)

// Session owns the grid and the players moving on it. The grid lock is
// always taken before the player lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Player management
	players     map[string]*models.Player // playerID -> Player
	connections map[string]*Connection    // playerID -> Connection
	mu          sync.RWMutex

	// Grid state; rebuilds hold the write lock
	gridMu  sync.RWMutex
	grid    *grid.Index
	planner *movement.Planner
	version int64

	status SessionStatus
	store  *persistence.DB
	config *config.Config
	logger *slog.Logger
}

// SessionStatus represents the current state of the session
type SessionStatus struct {
	State       string `json:"state"` // "waiting", "running"
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Uptime      int64  `json:"uptime"` // seconds
}

// NewSession builds the grid, from the latest stored snapshot when allowed,
// otherwise by probing the configured terrain. store may be nil.
func NewSession(ctx context.Context, id string, cfg *config.Config, store *persistence.DB, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", id)

	ix := grid.New(append(cfg.GridOptions(logger),
		grid.WithTileFactory(grid.TileFactoryFunc(models.NewTile)))...)

	s := &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]*Connection),
		grid:        ix,
		planner:     movement.NewPlanner(ix, cfg.PlannerOptions(logger)...),
		store:       store,
		config:      cfg,
		logger:      logger,
		status: SessionStatus{
			State:      "waiting",
			MaxPlayers: cfg.Session.MaxPlayers,
		},
	}

	restored, err := s.restoreLatest(ctx)
	if err != nil {
		logger.Warn("snapshot restore failed, generating", "err", err)
	}
	if !restored {
		if _, err := ix.Generate(cfg.Grid.Radius, cfg.Terrain.Probe()); err != nil {
			return nil, fmt.Errorf("generate grid: %w", err)
		}
	}
	if cfg.Grid.WorldNeighbors {
		ix.BuildWorldNeighborCache()
	}
	s.version = 1

	logger.Info("session created", "radius", ix.Radius(), "cells", ix.Len(), "restored", restored)
	return s, nil
}

func (s *Session) restoreLatest(ctx context.Context) (bool, error) {
	if s.store == nil || !s.config.Storage.RestoreLatest {
		return false, nil
	}
	info, err := s.store.Latest(ctx)
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	snap, err := s.store.LoadSnapshot(ctx, info.ID)
	if err != nil {
		return false, err
	}
	if err := s.grid.Restore(snap); err != nil {
		return false, err
	}
	s.logger.Info("grid restored from snapshot", "id", info.ID, "name", info.Name)
	return true, nil
}

// GridSummary describes the current grid.
func (s *Session) GridSummary() network.GridSummary {
	s.gridMu.RLock()
	defer s.gridMu.RUnlock()
	return s.summaryLocked()
}

func (s *Session) summaryLocked() network.GridSummary {
	return network.GridSummary{
		Radius:     s.grid.Radius(),
		Cells:      s.grid.Len(),
		Convention: s.grid.Convention().String(),
		Version:    s.version,
	}
}

// Cell describes one cell.
func (s *Session) Cell(coord hex.Axial) (network.CellPayload, error) {
	s.gridMu.RLock()
	c, ok := s.grid.CellAt(coord)
	s.gridMu.RUnlock()
	if !ok {
		return network.CellPayload{}, fmt.Errorf("%w: %v", ErrUnknownCell, coord)
	}

	s.mu.RLock()
	occupied := false
	for _, p := range s.players {
		if p.Cell == coord {
			occupied = true
			break
		}
	}
	s.mu.RUnlock()

	return network.CellPayload{
		Coord:    c.Coord,
		Index:    c.Index,
		Position: network.Vec3{X: c.Position.X, Y: c.Position.Y, Z: c.Position.Z},
		Kind:     c.Kind.String(),
		Occupied: occupied,
	}, nil
}

// Neighbors returns the formulaic or the nearest-in-world neighbors of coord.
func (s *Session) Neighbors(coord hex.Axial, world bool) ([]hex.Axial, error) {
	s.gridMu.RLock()
	defer s.gridMu.RUnlock()

	if !s.grid.Has(coord) {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCell, coord)
	}
	if !world {
		return s.grid.Neighbors(coord), nil
	}
	if !s.grid.WorldCacheValid() {
		return nil, ErrWorldCacheStale
	}
	return s.grid.WorldNeighbors(coord), nil
}

// FindPath runs A* between two cells and optionally repairs the result.
func (s *Session) FindPath(from, to hex.Axial, bridge bool) (network.PathPayload, error) {
	s.gridMu.RLock()
	defer s.gridMu.RUnlock()

	p := path.FindPath(from, to, s.grid)
	if len(p) == 0 {
		return network.PathPayload{}, fmt.Errorf("%w: %v -> %v", movement.ErrNoPath, from, to)
	}
	out := network.PathPayload{From: from, To: to}
	if bridge {
		var st path.BridgeStats
		p, st = s.config.Movement.Bridger(s.logger).Bridge(p, s.grid)
		out.Bridged, out.Greedy, out.Dropped = st.Bridged, st.Greedy, st.Dropped
	}
	out.Path = p
	out.Length = len(p) - 1
	return out, nil
}

// MovePlayer plans one turn for the player's unit and commits the
// destination.
func (s *Session) MovePlayer(playerID string, to hex.Axial) (movement.Move, error) {
	s.gridMu.RLock()
	defer s.gridMu.RUnlock()

	s.mu.RLock()
	player, ok := s.players[playerID]
	var from hex.Axial
	if ok {
		from = player.Cell
	}
	s.mu.RUnlock()
	if !ok {
		return movement.Move{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	mv, err := s.planner.Plan(from, to)
	if err != nil {
		return movement.Move{}, err
	}

	s.mu.Lock()
	player.Cell = mv.Destination()
	player.LastSeen = time.Now()
	s.mu.Unlock()
	return mv, nil
}

// Rebuild regenerates the grid. radius <= 0 keeps the current radius and a
// radius above grid.max_radius fails with grid.ErrInvalidRadius; a
// non-nil seed overrides the noise seed for this rebuild. Players standing on
// cells that disappeared are moved to the spawn cell.
func (s *Session) Rebuild(ctx context.Context, radius int, seed *int64) (network.GridRebuiltPayload, error) {
	s.gridMu.Lock()
	defer s.gridMu.Unlock()

	if radius <= 0 {
		radius = s.grid.Radius()
	}
	if radius <= 0 {
		radius = s.config.Grid.Radius
	}
	if err := s.grid.CheckRadius(radius); err != nil {
		return network.GridRebuiltPayload{}, err
	}
	tc := s.config.Terrain
	if seed != nil {
		tc.Seed = *seed
	}
	s.logger.Info("grid rebuild", "radius", radius, "mode", tc.Mode, "seed", tc.Seed)

	st, err := s.grid.Generate(radius, tc.Probe())
	if err != nil {
		return network.GridRebuiltPayload{}, err
	}
	if s.config.Grid.WorldNeighbors {
		s.grid.BuildWorldNeighborCache()
	}
	s.version++

	spawn, haveSpawn := s.spawnLocked()
	s.mu.Lock()
	for _, p := range s.players {
		if !s.grid.Has(p.Cell) && haveSpawn {
			p.Cell = spawn
		}
	}
	s.mu.Unlock()

	out := network.GridRebuiltPayload{
		Grid:       s.summaryLocked(),
		Accepted:   st.Accepted,
		Rejected:   st.RejectedNoHit + st.RejectedFloor + st.RejectedFactory,
		Collisions: st.Collisions,
	}
	if s.store != nil && s.config.Storage.SaveOnRebuild {
		id, err := s.store.SaveSnapshot(ctx, fmt.Sprintf("%s-v%d", s.ID, s.version), s.grid.Snapshot())
		if err != nil {
			s.logger.Error("snapshot save failed", "err", err)
		} else {
			out.SnapshotID = id
		}
	}
	return out, nil
}

// spawnLocked picks the first spawn cell, else the origin, else the first
// cell in label order. Callers hold gridMu.
func (s *Session) spawnLocked() (hex.Axial, bool) {
	if spawns := s.grid.CellsOfKind(grid.KindSpawn); len(spawns) > 0 {
		return spawns[0], true
	}
	if s.grid.Has(hex.Axial{}) {
		return hex.Axial{}, true
	}
	if coords := s.grid.Coords(); len(coords) > 0 {
		return coords[0], true
	}
	return hex.Axial{}, false
}

// AddPlayer adds a player to the session and places its unit on the spawn cell
func (s *Session) AddPlayer(player *models.Player, conn *Connection) error {
	s.gridMu.RLock()
	spawn, ok := s.spawnLocked()
	s.gridMu.RUnlock()
	if !ok {
		return ErrEmptyGrid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; !exists && len(s.players) >= s.status.MaxPlayers {
		return ErrSessionFull
	}
	player.Cell = spawn
	s.players[player.ID] = player
	s.connections[player.ID] = conn
	s.status.PlayerCount = len(s.players)
	s.status.State = "running"

	s.logger.Info("player joined", "player", player.Username, "id", player.ID, "cell", spawn)
	return nil
}

// RemovePlayer removes a player from the session
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if player, exists := s.players[playerID]; exists {
		s.logger.Info("player left", "player", player.Username, "id", playerID)
		delete(s.players, playerID)
		delete(s.connections, playerID)
		s.status.PlayerCount = len(s.players)
		if s.status.PlayerCount == 0 {
			s.status.State = "waiting"
		}
	}
}

// GetPlayer retrieves a player by ID
func (s *Session) GetPlayer(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

// GetPlayers returns all players in the session
func (s *Session) GetPlayers() []*models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*models.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, player)
	}
	return players
}

// BroadcastMessage sends a message to all connected players
func (s *Session) BroadcastMessage(msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		conn.SendMessage(msg)
	}
}

// BroadcastExcept sends a message to all players except the specified connection
func (s *Session) BroadcastExcept(exclude *Connection, msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		if conn != exclude {
			conn.SendMessage(msg)
		}
	}
}

// GetStatus returns the current session status
func (s *Session) GetStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.Uptime = int64(time.Since(s.CreatedAt).Seconds())
	return status
}
