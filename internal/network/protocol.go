package network

import (
	"encoding/json"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Message types - Client → Server
const (
	MsgTypeJoin      = "join"
	MsgTypeLeave     = "leave"
	MsgTypePing      = "ping"
	MsgTypeCell      = "cell"
	MsgTypeNeighbors = "neighbors"
	MsgTypePath      = "path"
	MsgTypeMove      = "move"
	MsgTypeRebuild   = "rebuild"
)

// Message types - Server → Client
const (
	MsgTypeWelcome       = "welcome"
	MsgTypePlayerJoined  = "player_joined"
	MsgTypePlayerLeft    = "player_left"
	MsgTypeCellInfo      = "cell_info"
	MsgTypeNeighborList  = "neighbor_list"
	MsgTypePathResult    = "path_result"
	MsgTypeMoved         = "moved"
	MsgTypeGridRebuilt   = "grid_rebuilt"
	MsgTypeSessionStatus = "session_status"
	MsgTypeError         = "error"
	MsgTypePong          = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// CellRequest asks for one cell.
type CellRequest struct {
	Coord hex.Axial `json:"coord"`
}

// NeighborsRequest asks for the neighbors of a cell. World selects the
// nearest-in-world cache instead of the formulaic table.
type NeighborsRequest struct {
	Coord hex.Axial `json:"coord"`
	World bool      `json:"world"`
}

// PathRequest asks for a shortest path; Bridge runs the repair pass on it.
type PathRequest struct {
	From   hex.Axial `json:"from"`
	To     hex.Axial `json:"to"`
	Bridge bool      `json:"bridge"`
}

// MoveRequest moves the sender's unit toward To for one turn.
type MoveRequest struct {
	To hex.Axial `json:"to"`
}

// RebuildRequest regenerates the grid. Zero radius keeps the current one;
// a nil seed keeps the configured terrain seed.
type RebuildRequest struct {
	Radius int    `json:"radius"`
	Seed   *int64 `json:"seed,omitempty"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	PlayerID      string        `json:"player_id"`
	Username      string        `json:"username"`
	SessionID     string        `json:"session_id"`
	Cell          hex.Axial     `json:"cell"`
	Grid          GridSummary   `json:"grid"`
	SessionStatus SessionStatus `json:"session_status"`
}

// PlayerJoinedPayload notifies clients when a player joins
type PlayerJoinedPayload struct {
	PlayerID string    `json:"player_id"`
	Username string    `json:"username"`
	Cell     hex.Axial `json:"cell"`
}

// PlayerLeftPayload notifies clients when a player leaves
type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// GridSummary describes the current grid.
type GridSummary struct {
	Radius     int    `json:"radius"`
	Cells      int    `json:"cells"`
	Convention string `json:"convention"`
	Version    int64  `json:"version"` // bumped on every rebuild
}

// Vec3 is a world position.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CellPayload describes one cell.
type CellPayload struct {
	Coord    hex.Axial `json:"coord"`
	Index    hex.Axial `json:"index"`
	Position Vec3      `json:"position"`
	Kind     string    `json:"kind"`
	Occupied bool      `json:"occupied"`
}

// NeighborsPayload answers a NeighborsRequest.
type NeighborsPayload struct {
	Coord     hex.Axial   `json:"coord"`
	World     bool        `json:"world"`
	Neighbors []hex.Axial `json:"neighbors"`
}

// PathPayload answers a PathRequest. Length is the number of hops.
type PathPayload struct {
	From    hex.Axial   `json:"from"`
	To      hex.Axial   `json:"to"`
	Path    []hex.Axial `json:"path"`
	Length  int         `json:"length"`
	Bridged int         `json:"bridged,omitempty"`
	Greedy  int         `json:"greedy,omitempty"`
	Dropped int         `json:"dropped,omitempty"`
}

// HopPayload is one scheduled hop of a move.
type HopPayload struct {
	From       hex.Axial `json:"from"`
	To         hex.Axial `json:"to"`
	FromPos    Vec3      `json:"from_pos"`
	ToPos      Vec3      `json:"to_pos"`
	StartMs    int64     `json:"start_ms"`
	DurationMs int64     `json:"duration_ms"`
}

// MovedPayload broadcasts a unit's move for this turn.
type MovedPayload struct {
	PlayerID  string       `json:"player_id"`
	From      hex.Axial    `json:"from"`
	To        hex.Axial    `json:"to"`
	Target    hex.Axial    `json:"target"`
	Hops      []HopPayload `json:"hops"`
	Reached   bool         `json:"reached"`
	Remaining int          `json:"remaining"`
}

// GridRebuiltPayload is broadcast after a rebuild.
type GridRebuiltPayload struct {
	Grid       GridSummary `json:"grid"`
	Accepted   int         `json:"accepted"`
	Rejected   int         `json:"rejected"`
	Collisions int         `json:"collisions"`
	SnapshotID string      `json:"snapshot_id,omitempty"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
