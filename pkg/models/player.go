package models

import (
	"time"

	"github.com/gravitas-games/hexmove/internal/hex"
)

// Permission flags carried in the JWT permissions claim.
const (
	PermRebuildGrid int64 = 1 << iota
)

// Player represents a connected client and the unit it moves on the grid
type Player struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	Username    string `json:"username"`    // JWT claim
	Email       string `json:"email"`       // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status
	AuthMethod  string `json:"auth_method"` // JWT claim: "password" or "oauth"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Session state
	SessionID string `json:"session_id"`

	// Cell the player's unit stands on
	Cell hex.Axial `json:"cell"`
}

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// Can reports whether the player holds every flag in perm.
func (p *Player) Can(perm int64) bool {
	return p.Permissions&perm == perm
}
