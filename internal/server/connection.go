package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/movement"
	"github.com/gravitas-games/hexmove/internal/network"
	"github.com/gravitas-games/hexmove/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server

	// Player information (set after authentication)
	player *models.Player

	// Buffered channel for outbound messages
	send      chan []byte
	closeOnce sync.Once

	authenticated bool
	joined        bool
	logger        *slog.Logger
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		send:   make(chan []byte, 256),
		logger: server.logger,
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", "err", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.logger.Debug("failed to parse client message", "err", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error", "err", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	c.logger.Debug("received message", "type", msg.Type)

	if !c.authenticated || c.player == nil {
		c.SendError("not_authenticated", "Connection not authenticated")
		return
	}

	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()
	case network.MsgTypeLeave:
		c.handleLeave()
	case network.MsgTypePing:
		c.handlePing()
	case network.MsgTypeCell:
		c.handleCell(msg.Payload)
	case network.MsgTypeNeighbors:
		c.handleNeighbors(msg.Payload)
	case network.MsgTypePath:
		c.handlePath(msg.Payload)
	case network.MsgTypeMove:
		c.handleMove(msg.Payload)
	case network.MsgTypeRebuild:
		c.handleRebuild(msg.Payload)
	default:
		c.logger.Debug("unknown message type", "type", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

func (c *Connection) handleJoin() {
	session := c.server.session

	c.player.Connected = true
	c.player.ConnectedAt = time.Now()
	c.player.SessionID = session.ID

	if err := session.AddPlayer(c.player, c); err != nil {
		c.logger.Warn("failed to add player to session", "player", c.player.ID, "err", err)
		c.SendError("join_failed", err.Error())
		return
	}
	c.joined = true

	status := session.GetStatus()
	cell := c.player.Cell

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID:  c.player.ID,
			Username:  c.player.Username,
			SessionID: session.ID,
			Cell:      cell,
			Grid:      session.GridSummary(),
			SessionStatus: network.SessionStatus{
				State:       status.State,
				PlayerCount: status.PlayerCount,
				MaxPlayers:  status.MaxPlayers,
				Uptime:      status.Uptime,
			},
		},
	})

	session.BroadcastExcept(c, &network.ServerMessage{
		Type: network.MsgTypePlayerJoined,
		Payload: network.PlayerJoinedPayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
			Cell:     cell,
		},
	})
}

func (c *Connection) handleLeave() {
	if !c.joined {
		return
	}
	c.joined = false
	c.server.session.RemovePlayer(c.player.ID)

	c.server.session.BroadcastMessage(&network.ServerMessage{
		Type: network.MsgTypePlayerLeft,
		Payload: network.PlayerLeftPayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
		},
	})
}

func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

func (c *Connection) handleCell(payload json.RawMessage) {
	var req network.CellRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError("invalid_cell", "Invalid cell request")
		return
	}
	cell, err := c.server.session.Cell(req.Coord)
	if err != nil {
		c.sendFailure(err)
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeCellInfo, Payload: cell})
}

func (c *Connection) handleNeighbors(payload json.RawMessage) {
	var req network.NeighborsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError("invalid_neighbors", "Invalid neighbors request")
		return
	}
	ns, err := c.server.session.Neighbors(req.Coord, req.World)
	if err != nil {
		c.sendFailure(err)
		return
	}
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeNeighborList,
		Payload: network.NeighborsPayload{Coord: req.Coord, World: req.World, Neighbors: ns},
	})
}

func (c *Connection) handlePath(payload json.RawMessage) {
	var req network.PathRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError("invalid_path", "Invalid path request")
		return
	}
	res, err := c.server.session.FindPath(req.From, req.To, req.Bridge)
	if err != nil {
		c.sendFailure(err)
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypePathResult, Payload: res})
}

func (c *Connection) handleMove(payload json.RawMessage) {
	if !c.joined {
		c.SendError("not_joined", "Join the session before moving")
		return
	}
	var req network.MoveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError("invalid_move", "Invalid move request")
		return
	}
	mv, err := c.server.session.MovePlayer(c.player.ID, req.To)
	if err != nil {
		c.sendFailure(err)
		return
	}

	hops := make([]network.HopPayload, 0, len(mv.Hops))
	for _, h := range mv.Hops {
		hops = append(hops, network.HopPayload{
			From:       h.From,
			To:         h.To,
			FromPos:    network.Vec3{X: h.FromPos.X, Y: h.FromPos.Y, Z: h.FromPos.Z},
			ToPos:      network.Vec3{X: h.ToPos.X, Y: h.ToPos.Y, Z: h.ToPos.Z},
			StartMs:    h.Start.Milliseconds(),
			DurationMs: h.Duration.Milliseconds(),
		})
	}
	c.server.session.BroadcastMessage(&network.ServerMessage{
		Type: network.MsgTypeMoved,
		Payload: network.MovedPayload{
			PlayerID:  c.player.ID,
			From:      mv.Steps[0],
			To:        mv.Destination(),
			Target:    req.To,
			Hops:      hops,
			Reached:   mv.Reached(),
			Remaining: mv.Remaining(),
		},
	})
}

func (c *Connection) handleRebuild(payload json.RawMessage) {
	if !c.player.Can(models.PermRebuildGrid) {
		c.SendError("forbidden", "Rebuilding the grid requires permission")
		return
	}
	var req network.RebuildRequest
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.SendError("invalid_rebuild", "Invalid rebuild request")
			return
		}
	}
	res, err := c.server.session.Rebuild(c.server.ctx, req.Radius, req.Seed)
	if err != nil {
		if errors.Is(err, grid.ErrInvalidRadius) {
			c.SendError("invalid_radius", err.Error())
			return
		}
		c.logger.Error("grid rebuild failed", "err", err)
		c.SendError("rebuild_failed", err.Error())
		return
	}
	c.server.session.BroadcastMessage(&network.ServerMessage{Type: network.MsgTypeGridRebuilt, Payload: res})
}

// sendFailure maps session errors to client error codes.
func (c *Connection) sendFailure(err error) {
	code := "internal_error"
	switch {
	case errors.Is(err, ErrUnknownCell):
		code = "unknown_cell"
	case errors.Is(err, ErrWorldCacheStale):
		code = "world_cache_unavailable"
	case errors.Is(err, movement.ErrNoPath):
		code = "no_path"
	case errors.Is(err, ErrUnknownPlayer):
		code = "not_joined"
	}
	c.SendError(code, err.Error())
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("failed to marshal message", "type", msg.Type, "err", err)
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message", "type", msg.Type)
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close leaves the session and closes the socket. Safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.authenticated && c.player != nil {
			c.handleLeave()
		}
		close(c.send)
		if c.ws != nil {
			c.ws.Close()
		}
	})
}
