package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexmove/internal/config"
	"github.com/gravitas-games/hexmove/internal/persistence"
)

// Server serves grid queries and turn moves over WebSocket
type Server struct {
	config       *config.Config
	session      *Session
	upgrader     websocket.Upgrader
	httpSrv      *http.Server
	jwtValidator *JWTValidator
	redis        *redis.Client
	store        *persistence.DB
	logger       *slog.Logger

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New connects the optional redis blacklist and snapshot store, fetches the
// JWT key and builds the session grid.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing server")

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:      cfg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
		upgrader:    newUpgrader(),
	}
	fail := func(err error) (*Server, error) {
		srv.closeBackends()
		cancel()
		return nil, err
	}

	if cfg.Redis.Address != "" {
		srv.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := srv.redis.Ping(ctx).Err(); err != nil {
			return fail(fmt.Errorf("failed to connect to Redis: %w", err))
		}
		logger.Info("connected to redis", "addr", cfg.Redis.Address)
	}

	if cfg.Storage.Path != "" {
		store, err := persistence.Open(cfg.Storage.Path, logger)
		if err != nil {
			return fail(fmt.Errorf("failed to open snapshot store: %w", err))
		}
		srv.store = store
	}

	jwtValidator, err := NewJWTValidator(ctx, cfg, srv.redis, logger)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize JWT validator: %w", err))
	}
	srv.jwtValidator = jwtValidator

	session, err := NewSession(ctx, "main", cfg, srv.store, logger)
	if err != nil {
		return fail(err)
	}
	srv.session = session

	logger.Info("server initialized")
	return srv, nil
}

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		Subprotocols:    []string{"access_token"},
		CheckOrigin: func(r *http.Request) bool {
			// TODO: check against an allowed-origins list once the client host is fixed
			return true
		},
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("listening", "ws", "ws://"+addr+"/ws", "health", "http://"+addr+"/health")

	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down server")

	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.logger.Error("http server shutdown error", "err", err)
		}
	}

	s.connMu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.Unlock()
	for _, conn := range conns {
		conn.Close()
	}

	s.closeBackends()
	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) closeBackends() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("redis close error", "err", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("snapshot store close error", "err", err)
		}
	}
}

// handleWebSocket authenticates and upgrades a connection request
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := extractTokenFromHeader(r)
	if tokenString == "" {
		s.logger.Info("missing JWT token", "remote", r.RemoteAddr)
		http.Error(w, "Missing authentication token", http.StatusUnauthorized)
		return
	}

	player, err := s.jwtValidator.ValidateToken(tokenString)
	if err != nil {
		s.logger.Info("invalid JWT token", "remote", r.RemoteAddr, "err", err)
		http.Error(w, fmt.Sprintf("Invalid token: %v", err), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	conn := NewConnection(ws, s)
	conn.player = player
	conn.authenticated = true
	conn.logger = s.logger.With("player", player.Username, "remote", r.RemoteAddr)

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	conn.logger.Info("websocket connection established")

	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	conn.logger.Info("websocket connection closed")
}

type healthResponse struct {
	Status      string `json:"status"`
	Cells       int    `json:"cells"`
	Radius      int    `json:"radius"`
	GridVersion int64  `json:"grid_version"`
	Players     int    `json:"players"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	grid := s.session.GridSummary()
	resp := healthResponse{
		Status:      "ok",
		Cells:       grid.Cells,
		Radius:      grid.Radius,
		GridVersion: grid.Version,
		Players:     s.session.GetStatus().PlayerCount,
	}
	if grid.Cells == 0 {
		resp.Status = "empty"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
