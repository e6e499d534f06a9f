package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns the WebSocket attachments of all live matches,
// keyed by game code. It upgrades incoming requests, hands each connection
// to the match manager as that player's sink, and tracks the pools for the
// stats endpoint.
type ConnectionManager struct {
	ops MatchOps

	matchConnections map[string]map[*Connection]bool
	mu               sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(ops MatchOps, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		ops:              ops,
		matchConnections: make(map[string]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// UpgradeConnection upgrades an HTTP request to a WebSocket and subscribes
// the player to their match. A failed subscription (unknown match, player
// not in the roster) closes the socket again with a policy violation.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, gameCode, playerID string) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		GameCode:    gameCode,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		done:        make(chan struct{}),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)
	go connection.writePump()

	if err := cm.ops.Subscribe(r.Context(), gameCode, playerID, connection); err != nil {
		log.Warn().
			Err(err).
			Str("game_code", gameCode).
			Str("player_id", playerID).
			Msg("subscription rejected, closing socket")
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(cm.config.WriteTimeout),
		)
		cm.unregisterConnection(connection)
		conn.Close()
		return err
	}

	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("game_code", gameCode).
		Str("player_id", playerID).
		Msg("WebSocket connection established")
	return nil
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.matchConnections[conn.GameCode] == nil {
		cm.matchConnections[conn.GameCode] = make(map[*Connection]bool)
	}
	cm.matchConnections[conn.GameCode][conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("game_code", conn.GameCode).
		Int("total_connections", len(cm.matchConnections[conn.GameCode])).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	connections, exists := cm.matchConnections[conn.GameCode]
	if !exists {
		return
	}
	if _, exists := connections[conn]; !exists {
		return
	}

	delete(connections, conn)
	if conn.closed.CompareAndSwap(false, true) {
		close(conn.done)
	}

	// Clean up empty match connection pools
	if len(connections) == 0 {
		delete(cm.matchConnections, conn.GameCode)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("game_code", conn.GameCode).
		Str("player_id", conn.PlayerID).
		Msg("connection unregistered")
}

// Shutdown closes every open connection.
func (cm *ConnectionManager) Shutdown(ctx context.Context) {
	cm.mu.Lock()
	var all []*Connection
	for _, connections := range cm.matchConnections {
		for conn := range connections {
			all = append(all, conn)
		}
	}
	cm.mu.Unlock()

	for _, conn := range all {
		conn.Conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(cm.config.WriteTimeout),
		)
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
	log.Info().Int("connections", len(all)).Msg("connection manager shut down")
}

// ConnectionStats summarizes the active pools for the stats endpoint.
type ConnectionStats struct {
	TotalConnections int            `json:"total_connections"`
	ActiveMatches    int            `json:"active_matches"`
	MatchConnections map[string]int `json:"match_connections"`
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{MatchConnections: make(map[string]int)}
	for gameCode, connections := range cm.matchConnections {
		stats.TotalConnections += len(connections)
		stats.MatchConnections[gameCode] = len(connections)
	}
	stats.ActiveMatches = len(cm.matchConnections)
	return stats
}
