package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/models"
)

var errConnectionClosed = errors.New("connection closed")

// Connection is one player's WebSocket attachment to a match. It is the
// transport-side implementation of the match package's client sink: every
// sink call becomes a typed event in the send buffer, and a full or closed
// buffer surfaces as an error so the match layer treats the player as gone.
type Connection struct {
	ID       string
	PlayerID string
	GameCode string
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	// done is closed exactly once on teardown. Send itself is never closed;
	// the match layer may still be pushing into it from another goroutine.
	done   chan struct{}
	closed atomic.Bool

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// push wraps a payload in the wire envelope and queues it for delivery.
func (c *Connection) push(eventType EventType, payload any) error {
	if c.closed.Load() {
		return fmt.Errorf("%w: %s", errConnectionClosed, c.PlayerID)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	event := ServerEvent{
		ID:        uuid.New().String(),
		GameCode:  c.GameCode,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	select {
	case c.Send <- message:
		return nil
	default:
		// A peer that cannot drain its buffer is as good as disconnected.
		return fmt.Errorf("send buffer full for player %s in match %s", c.PlayerID, c.GameCode)
	}
}

func (c *Connection) MatchStarted(roster []models.PlayerInfo) error {
	return c.push(EventTypeMatchStarted, MatchStartedPayload{Roster: roster})
}

func (c *Connection) RoundTick(secondsLeft int) error {
	return c.push(EventTypeRoundTick, TickPayload{SecondsLeft: secondsLeft})
}

func (c *Connection) ValidationTick(secondsLeft int) error {
	return c.push(EventTypeValidationTick, TickPayload{SecondsLeft: secondsLeft})
}

func (c *Connection) WordDealt(card models.WordCard) error {
	return c.push(EventTypeWordDealt, WordDealtPayload{Card: card})
}

func (c *Connection) ClueReceived(clue string) error {
	return c.push(EventTypeClueReceived, ClueReceivedPayload{Clue: clue})
}

func (c *Connection) GuessResult(result models.GuessResult) error {
	return c.push(EventTypeGuessResult, GuessResultPayload{Result: result})
}

func (c *Connection) ValidationStarted(histories map[models.Team][]models.TurnRecord) error {
	return c.push(EventTypeValidationStarted, ValidationStartedPayload{Histories: histories})
}

func (c *Connection) ValidationFinished(penalties, scores map[models.Team]int) error {
	return c.push(EventTypeValidationFinished, ValidationFinishedPayload{Penalties: penalties, Scores: scores})
}

func (c *Connection) RoundStarted(round int, roster []models.PlayerInfo) error {
	return c.push(EventTypeRoundStarted, RoundStartedPayload{Round: round, Roster: roster})
}

func (c *Connection) SuddenDeathStarted() error {
	return c.push(EventTypeSuddenDeathStarted, struct{}{})
}

func (c *Connection) MatchOver(winner models.Team, scores map[models.Team]int) error {
	return c.push(EventTypeMatchOver, MatchOverPayload{Winner: winner, Scores: scores})
}

func (c *Connection) MatchCancelled(reason string) error {
	return c.push(EventTypeMatchCancelled, MatchCancelledPayload{Reason: reason})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection. When the
// read side closes the match layer is told the player is gone.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
		c.Manager.ops.PlayerConnectionLost(c.GameCode, c.PlayerID)
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		dispatchCommand(context.Background(), c.Manager.ops, c.GameCode, c.PlayerID, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
