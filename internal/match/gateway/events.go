package gateway

import (
	"encoding/json"
	"time"

	"github.com/passwordparty/server/internal/models"
)

// ServerEvent is the wire envelope for every push the server sends over a
// match WebSocket.
type ServerEvent struct {
	ID        string          `json:"id"`        // Event UUID
	GameCode  string          `json:"game_code"` // Match the event belongs to
	Type      EventType       `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// EventType represents the type of match event
type EventType string

const (
	EventTypeMatchStarted       EventType = "MatchStarted"
	EventTypeRoundTick          EventType = "RoundTick"
	EventTypeValidationTick     EventType = "ValidationTick"
	EventTypeWordDealt          EventType = "WordDealt"
	EventTypeClueReceived       EventType = "ClueReceived"
	EventTypeGuessResult        EventType = "GuessResult"
	EventTypeValidationStarted  EventType = "ValidationStarted"
	EventTypeValidationFinished EventType = "ValidationFinished"
	EventTypeRoundStarted       EventType = "RoundStarted"
	EventTypeSuddenDeathStarted EventType = "SuddenDeathStarted"
	EventTypeMatchOver          EventType = "MatchOver"
	EventTypeMatchCancelled     EventType = "MatchCancelled"
)

// MatchStartedPayload carries the confirmed roster when play begins.
type MatchStartedPayload struct {
	Roster []models.PlayerInfo `json:"roster"`
}

// TickPayload carries a countdown update, round and validation alike.
type TickPayload struct {
	SecondsLeft int `json:"seconds_left"`
}

// WordDealtPayload carries the recipient's view of the current card. The
// card is already masked for guessers before it reaches the wire.
type WordDealtPayload struct {
	Card models.WordCard `json:"card"`
}

// ClueReceivedPayload carries a clue forwarded to the guesser.
type ClueReceivedPayload struct {
	Clue string `json:"clue"`
}

// GuessResultPayload carries the outcome of a resolved guess.
type GuessResultPayload struct {
	Result models.GuessResult `json:"result"`
}

// ValidationStartedPayload carries both teams' frozen turn histories.
type ValidationStartedPayload struct {
	Histories map[models.Team][]models.TurnRecord `json:"histories"`
}

// ValidationFinishedPayload carries the merged penalties and the scores
// after they were applied.
type ValidationFinishedPayload struct {
	Penalties map[models.Team]int `json:"penalties"`
	Scores    map[models.Team]int `json:"scores"`
}

// RoundStartedPayload announces a new round with the post-swap roster.
type RoundStartedPayload struct {
	Round  int                 `json:"round"`
	Roster []models.PlayerInfo `json:"roster"`
}

// MatchOverPayload carries the final outcome.
type MatchOverPayload struct {
	Winner models.Team         `json:"winner"`
	Scores map[models.Team]int `json:"scores"`
}

// MatchCancelledPayload carries the reason a match was torn down early.
type MatchCancelledPayload struct {
	Reason string `json:"reason"`
}

// ParseEventPayload parses event data into the appropriate payload struct
func ParseEventPayload(event *ServerEvent) (interface{}, error) {
	switch event.Type {
	case EventTypeMatchStarted:
		var payload MatchStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundTick, EventTypeValidationTick:
		var payload TickPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeWordDealt:
		var payload WordDealtPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeClueReceived:
		var payload ClueReceivedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeGuessResult:
		var payload GuessResultPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeValidationStarted:
		var payload ValidationStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeValidationFinished:
		var payload ValidationFinishedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRoundStarted:
		var payload RoundStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeSuddenDeathStarted:
		return struct{}{}, nil

	case EventTypeMatchOver:
		var payload MatchOverPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeMatchCancelled:
		var payload MatchCancelledPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, nil // Unknown event type
	}
}
