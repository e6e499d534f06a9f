package match

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/passwordparty/server/internal/models"
)

// MatchEventType identifies a lifecycle event published to the event bus.
type MatchEventType string

const (
	MatchEventStarted   MatchEventType = "MatchStarted"
	MatchEventFinished  MatchEventType = "MatchFinished"
	MatchEventCancelled MatchEventType = "MatchCancelled"
)

// MatchEvent is the envelope handed to the event publisher.
type MatchEvent struct {
	ID         uuid.UUID      `json:"event_id"`
	Type       MatchEventType `json:"event_type"`
	GameCode   string         `json:"game_code"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    any            `json:"payload,omitempty"`
}

// EventPublisher pushes match lifecycle events to interested consumers
// (stats, lobby listings). Publishing is advisory: a failed publish is
// logged and never affects the match.
type EventPublisher interface {
	PublishMatchEvent(ctx context.Context, event MatchEvent) error
}

// MatchStartedPayload accompanies MatchEventStarted.
type MatchStartedPayload struct {
	Roster []models.PlayerInfo `json:"roster"`
}

// MatchFinishedPayload accompanies MatchEventFinished.
type MatchFinishedPayload struct {
	Winner models.Team         `json:"winner"`
	Scores map[models.Team]int `json:"scores"`
}

// MatchCancelledPayload accompanies MatchEventCancelled.
type MatchCancelledPayload struct {
	Reason string `json:"reason"`
}
