package gateway

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/match"
	"github.com/passwordparty/server/internal/models"
)

// MatchOps is the slice of the match manager the gateway drives. Satisfied
// by *match.Manager.
type MatchOps interface {
	CreateMatch(ctx context.Context, code string, roster []models.PlayerInfo) error
	Subscribe(ctx context.Context, code, playerID string, sink match.ClientSink) error
	SubmitClue(ctx context.Context, code, playerID, clue string) error
	SubmitGuess(ctx context.Context, code, playerID, guess string) error
	PassTurn(ctx context.Context, code, playerID string) error
	SubmitValidationVotes(ctx context.Context, code, playerID string, votes []models.ValidationVote) error
	PlayerConnectionLost(code, playerID string)
	LiveMatchCount() int
}

// ClientCommand is the wire envelope for every message a client sends over
// the match WebSocket.
type ClientCommand struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// CommandType represents the type of client command
type CommandType string

const (
	CommandSubmitClue  CommandType = "submit_clue"
	CommandSubmitGuess CommandType = "submit_guess"
	CommandPassTurn    CommandType = "pass_turn"
	CommandSubmitVotes CommandType = "submit_votes"
)

// SubmitCluePayload carries a clue giver's clue.
type SubmitCluePayload struct {
	Clue string `json:"clue"`
}

// SubmitGuessPayload carries a guesser's attempt.
type SubmitGuessPayload struct {
	Guess string `json:"guess"`
}

// SubmitVotesPayload carries one player's validation ballot.
type SubmitVotesPayload struct {
	Votes []models.ValidationVote `json:"votes"`
}

// dispatchCommand routes one raw client message into the match manager.
// Malformed and unknown messages are logged and dropped; clients racing the
// state machine are normal and never get an error back.
func dispatchCommand(ctx context.Context, ops MatchOps, gameCode, playerID string, raw []byte) {
	var cmd ClientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		log.Debug().
			Err(err).
			Str("game_code", gameCode).
			Str("player_id", playerID).
			Msg("dropping malformed client message")
		return
	}

	var err error
	switch cmd.Type {
	case CommandSubmitClue:
		var payload SubmitCluePayload
		if err = json.Unmarshal(cmd.Payload, &payload); err == nil {
			err = ops.SubmitClue(ctx, gameCode, playerID, payload.Clue)
		}

	case CommandSubmitGuess:
		var payload SubmitGuessPayload
		if err = json.Unmarshal(cmd.Payload, &payload); err == nil {
			err = ops.SubmitGuess(ctx, gameCode, playerID, payload.Guess)
		}

	case CommandPassTurn:
		err = ops.PassTurn(ctx, gameCode, playerID)

	case CommandSubmitVotes:
		var payload SubmitVotesPayload
		if err = json.Unmarshal(cmd.Payload, &payload); err == nil {
			err = ops.SubmitValidationVotes(ctx, gameCode, playerID, payload.Votes)
		}

	default:
		log.Debug().
			Str("game_code", gameCode).
			Str("player_id", playerID).
			Str("command_type", string(cmd.Type)).
			Msg("dropping unknown client command")
		return
	}

	if err != nil {
		log.Debug().
			Err(err).
			Str("game_code", gameCode).
			Str("player_id", playerID).
			Str("command_type", string(cmd.Type)).
			Msg("client command rejected")
	}
}
