package match

import "github.com/passwordparty/server/internal/models"

// ClientSink is the per-player push channel. One method per one-way
// notification the server sends; implementations deliver over whatever
// transport backs the player (WebSocket in production, fakes in tests).
// A returned error means the peer is unreachable and is never retried.
type ClientSink interface {
	MatchStarted(roster []models.PlayerInfo) error
	RoundTick(secondsLeft int) error
	ValidationTick(secondsLeft int) error
	WordDealt(card models.WordCard) error
	ClueReceived(clue string) error
	GuessResult(result models.GuessResult) error
	ValidationStarted(histories map[models.Team][]models.TurnRecord) error
	ValidationFinished(penalties map[models.Team]int, scores map[models.Team]int) error
	RoundStarted(round int, roster []models.PlayerInfo) error
	SuddenDeathStarted() error
	MatchOver(winner models.Team, scores map[models.Team]int) error
	MatchCancelled(reason string) error
}

// ActivePlayer pairs a contactable sink with the player it belongs to.
type ActivePlayer struct {
	Info models.PlayerInfo
	Sink ClientSink
}
