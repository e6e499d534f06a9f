package match

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/models"
)

// MatchFinisher ends a match with a winner: stops play, notifies everyone
// and records the result. Implemented by the Manager.
type MatchFinisher interface {
	FinishMatch(s *Session, winner models.Team)
}

// GuessHandler resolves guesses and drives the score/advance/notify sequence
// that follows each one.
type GuessHandler struct {
	broadcaster *Broadcaster
	distributor *Distributor
	disconnects DisconnectHandler
	finisher    MatchFinisher
}

func NewGuessHandler(broadcaster *Broadcaster, distributor *Distributor, disconnects DisconnectHandler, finisher MatchFinisher) *GuessHandler {
	return &GuessHandler{
		broadcaster: broadcaster,
		distributor: distributor,
		disconnects: disconnects,
		finisher:    finisher,
	}
}

// IsGuessCorrect reports whether the guess matches either language text of
// the card, case-insensitively and ignoring surrounding whitespace. A nil
// card (team past the end of its queue) never matches.
func IsGuessCorrect(card *models.WordCard, guess string) bool {
	if card == nil {
		return false
	}
	guess = strings.TrimSpace(guess)
	if guess == "" {
		return false
	}
	return strings.EqualFold(guess, card.TextEN) || strings.EqualFold(guess, card.TextES)
}

// HandleCorrectGuess scores a correct guess. In sudden death the guess is
// terminal: the guessing team wins on the spot and no further word is dealt.
// Otherwise the team scores, its cursor advances, the result is broadcast to
// the whole match and the next card goes out to the scoring team.
func (g *GuessHandler) HandleCorrectGuess(s *Session, guesser *ActivePlayer, guess string) {
	team := guesser.Info.Team

	if s.Status() == models.MatchStatusSuddenDeath {
		if !s.Transition(models.MatchStatusSuddenDeath, models.MatchStatusFinished) {
			return
		}
		s.StopTimers()
		s.AddScore(team, 1)
		log.Info().
			Str("game_code", s.Code).
			Str("team", string(team)).
			Msg("sudden death resolved by correct guess")
		g.finisher.FinishMatch(s, team)
		return
	}

	newScore := s.AddScore(team, 1)
	s.AdvanceWord(team)

	result := models.GuessResult{
		Correct:  true,
		Team:     team,
		NewScore: newScore,
		Guess:    guess,
	}
	disconnected := g.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.GuessResult(result)
	})
	for _, id := range disconnected {
		g.disconnects.HandlePlayerDisconnect(s, id)
	}

	// Disconnect handling above may have cancelled the match.
	if s.Status().Terminal() {
		return
	}
	g.distributor.DealWordToTeam(s, team)
}

// HandleIncorrectGuess notifies only the acting pair: the guesser and their
// clue giver. The other team's word did not change, so nobody else needs to
// hear about it. Send failures escalate each player individually.
func (g *GuessHandler) HandleIncorrectGuess(s *Session, guesser *ActivePlayer, guess string) {
	team := guesser.Info.Team
	result := models.GuessResult{
		Correct:  false,
		Team:     team,
		NewScore: s.Score(team),
		Guess:    guess,
	}

	if err := g.broadcaster.SendToPlayer(s.Code, guesser, func(p *ActivePlayer) error {
		return p.Sink.GuessResult(result)
	}); err != nil {
		g.disconnects.HandlePlayerDisconnect(s, guesser.Info.ID)
	}

	partner := s.Partner(guesser.Info.ID)
	if partner == nil {
		return
	}
	if err := g.broadcaster.SendToPlayer(s.Code, partner, func(p *ActivePlayer) error {
		return p.Sink.GuessResult(result)
	}); err != nil {
		g.disconnects.HandlePlayerDisconnect(s, partner.Info.ID)
	}
}
