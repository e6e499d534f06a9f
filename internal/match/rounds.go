package match

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/models"
)

// startMatch moves a fully connected session into play: roster push, first
// word pair to each team, round timer armed.
func (m *Manager) startMatch(s *Session) {
	if !s.Transition(models.MatchStatusWaitingForPlayers, models.MatchStatusInProgress) {
		return
	}
	round := s.BeginRound()

	roster := s.Roster()
	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.MatchStarted(roster)
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}
	if s.Status().Terminal() {
		return
	}

	m.distributor.DealWordToTeam(s, models.TeamRed)
	m.distributor.DealWordToTeam(s, models.TeamBlue)
	s.StartRoundTimer(m.settings.RoundSeconds, func() { m.onRoundTick(s) })

	log.Info().
		Str("game_code", s.Code).
		Int("round", round).
		Msg("match started")
	m.publishEvent(s.Code, MatchEventStarted, MatchStartedPayload{Roster: roster})
}

// onRoundTick fires once per second while a round runs. The manager owns
// decrementing the countdown; at zero the round freezes into validation.
func (m *Manager) onRoundTick(s *Session) {
	if s.Status() != models.MatchStatusInProgress {
		return
	}

	remaining := s.DecrementRoundCountdown()
	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.RoundTick(remaining)
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}

	if remaining <= 0 {
		m.beginValidation(s)
	}
}

// beginValidation freezes both turn histories and opens vote collection.
func (m *Manager) beginValidation(s *Session) {
	if !s.Transition(models.MatchStatusInProgress, models.MatchStatusValidating) {
		return
	}
	s.StopRoundTimer()
	s.ResetValidation()

	frozen := s.History().Freeze()
	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.ValidationStarted(frozen)
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}
	if s.Status().Terminal() {
		return
	}

	s.StartValidationTimer(m.settings.ValidationSeconds, func() { m.onValidationTick(s) })
	log.Info().
		Str("game_code", s.Code).
		Int("round", s.Round()).
		Msg("round over, validation started")
}

// onValidationTick fires once per second during validation. At zero the
// round settles with whatever ballots arrived.
func (m *Manager) onValidationTick(s *Session) {
	if s.Status() != models.MatchStatusValidating {
		return
	}

	remaining := s.DecrementValidationCountdown()
	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.ValidationTick(remaining)
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}

	if remaining <= 0 {
		m.settleValidation(s)
	}
}

// settleValidation merges the ballots, applies penalties and decides what
// comes next: another round, sudden death on a draw at the round limit, or
// the end of the match. Reached from both the timer and the all-voted path;
// the phase transition makes sure only one of them runs it.
func (m *Manager) settleValidation(s *Session) {
	if !s.Transition(models.MatchStatusValidating, models.MatchStatusInProgress) {
		return
	}
	s.StopValidationTimer()

	penalties := CalculateValidationPenalties(s.Ballots(), s.History().Freeze())
	scores := s.ApplyPenalties(penalties)

	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.ValidationFinished(penalties, scores)
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}
	if s.Status().Terminal() {
		return
	}

	log.Info().
		Str("game_code", s.Code).
		Int("red_penalty", penalties[models.TeamRed]).
		Int("blue_penalty", penalties[models.TeamBlue]).
		Msg("validation settled")

	if s.Round() >= m.settings.RoundsPerMatch {
		red, blue := scores[models.TeamRed], scores[models.TeamBlue]
		if red == blue {
			m.beginSuddenDeath(s)
			return
		}
		winner := models.TeamRed
		if blue > red {
			winner = models.TeamBlue
		}
		m.FinishMatch(s, winner)
		return
	}

	m.startNextRound(s)
}

// beginSuddenDeath switches to the tie breaker: no countdown, the next
// correct guess by either team wins outright.
func (m *Manager) beginSuddenDeath(s *Session) {
	if !s.Transition(models.MatchStatusInProgress, models.MatchStatusSuddenDeath) {
		return
	}
	s.StopTimers()

	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.SuddenDeathStarted()
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}
	if s.Status().Terminal() {
		return
	}

	// Both teams keep playing from their current cursor.
	m.distributor.DealWordToTeam(s, models.TeamRed)
	m.distributor.DealWordToTeam(s, models.TeamBlue)

	log.Info().Str("game_code", s.Code).Msg("sudden death started")
}

// startNextRound resets per-round state, swaps roles within each team,
// draws fresh word queues and re-arms the round timer.
func (m *Manager) startNextRound(s *Session) {
	round := s.BeginRound()
	s.ResetRoundState()
	s.SwapRoles()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.fillWordQueues(ctx, s); err != nil {
		log.Error().
			Err(err).
			Str("game_code", s.Code).
			Msg("failed to refill word queues, cancelling match")
		m.cancelSession(s, "word supply unavailable")
		return
	}

	roster := s.Roster()
	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.RoundStarted(round, roster)
	})
	for _, id := range disconnected {
		m.HandlePlayerDisconnect(s, id)
	}
	if s.Status().Terminal() {
		return
	}

	m.distributor.DealWordToTeam(s, models.TeamRed)
	m.distributor.DealWordToTeam(s, models.TeamBlue)
	s.StartRoundTimer(m.settings.RoundSeconds, func() { m.onRoundTick(s) })

	log.Info().
		Str("game_code", s.Code).
		Int("round", round).
		Msg("next round started")
}
