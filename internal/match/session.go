package match

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/passwordparty/server/internal/models"
)

// Session holds the mutable state of one live match. Scores, cursors and
// phase are guarded by mu; the player registry has its own RWMutex so
// lookups never contend with score mutation; countdowns are atomics read by
// timer callbacks. Each session owns its two timers and nothing outside the
// session touches them.
type Session struct {
	Code  string
	clock clockwork.Clock

	mu      sync.Mutex
	status  models.MatchStatus
	round   int
	scores  map[models.Team]int
	words   map[models.Team][]models.WordCard
	cursors map[models.Team]int
	passed  map[models.Team]bool

	history *TurnHistory

	playersMu sync.RWMutex
	players   map[string]*ActivePlayer
	expected  []models.PlayerInfo

	roundRemaining      atomic.Int32
	validationRemaining atomic.Int32

	timersMu        sync.Mutex
	roundTimer      *countdownTimer
	validationTimer *countdownTimer

	votesMu      sync.Mutex
	votedPlayers map[string]struct{}
	ballots      []models.TeamBallot
}

// NewSession creates a session in WAITING_FOR_PLAYERS with the roster the
// waiting room handed over.
func NewSession(code string, roster []models.PlayerInfo, clock clockwork.Clock) *Session {
	expected := make([]models.PlayerInfo, len(roster))
	copy(expected, roster)

	return &Session{
		Code:    code,
		clock:   clock,
		status:  models.MatchStatusWaitingForPlayers,
		scores:  map[models.Team]int{models.TeamRed: 0, models.TeamBlue: 0},
		words:   map[models.Team][]models.WordCard{},
		cursors: map[models.Team]int{models.TeamRed: 0, models.TeamBlue: 0},
		passed:  map[models.Team]bool{models.TeamRed: false, models.TeamBlue: false},

		history:      NewTurnHistory(),
		players:      make(map[string]*ActivePlayer),
		expected:     expected,
		votedPlayers: make(map[string]struct{}),
	}
}

// Status returns the current phase.
func (s *Session) Status() models.MatchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SetStatus unconditionally moves the session to the given phase.
func (s *Session) SetStatus(status models.MatchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Transition moves from one phase to another only if the session is still in
// the expected phase. Returns false when another path got there first.
func (s *Session) Transition(from, to models.MatchStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != from {
		return false
	}
	s.status = to
	return true
}

// Round returns the 1-based round number, 0 before the match starts.
func (s *Session) Round() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// BeginRound bumps the round counter and returns the new value.
func (s *Session) BeginRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.round++
	return s.round
}

// History exposes the turn history shared by both teams.
func (s *Session) History() *TurnHistory {
	return s.history
}

// AddScore adds points to a team and returns the new score.
func (s *Session) AddScore(team models.Team, points int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[team] += points
	return s.scores[team]
}

// Score returns one team's current score.
func (s *Session) Score(team models.Team) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scores[team]
}

// Scores returns a copy of both scores.
func (s *Session) Scores() map[models.Team]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[models.Team]int, len(s.scores))
	for team, score := range s.scores {
		out[team] = score
	}
	return out
}

// ApplyPenalties subtracts validation penalties, flooring every score at
// zero, and returns the resulting scores.
func (s *Session) ApplyPenalties(penalties map[models.Team]int) map[models.Team]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for team, penalty := range penalties {
		s.scores[team] -= penalty
		if s.scores[team] < 0 {
			s.scores[team] = 0
		}
	}

	out := make(map[models.Team]int, len(s.scores))
	for team, score := range s.scores {
		out[team] = score
	}
	return out
}

// SetWordQueue replaces a team's word queue and rewinds its cursor.
func (s *Session) SetWordQueue(team models.Team, cards []models.WordCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.words[team] = cards
	s.cursors[team] = 0
}

// CurrentWord returns the card at the team's cursor, or nil once the queue
// is exhausted. Callers dealing nil substitute models.EndCard.
func (s *Session) CurrentWord(team models.Team) *models.WordCard {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursors[team] >= len(s.words[team]) {
		return nil
	}
	card := s.words[team][s.cursors[team]]
	return &card
}

// AdvanceWord moves the team's cursor forward one card. The cursor never
// grows past the queue length.
func (s *Session) AdvanceWord(team models.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursors[team] < len(s.words[team]) {
		s.cursors[team]++
	}
}

// WordCursor returns the team's cursor position.
func (s *Session) WordCursor(team models.Team) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursors[team]
}

// MarkPassed flags the team as having used its pass for this round. Returns
// false when the team already passed.
func (s *Session) MarkPassed(team models.Team) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.passed[team] {
		return false
	}
	s.passed[team] = true
	return true
}

// HasPassed reports whether the team already passed this round.
func (s *Session) HasPassed(team models.Team) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passed[team]
}

// ResetRoundState clears the per-round flags, the turn history and the
// collected ballots ahead of a new round.
func (s *Session) ResetRoundState() {
	s.mu.Lock()
	s.passed[models.TeamRed] = false
	s.passed[models.TeamBlue] = false
	s.mu.Unlock()

	s.history.Reset()
	s.ResetValidation()
}

// RegisterPlayer adds a contactable player to the registry, replacing any
// previous sink for the same id (reconnect before the kick lands), and
// marks the player's roster seat ready.
func (s *Session) RegisterPlayer(player *ActivePlayer) {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	s.players[player.Info.ID] = player
	for i := range s.expected {
		if s.expected[i].ID == player.Info.ID {
			s.expected[i].Ready = true
		}
	}
}

// RemovePlayer drops a player from the registry. Returns the remaining
// player count and whether the player was present; concurrent escalations
// for the same send failure collapse into one removal.
func (s *Session) RemovePlayer(playerID string) (int, bool) {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()
	if _, ok := s.players[playerID]; !ok {
		return len(s.players), false
	}
	delete(s.players, playerID)
	for i := range s.expected {
		if s.expected[i].ID == playerID {
			s.expected[i].Ready = false
		}
	}
	return len(s.players), true
}

// PlayerByID looks up a connected player.
func (s *Session) PlayerByID(playerID string) *ActivePlayer {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	return s.players[playerID]
}

// PlayerByRole returns the connected player filling a team role, or nil if
// that seat is empty.
func (s *Session) PlayerByRole(team models.Team, role models.Role) *ActivePlayer {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	for _, player := range s.players {
		if player.Info.Team == team && player.Info.Role == role {
			return player
		}
	}
	return nil
}

// Partner returns the other connected member of a player's team.
func (s *Session) Partner(playerID string) *ActivePlayer {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()

	self, ok := s.players[playerID]
	if !ok {
		return nil
	}
	for id, player := range s.players {
		if id != playerID && player.Info.Team == self.Info.Team {
			return player
		}
	}
	return nil
}

// ConnectedPlayers snapshots the registry.
func (s *Session) ConnectedPlayers() []*ActivePlayer {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()

	out := make([]*ActivePlayer, 0, len(s.players))
	for _, player := range s.players {
		out = append(out, player)
	}
	return out
}

// ConnectedCount returns how many players are currently contactable.
func (s *Session) ConnectedCount() int {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	return len(s.players)
}

// ExpectedPlayer finds the roster entry for a player id.
func (s *Session) ExpectedPlayer(playerID string) (models.PlayerInfo, bool) {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()
	for _, info := range s.expected {
		if info.ID == playerID {
			return info, true
		}
	}
	return models.PlayerInfo{}, false
}

// AllPlayersConnected reports whether every roster seat has a live sink.
func (s *Session) AllPlayersConnected() bool {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()

	for _, info := range s.expected {
		if _, ok := s.players[info.ID]; !ok {
			return false
		}
	}
	return true
}

// Roster returns the current player descriptors, reflecting any role swaps.
func (s *Session) Roster() []models.PlayerInfo {
	s.playersMu.RLock()
	defer s.playersMu.RUnlock()

	out := make([]models.PlayerInfo, len(s.expected))
	copy(out, s.expected)
	return out
}

// SwapRoles flips clue giver and guesser within each team for the next
// round, updating both the roster and the live registry. Registry entries
// are replaced with fresh values rather than mutated in place: an
// *ActivePlayer handed out before the swap is never written to again, so
// callers may read its role without holding the registry lock.
func (s *Session) SwapRoles() {
	s.playersMu.Lock()
	defer s.playersMu.Unlock()

	for i := range s.expected {
		s.expected[i].Role = otherRole(s.expected[i].Role)
		if player, ok := s.players[s.expected[i].ID]; ok {
			swapped := *player
			swapped.Info.Role = s.expected[i].Role
			s.players[s.expected[i].ID] = &swapped
		}
	}
}

func otherRole(role models.Role) models.Role {
	if role == models.RoleClueGiver {
		return models.RoleGuesser
	}
	return models.RoleClueGiver
}

// RecordBallot stores one player's validation votes. Returns false when the
// player already voted this phase.
func (s *Session) RecordBallot(playerID string, voterTeam models.Team, votes []models.ValidationVote) bool {
	s.votesMu.Lock()
	defer s.votesMu.Unlock()

	if _, ok := s.votedPlayers[playerID]; ok {
		return false
	}
	s.votedPlayers[playerID] = struct{}{}
	s.ballots = append(s.ballots, models.TeamBallot{VoterTeam: voterTeam, Votes: votes})
	return true
}

// Ballots returns a copy of the ballots collected this validation phase.
func (s *Session) Ballots() []models.TeamBallot {
	s.votesMu.Lock()
	defer s.votesMu.Unlock()

	out := make([]models.TeamBallot, len(s.ballots))
	copy(out, s.ballots)
	return out
}

// VotedCount returns how many players have voted this validation phase.
func (s *Session) VotedCount() int {
	s.votesMu.Lock()
	defer s.votesMu.Unlock()
	return len(s.votedPlayers)
}

// ResetValidation clears the vote set ahead of a validation phase.
func (s *Session) ResetValidation() {
	s.votesMu.Lock()
	defer s.votesMu.Unlock()
	s.votedPlayers = make(map[string]struct{})
	s.ballots = nil
}

// StartRoundTimer arms the 1 Hz round timer for the given number of seconds,
// replacing and stopping any previous round timer. onTick fires once per
// second; the manager decrements the countdown and checks for zero.
func (s *Session) StartRoundTimer(seconds int, onTick func()) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if s.roundTimer != nil {
		s.roundTimer.stop()
	}
	s.roundRemaining.Store(int32(seconds))
	s.roundTimer = newCountdownTimer(s.clock, onTick)
}

// StartValidationTimer arms the 1 Hz validation timer, replacing any
// previous one.
func (s *Session) StartValidationTimer(seconds int, onTick func()) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if s.validationTimer != nil {
		s.validationTimer.stop()
	}
	s.validationRemaining.Store(int32(seconds))
	s.validationTimer = newCountdownTimer(s.clock, onTick)
}

// DecrementRoundCountdown ticks the round countdown down one second and
// returns the remaining value.
func (s *Session) DecrementRoundCountdown() int {
	return int(s.roundRemaining.Add(-1))
}

// RoundCountdown returns the seconds left on the round timer.
func (s *Session) RoundCountdown() int {
	return int(s.roundRemaining.Load())
}

// DecrementValidationCountdown ticks the validation countdown down one
// second and returns the remaining value.
func (s *Session) DecrementValidationCountdown() int {
	return int(s.validationRemaining.Add(-1))
}

// ValidationCountdown returns the seconds left on the validation timer.
func (s *Session) ValidationCountdown() int {
	return int(s.validationRemaining.Load())
}

// StopRoundTimer stops only the round timer. Idempotent.
func (s *Session) StopRoundTimer() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.roundTimer != nil {
		s.roundTimer.stop()
		s.roundTimer = nil
	}
}

// StopValidationTimer stops only the validation timer. Idempotent.
func (s *Session) StopValidationTimer() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if s.validationTimer != nil {
		s.validationTimer.stop()
		s.validationTimer = nil
	}
}

// StopTimers stops both timers. Safe to call any number of times, including
// when no timer was ever started.
func (s *Session) StopTimers() {
	s.StopRoundTimer()
	s.StopValidationTimer()
}

// countdownTimer wraps a clockwork ticker firing once per second until
// stopped. stop is idempotent.
type countdownTimer struct {
	ticker clockwork.Ticker
	done   chan struct{}
	once   sync.Once
}

func newCountdownTimer(clock clockwork.Clock, onTick func()) *countdownTimer {
	t := &countdownTimer{
		ticker: clock.NewTicker(time.Second),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.Chan():
				onTick()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

func (t *countdownTimer) stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
