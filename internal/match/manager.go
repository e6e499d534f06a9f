package match

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/models"
)

// WordSource supplies candidate word cards for a team's round queue. It may
// return fewer cards than requested when the pool is running dry.
type WordSource interface {
	RandomCards(ctx context.Context, n int) ([]models.WordCard, error)
}

// ResultStore records the final outcome of a match. Called fire-and-forget;
// a failure is logged and never reaches the players.
type ResultStore interface {
	SaveMatchResult(ctx context.Context, result models.MatchResult) error
}

// ClueFilter transforms clue text before distribution. It may alter content
// but never fails the call.
type ClueFilter interface {
	Clean(text string) string
}

// Manager is the service façade of the live match subsystem. It owns the
// map of all running sessions (sole writer: insert on create, delete on
// termination) and sequences every inbound operation into the session,
// distributor, guess handler and rules engine.
type Manager struct {
	settings Settings
	clock    clockwork.Clock
	words    WordSource
	results  ResultStore
	events   EventPublisher
	filter   ClueFilter

	broadcaster *Broadcaster
	distributor *Distributor
	guesses     *GuessHandler

	mu       sync.RWMutex
	sessions map[string]*Session
}

// ManagerConfig wires the manager's collaborators. Events, Filter and Clock
// are optional.
type ManagerConfig struct {
	Settings Settings
	Words    WordSource
	Results  ResultStore
	Events   EventPublisher
	Filter   ClueFilter
	Clock    clockwork.Clock
}

// NewManager creates a manager with no live sessions.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Events == nil {
		cfg.Events = noopPublisher{}
	}
	if cfg.Filter == nil {
		cfg.Filter = passthroughFilter{}
	}

	m := &Manager{
		settings: cfg.Settings,
		clock:    cfg.Clock,
		words:    cfg.Words,
		results:  cfg.Results,
		events:   cfg.Events,
		filter:   cfg.Filter,
		sessions: make(map[string]*Session),
	}
	m.broadcaster = NewBroadcaster()
	m.distributor = NewDistributor(m.broadcaster, m)
	m.guesses = NewGuessHandler(m.broadcaster, m.distributor, m, m)
	return m
}

// CreateMatch registers a new session for a game code with the roster the
// waiting room confirmed, and fills both teams' word queues.
func (m *Manager) CreateMatch(ctx context.Context, code string, roster []models.PlayerInfo) error {
	if code == "" {
		return fmt.Errorf("%w: empty game code", ErrInvalidRoster)
	}
	if err := validateRoster(roster); err != nil {
		return err
	}

	session := NewSession(code, roster, m.clock)
	if err := m.fillWordQueues(ctx, session); err != nil {
		return fmt.Errorf("failed to populate word queues: %w", err)
	}

	m.mu.Lock()
	if _, exists := m.sessions[code]; exists {
		m.mu.Unlock()
		return ErrMatchExists
	}
	m.sessions[code] = session
	m.mu.Unlock()

	log.Info().
		Str("game_code", code).
		Int("players", len(roster)).
		Msg("match created, waiting for players")
	return nil
}

// Subscribe attaches a player's sink to a match. Once the full roster is
// connected the match starts: roster push, first word pair to each team,
// round timer armed.
func (m *Manager) Subscribe(ctx context.Context, code, playerID string, sink ClientSink) error {
	session, err := m.session(code)
	if err != nil {
		return err
	}

	info, ok := session.ExpectedPlayer(playerID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlayerNotInRoster, playerID)
	}
	info.Ready = true
	session.RegisterPlayer(&ActivePlayer{Info: info, Sink: sink})

	log.Info().
		Str("game_code", code).
		Str("player_id", playerID).
		Str("team", string(info.Team)).
		Str("role", string(info.Role)).
		Msg("player subscribed")

	if session.AllPlayersConnected() {
		m.startMatch(session)
	}
	return nil
}

// SubmitClue records a clue-giving turn and forwards the (filtered) clue to
// the guesser. Out-of-phase or wrong-role submissions are silently ignored;
// stale client messages are expected during jitter.
func (m *Manager) SubmitClue(ctx context.Context, code, playerID, clue string) error {
	session, err := m.session(code)
	if err != nil {
		return err
	}
	if !inPlay(session.Status()) {
		return nil
	}
	player := session.PlayerByID(playerID)
	if player == nil || player.Info.Role != models.RoleClueGiver {
		return nil
	}

	cleaned := m.filter.Clean(clue)
	session.History().RecordClue(player.Info.Team, currentWordText(session, player.Info.Team), cleaned)
	m.distributor.NotifyPartnerOfClue(session, player, cleaned)
	return nil
}

// SubmitGuess resolves a guess against the guessing team's current word.
func (m *Manager) SubmitGuess(ctx context.Context, code, playerID, guess string) error {
	session, err := m.session(code)
	if err != nil {
		return err
	}
	if !inPlay(session.Status()) {
		return nil
	}
	player := session.PlayerByID(playerID)
	if player == nil || player.Info.Role != models.RoleGuesser {
		return nil
	}

	card := session.CurrentWord(player.Info.Team)
	if IsGuessCorrect(card, guess) {
		m.guesses.HandleCorrectGuess(session, player, guess)
	} else {
		m.guesses.HandleIncorrectGuess(session, player, guess)
	}
	return nil
}

// PassTurn burns the team's one pass for the round: the pass is logged as a
// turn event, the cursor advances and both team members are told what
// happens next. Duplicate passes in the same round are ignored.
func (m *Manager) PassTurn(ctx context.Context, code, playerID string) error {
	session, err := m.session(code)
	if err != nil {
		return err
	}
	if !inPlay(session.Status()) {
		return nil
	}
	player := session.PlayerByID(playerID)
	if player == nil {
		return nil
	}
	if !session.MarkPassed(player.Info.Team) {
		return nil
	}

	session.History().RecordPass(player.Info.Team, currentWordText(session, player.Info.Team))
	session.AdvanceWord(player.Info.Team)
	m.distributor.SendPassTurnUpdates(session, player)
	return nil
}

// SubmitValidationVotes records one player's ballot about the opposing
// team's turns. When every connected player has voted the round settles
// without waiting for the validation timer.
func (m *Manager) SubmitValidationVotes(ctx context.Context, code, playerID string, votes []models.ValidationVote) error {
	session, err := m.session(code)
	if err != nil {
		return err
	}
	if session.Status() != models.MatchStatusValidating {
		return nil
	}
	player := session.PlayerByID(playerID)
	if player == nil {
		return nil
	}
	if !session.RecordBallot(playerID, player.Info.Team, votes) {
		return nil
	}

	log.Debug().
		Str("game_code", code).
		Str("player_id", playerID).
		Int("votes", len(votes)).
		Msg("validation ballot recorded")

	if session.VotedCount() >= session.ConnectedCount() {
		m.settleValidation(session)
	}
	return nil
}

// CancelMatch aborts a match from the outside with a human-readable reason.
func (m *Manager) CancelMatch(code, reason string) error {
	session, err := m.session(code)
	if err != nil {
		return err
	}
	m.cancelSession(session, reason)
	return nil
}

// PlayerConnectionLost is the transport's signal that a player's channel
// dropped without a failed send (read side closed first).
func (m *Manager) PlayerConnectionLost(code, playerID string) {
	session, err := m.session(code)
	if err != nil {
		return
	}
	m.HandlePlayerDisconnect(session, playerID)
}

// HandlePlayerDisconnect prunes an unreachable player. In a 2v2 match every
// role is essential, so losing anyone mid-play cancels the match for the
// remaining party. Never retries, never re-enters for the same player.
func (m *Manager) HandlePlayerDisconnect(s *Session, playerID string) {
	remaining, removed := s.RemovePlayer(playerID)
	if !removed {
		return
	}

	nickname := playerID
	if info, ok := s.ExpectedPlayer(playerID); ok {
		nickname = info.Nickname
	}
	log.Info().
		Str("game_code", s.Code).
		Str("player_id", playerID).
		Int("remaining", remaining).
		Msg("player disconnected")

	status := s.Status()
	switch {
	case status.Terminal():
		if remaining == 0 {
			m.removeSession(s.Code)
		}
	case status == models.MatchStatusWaitingForPlayers:
		if remaining == 0 {
			s.StopTimers()
			m.removeSession(s.Code)
			log.Info().Str("game_code", s.Code).Msg("all players left before start, match discarded")
		}
	default:
		m.cancelSession(s, fmt.Sprintf("%s left the match", nickname))
	}
}

// FinishMatch ends a match with a winner: timers stop, everyone gets the
// final scores, the result is persisted fire-and-forget and the session is
// torn down.
func (m *Manager) FinishMatch(s *Session, winner models.Team) {
	if !m.removeSession(s.Code) {
		return
	}
	s.SetStatus(models.MatchStatusFinished)
	s.StopTimers()

	scores := s.Scores()
	disconnected := m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.MatchOver(winner, scores)
	})
	for _, id := range disconnected {
		s.RemovePlayer(id)
	}

	log.Info().
		Str("game_code", s.Code).
		Str("winner", string(winner)).
		Int("red_score", scores[models.TeamRed]).
		Int("blue_score", scores[models.TeamBlue]).
		Msg("match finished")

	go m.persistResult(s, winner, scores)
	m.publishEvent(s.Code, MatchEventFinished, MatchFinishedPayload{Winner: winner, Scores: scores})
}

// cancelSession tears a match down early: remaining players get the reason,
// no result is recorded.
func (m *Manager) cancelSession(s *Session, reason string) {
	if !m.removeSession(s.Code) {
		return
	}
	s.SetStatus(models.MatchStatusCancelled)
	s.StopTimers()

	m.broadcaster.Broadcast(s, func(p *ActivePlayer) error {
		return p.Sink.MatchCancelled(reason)
	})

	log.Info().
		Str("game_code", s.Code).
		Str("reason", reason).
		Msg("match cancelled")

	m.publishEvent(s.Code, MatchEventCancelled, MatchCancelledPayload{Reason: reason})
}

// persistResult writes the final outcome with its own deadline, detached
// from any request context.
func (m *Manager) persistResult(s *Session, winner models.Team, scores map[models.Team]int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result := models.MatchResult{
		GameCode:    s.Code,
		Winner:      winner,
		RedScore:    scores[models.TeamRed],
		BlueScore:   scores[models.TeamBlue],
		RedPlayers:  teamPlayerIDs(s, models.TeamRed),
		BluePlayers: teamPlayerIDs(s, models.TeamBlue),
		FinishedAt:  m.clock.Now().UTC(),
	}
	if err := m.results.SaveMatchResult(ctx, result); err != nil {
		log.Error().
			Err(err).
			Str("game_code", s.Code).
			Msg("failed to record match result")
	}
}

func (m *Manager) publishEvent(code string, eventType MatchEventType, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := MatchEvent{
		ID:         uuid.New(),
		Type:       eventType,
		GameCode:   code,
		OccurredAt: m.clock.Now().UTC(),
		Payload:    payload,
	}
	if err := m.events.PublishMatchEvent(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("game_code", code).
			Str("event_type", string(eventType)).
			Msg("failed to publish match event")
	}
}

// session looks a live session up by game code.
func (m *Manager) session(code string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, code)
	}
	return session, nil
}

// removeSession deletes the session from the live map. Returns false when it
// was already gone, which serializes competing termination paths.
func (m *Manager) removeSession(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[code]; !ok {
		return false
	}
	delete(m.sessions, code)
	return true
}

// LiveMatchCount reports how many sessions are running.
func (m *Manager) LiveMatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// fillWordQueues draws a fresh queue for each team. The source may return
// fewer cards than requested; an empty queue still plays, it just deals the
// END sentinel immediately.
func (m *Manager) fillWordQueues(ctx context.Context, s *Session) error {
	for _, team := range []models.Team{models.TeamRed, models.TeamBlue} {
		cards, err := m.words.RandomCards(ctx, m.settings.WordsPerRound)
		if err != nil {
			return err
		}
		if len(cards) < m.settings.WordsPerRound {
			log.Warn().
				Str("game_code", s.Code).
				Str("team", string(team)).
				Int("requested", m.settings.WordsPerRound).
				Int("received", len(cards)).
				Msg("word source returned short queue")
		}
		s.SetWordQueue(team, cards)
	}
	return nil
}

func validateRoster(roster []models.PlayerInfo) error {
	if len(roster) != 4 {
		return fmt.Errorf("%w: expected 4 players, got %d", ErrInvalidRoster, len(roster))
	}

	seen := make(map[string]struct{}, len(roster))
	roles := make(map[models.Team]map[models.Role]int)
	for _, info := range roster {
		if info.ID == "" {
			return fmt.Errorf("%w: player with empty id", ErrInvalidRoster)
		}
		if _, dup := seen[info.ID]; dup {
			return fmt.Errorf("%w: duplicate player id %s", ErrInvalidRoster, info.ID)
		}
		seen[info.ID] = struct{}{}

		if info.Team != models.TeamRed && info.Team != models.TeamBlue {
			return fmt.Errorf("%w: unknown team %q", ErrInvalidRoster, info.Team)
		}
		if info.Role != models.RoleClueGiver && info.Role != models.RoleGuesser {
			return fmt.Errorf("%w: unknown role %q", ErrInvalidRoster, info.Role)
		}
		if roles[info.Team] == nil {
			roles[info.Team] = make(map[models.Role]int)
		}
		roles[info.Team][info.Role]++
	}

	for _, team := range []models.Team{models.TeamRed, models.TeamBlue} {
		if roles[team][models.RoleClueGiver] != 1 || roles[team][models.RoleGuesser] != 1 {
			return fmt.Errorf("%w: team %s needs exactly one clue giver and one guesser", ErrInvalidRoster, team)
		}
	}
	return nil
}

// inPlay reports whether guesses, clues and passes are accepted.
func inPlay(status models.MatchStatus) bool {
	return status == models.MatchStatusInProgress || status == models.MatchStatusSuddenDeath
}

// currentWordText returns the English text of the team's current word for
// the turn history, or the END sentinel text past the queue.
func currentWordText(s *Session, team models.Team) string {
	if card := s.CurrentWord(team); card != nil {
		return card.TextEN
	}
	return models.EndCard.TextEN
}

// teamPlayerIDs collects a team's player ids from the roster.
func teamPlayerIDs(s *Session, team models.Team) []string {
	var ids []string
	for _, info := range s.Roster() {
		if info.Team == team {
			ids = append(ids, info.ID)
		}
	}
	return ids
}

// noopPublisher drops events; the default when no bus is configured.
type noopPublisher struct{}

func (noopPublisher) PublishMatchEvent(ctx context.Context, event MatchEvent) error {
	return nil
}

// passthroughFilter leaves clue text untouched.
type passthroughFilter struct{}

func (passthroughFilter) Clean(text string) string { return text }
