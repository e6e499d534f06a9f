package match

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/passwordparty/server/internal/models"
)

type fakeFinisher struct {
	mu      sync.Mutex
	winners []models.Team
}

func (f *fakeFinisher) FinishMatch(s *Session, winner models.Team) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winners = append(f.winners, winner)
}

func (f *fakeFinisher) finished() []models.Team {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Team, len(f.winners))
	copy(out, f.winners)
	return out
}

func newTestGuessHandler(t *testing.T) (*GuessHandler, *Session, map[string]*fakeSink, *fakeDisconnects, *fakeFinisher) {
	t.Helper()
	s := newTestSession(t)
	sinks := registerRoster(s)
	s.SetWordQueue(models.TeamRed, []models.WordCard{
		{TextEN: "cat", TextES: "gato", DescriptionEN: "a small feline", DescriptionES: "un felino pequeño"},
		{TextEN: "dog", TextES: "perro", DescriptionEN: "a loyal canine", DescriptionES: "un canino fiel"},
		{TextEN: "sun", TextES: "sol", DescriptionEN: "the day star", DescriptionES: "la estrella diurna"},
	})
	s.SetWordQueue(models.TeamBlue, []models.WordCard{
		{TextEN: "moon", TextES: "luna", DescriptionEN: "the night light", DescriptionES: "la luz nocturna"},
	})
	s.SetStatus(models.MatchStatusInProgress)

	broadcaster := NewBroadcaster()
	disconnects := &fakeDisconnects{}
	finisher := &fakeFinisher{}
	handler := NewGuessHandler(broadcaster, NewDistributor(broadcaster, disconnects), disconnects, finisher)
	return handler, s, sinks, disconnects, finisher
}

func TestIsGuessCorrect(t *testing.T) {
	card := &models.WordCard{TextEN: "cat", TextES: "gato"}

	assert.True(t, IsGuessCorrect(card, "cat"))
	assert.True(t, IsGuessCorrect(card, "CAT"))
	assert.True(t, IsGuessCorrect(card, "  gato "))
	assert.True(t, IsGuessCorrect(card, "GaTo"))
	assert.False(t, IsGuessCorrect(card, "dog"))
	assert.False(t, IsGuessCorrect(card, "cats"))
	assert.False(t, IsGuessCorrect(card, ""))
	assert.False(t, IsGuessCorrect(nil, "cat"))
	assert.False(t, IsGuessCorrect(nil, ""))
}

func TestHandleCorrectGuess_ScoresAdvancesAndBroadcasts(t *testing.T) {
	handler, s, sinks, _, finisher := newTestGuessHandler(t)

	handler.HandleCorrectGuess(s, s.PlayerByID("red-guesser"), "cat")

	assert.Equal(t, 1, s.Score(models.TeamRed))
	assert.Equal(t, 1, s.WordCursor(models.TeamRed))

	// The opposing team is untouched.
	assert.Equal(t, 0, s.Score(models.TeamBlue))
	assert.Equal(t, 0, s.WordCursor(models.TeamBlue))

	// Every player hears about the correct guess.
	for id, sink := range sinks {
		require.Len(t, sink.guessResults, 1, "player %s", id)
		result := sink.guessResults[0]
		assert.True(t, result.Correct)
		assert.Equal(t, models.TeamRed, result.Team)
		assert.Equal(t, 1, result.NewScore)
	}

	// The scoring team got the next card, asymmetry intact.
	giverCard, ok := sinks["red-giver"].lastCard()
	require.True(t, ok)
	assert.Equal(t, "dog", giverCard.TextEN)
	guesserCard, ok := sinks["red-guesser"].lastCard()
	require.True(t, ok)
	assert.Empty(t, guesserCard.TextEN)

	assert.Empty(t, finisher.finished())
}

func TestHandleCorrectGuess_SuddenDeathEndsMatchImmediately(t *testing.T) {
	handler, s, sinks, _, finisher := newTestGuessHandler(t)
	s.SetStatus(models.MatchStatusSuddenDeath)

	handler.HandleCorrectGuess(s, s.PlayerByID("blue-guesser"), "moon")

	assert.Equal(t, models.MatchStatusFinished, s.Status())
	assert.Equal(t, 1, s.Score(models.TeamBlue))
	assert.Equal(t, []models.Team{models.TeamBlue}, finisher.finished())

	// No further word distribution after the terminal guess.
	assert.Equal(t, 0, sinks["blue-giver"].callCount("WordDealt"))
	assert.Equal(t, 0, s.WordCursor(models.TeamBlue))
}

func TestHandleCorrectGuess_SuddenDeathRace(t *testing.T) {
	handler, s, _, _, finisher := newTestGuessHandler(t)
	s.SetStatus(models.MatchStatusSuddenDeath)

	handler.HandleCorrectGuess(s, s.PlayerByID("blue-guesser"), "moon")
	handler.HandleCorrectGuess(s, s.PlayerByID("red-guesser"), "cat")

	// Only the first terminal guess wins; the second is a stale message.
	assert.Equal(t, []models.Team{models.TeamBlue}, finisher.finished())
	assert.Equal(t, 0, s.Score(models.TeamRed))
}

func TestHandleIncorrectGuess_OnlyActingTeamNotified(t *testing.T) {
	handler, s, sinks, disconnects, _ := newTestGuessHandler(t)
	s.AddScore(models.TeamRed, 2)

	handler.HandleIncorrectGuess(s, s.PlayerByID("red-guesser"), "banana")

	assert.Equal(t, 2, s.Score(models.TeamRed))
	assert.Equal(t, 0, s.WordCursor(models.TeamRed))

	for _, id := range []string{"red-guesser", "red-giver"} {
		require.Len(t, sinks[id].guessResults, 1, "player %s", id)
		result := sinks[id].guessResults[0]
		assert.False(t, result.Correct)
		assert.Equal(t, 2, result.NewScore)
	}
	assert.Equal(t, 0, sinks["blue-giver"].callCount("GuessResult"))
	assert.Equal(t, 0, sinks["blue-guesser"].callCount("GuessResult"))
	assert.Empty(t, disconnects.reported())
}

func TestHandleIncorrectGuess_SendFailuresEscalateIndividually(t *testing.T) {
	handler, s, sinks, disconnects, _ := newTestGuessHandler(t)
	sinks["red-giver"].failEverything()

	handler.HandleIncorrectGuess(s, s.PlayerByID("red-guesser"), "banana")

	assert.Equal(t, []string{"red-giver"}, disconnects.reported())
	assert.Equal(t, 1, sinks["red-guesser"].callCount("GuessResult"))
}
