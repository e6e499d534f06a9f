package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/passwordparty/server/internal/models"
)

var errSinkClosed = errors.New("sink closed")

// fakeSink records every push it receives and can be told to fail specific
// methods (or everything) to simulate a dead peer.
type fakeSink struct {
	mu      sync.Mutex
	failAll bool
	fail    map[string]bool

	calls            []string
	rosters          [][]models.PlayerInfo
	cards            []models.WordCard
	clues            []string
	guessResults     []models.GuessResult
	roundTicks       []int
	validationTicks  []int
	validationStarts []map[models.Team][]models.TurnRecord
	penalties        []map[models.Team]int
	finalScores      []map[models.Team]int
	roundsStarted    []int
	suddenDeaths     int
	winners          []models.Team
	cancelReasons    []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{fail: make(map[string]bool)}
}

func (f *fakeSink) failMethod(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[name] = true
}

func (f *fakeSink) failEverything() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = true
}

func (f *fakeSink) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || f.fail[name] {
		return errSinkClosed
	}
	f.calls = append(f.calls, name)
	return nil
}

func (f *fakeSink) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeSink) MatchStarted(roster []models.PlayerInfo) error {
	if err := f.record("MatchStarted"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rosters = append(f.rosters, roster)
	return nil
}

func (f *fakeSink) RoundTick(secondsLeft int) error {
	if err := f.record("RoundTick"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roundTicks = append(f.roundTicks, secondsLeft)
	return nil
}

func (f *fakeSink) ValidationTick(secondsLeft int) error {
	if err := f.record("ValidationTick"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validationTicks = append(f.validationTicks, secondsLeft)
	return nil
}

func (f *fakeSink) WordDealt(card models.WordCard) error {
	if err := f.record("WordDealt"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards = append(f.cards, card)
	return nil
}

func (f *fakeSink) ClueReceived(clue string) error {
	if err := f.record("ClueReceived"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clues = append(f.clues, clue)
	return nil
}

func (f *fakeSink) GuessResult(result models.GuessResult) error {
	if err := f.record("GuessResult"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guessResults = append(f.guessResults, result)
	return nil
}

func (f *fakeSink) ValidationStarted(histories map[models.Team][]models.TurnRecord) error {
	if err := f.record("ValidationStarted"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validationStarts = append(f.validationStarts, histories)
	return nil
}

func (f *fakeSink) ValidationFinished(penalties map[models.Team]int, scores map[models.Team]int) error {
	if err := f.record("ValidationFinished"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.penalties = append(f.penalties, penalties)
	f.finalScores = append(f.finalScores, scores)
	return nil
}

func (f *fakeSink) RoundStarted(round int, roster []models.PlayerInfo) error {
	if err := f.record("RoundStarted"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roundsStarted = append(f.roundsStarted, round)
	f.rosters = append(f.rosters, roster)
	return nil
}

func (f *fakeSink) SuddenDeathStarted() error {
	if err := f.record("SuddenDeathStarted"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suddenDeaths++
	return nil
}

func (f *fakeSink) MatchOver(winner models.Team, scores map[models.Team]int) error {
	if err := f.record("MatchOver"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winners = append(f.winners, winner)
	f.finalScores = append(f.finalScores, scores)
	return nil
}

func (f *fakeSink) MatchCancelled(reason string) error {
	if err := f.record("MatchCancelled"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelReasons = append(f.cancelReasons, reason)
	return nil
}

func (f *fakeSink) lastCard() (models.WordCard, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.cards) == 0 {
		return models.WordCard{}, false
	}
	return f.cards[len(f.cards)-1], true
}

// fakeWordSource deals deterministic cards: word-0, word-1, ...
type fakeWordSource struct {
	mu    sync.Mutex
	next  int
	fixed []models.WordCard
	err   error
}

func (f *fakeWordSource) RandomCards(ctx context.Context, n int) ([]models.WordCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.fixed != nil {
		return f.fixed, nil
	}
	cards := make([]models.WordCard, n)
	for i := range cards {
		cards[i] = models.WordCard{
			TextEN:        fmt.Sprintf("word-%d", f.next),
			TextES:        fmt.Sprintf("palabra-%d", f.next),
			DescriptionEN: fmt.Sprintf("description %d", f.next),
			DescriptionES: fmt.Sprintf("descripción %d", f.next),
		}
		f.next++
	}
	return cards, nil
}

// fakeResultStore records saved results and signals on save.
type fakeResultStore struct {
	mu      sync.Mutex
	results []models.MatchResult
	saved   chan struct{}
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{saved: make(chan struct{}, 4)}
}

func (f *fakeResultStore) SaveMatchResult(ctx context.Context, result models.MatchResult) error {
	f.mu.Lock()
	f.results = append(f.results, result)
	f.mu.Unlock()
	f.saved <- struct{}{}
	return nil
}

func (f *fakeResultStore) savedResults() []models.MatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MatchResult, len(f.results))
	copy(out, f.results)
	return out
}

// fakePublisher records match lifecycle events.
type fakePublisher struct {
	mu     sync.Mutex
	events []MatchEvent
}

func (f *fakePublisher) PublishMatchEvent(ctx context.Context, event MatchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) eventTypes() []MatchEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MatchEventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// testRoster builds the canonical 2v2 roster used across tests.
func testRoster() []models.PlayerInfo {
	return []models.PlayerInfo{
		{ID: "red-giver", Nickname: "Ana", Team: models.TeamRed, Role: models.RoleClueGiver},
		{ID: "red-guesser", Nickname: "Bruno", Team: models.TeamRed, Role: models.RoleGuesser},
		{ID: "blue-giver", Nickname: "Carla", Team: models.TeamBlue, Role: models.RoleClueGiver},
		{ID: "blue-guesser", Nickname: "Diego", Team: models.TeamBlue, Role: models.RoleGuesser},
	}
}
