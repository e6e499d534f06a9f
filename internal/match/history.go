package match

import (
	"sync"

	"github.com/passwordparty/server/internal/models"
)

// TurnHistory records the clue and pass events of both teams for the round
// in flight. Turn ids are assigned here and grow monotonically for the whole
// session, so validation votes cast in round N can never collide with ids
// reissued in round N+1.
type TurnHistory struct {
	mu         sync.Mutex
	nextTurnID int
	logs       map[models.Team][]models.TurnRecord
}

func NewTurnHistory() *TurnHistory {
	return &TurnHistory{
		nextTurnID: 1,
		logs: map[models.Team][]models.TurnRecord{
			models.TeamRed:  {},
			models.TeamBlue: {},
		},
	}
}

// RecordClue appends a clue event to the team's log and returns it with its
// assigned turn id.
func (h *TurnHistory) RecordClue(team models.Team, word, clue string) models.TurnRecord {
	return h.record(team, models.TurnRecord{Word: word, Clue: clue})
}

// RecordPass appends a pass event to the team's log.
func (h *TurnHistory) RecordPass(team models.Team, word string) models.TurnRecord {
	return h.record(team, models.TurnRecord{Word: word, Passed: true})
}

func (h *TurnHistory) record(team models.Team, rec models.TurnRecord) models.TurnRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec.TurnID = h.nextTurnID
	h.nextTurnID++
	h.logs[team] = append(h.logs[team], rec)
	return rec
}

// Freeze returns a deep copy of both logs, safe to hand to validation
// broadcasts while play state keeps moving.
func (h *TurnHistory) Freeze() map[models.Team][]models.TurnRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	frozen := make(map[models.Team][]models.TurnRecord, len(h.logs))
	for team, log := range h.logs {
		cp := make([]models.TurnRecord, len(log))
		copy(cp, log)
		frozen[team] = cp
	}
	return frozen
}

// Reset clears both logs for a new round. Turn ids keep counting.
func (h *TurnHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logs[models.TeamRed] = h.logs[models.TeamRed][:0]
	h.logs[models.TeamBlue] = h.logs[models.TeamBlue][:0]
}
