package models

import "time"

// Team identifies one of the two sides of a match.
type Team string

const (
	TeamRed  Team = "RED"
	TeamBlue Team = "BLUE"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Role defines what a player does for their team during a round.
type Role string

const (
	RoleClueGiver Role = "CLUE_GIVER"
	RoleGuesser   Role = "GUESSER"
)

// MatchStatus defines the phase of a live match.
type MatchStatus string

const (
	MatchStatusWaitingForPlayers MatchStatus = "WAITING_FOR_PLAYERS"
	MatchStatusInProgress        MatchStatus = "IN_PROGRESS"
	MatchStatusValidating        MatchStatus = "VALIDATING"
	MatchStatusSuddenDeath       MatchStatus = "SUDDEN_DEATH"
	MatchStatusFinished          MatchStatus = "FINISHED"
	MatchStatusCancelled         MatchStatus = "CANCELLED"
)

// Terminal reports whether no further play can happen in this status.
func (s MatchStatus) Terminal() bool {
	return s == MatchStatusFinished || s == MatchStatusCancelled
}

// PlayerInfo describes one participant of a match.
type PlayerInfo struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Team     Team   `json:"team"`
	Role     Role   `json:"role"`
	Ready    bool   `json:"ready"`
}

// WordCard is one entry of a team's word queue. The clue giver sees the
// full card; the guesser only ever sees the masked variant.
type WordCard struct {
	TextEN        string `json:"text_en"`
	TextES        string `json:"text_es"`
	DescriptionEN string `json:"description_en"`
	DescriptionES string `json:"description_es"`
}

// Masked returns a copy safe to show the guesser: both word texts blanked,
// descriptions intact.
func (c WordCard) Masked() WordCard {
	c.TextEN = ""
	c.TextES = ""
	return c
}

// EndCard is the sentinel dealt once a team's word queue is exhausted.
var EndCard = WordCard{
	TextEN:        "END",
	TextES:        "FIN",
	DescriptionEN: "No words left for this round",
	DescriptionES: "No quedan palabras en esta ronda",
}

// TurnRecord is one clue or pass event in a team's turn history.
type TurnRecord struct {
	TurnID int    `json:"turn_id"`
	Word   string `json:"word"`
	Clue   string `json:"clue"`
	Passed bool   `json:"passed"`
}

// ValidationVote is a peer judgment about one opposing turn. Both flags are
// independent; either can carry a penalty on its own.
type ValidationVote struct {
	TurnID    int  `json:"turn_id"`
	Synonym   bool `json:"synonym"`
	Multiword bool `json:"multiword"`
}

// TeamBallot groups the votes one player cast during a validation phase,
// tagged with the voter's team. Votes always target the opposing team.
type TeamBallot struct {
	VoterTeam Team             `json:"voter_team"`
	Votes     []ValidationVote `json:"votes"`
}

// GuessResult is pushed to clients after a guess is resolved.
type GuessResult struct {
	Correct  bool   `json:"correct"`
	Team     Team   `json:"team"`
	NewScore int    `json:"new_score"`
	Guess    string `json:"guess"`
}

// MatchResult is the final outcome recorded once per finished match.
type MatchResult struct {
	GameCode    string    `json:"game_code"`
	Winner      Team      `json:"winner"`
	RedScore    int       `json:"red_score"`
	BlueScore   int       `json:"blue_score"`
	RedPlayers  []string  `json:"red_players"`
	BluePlayers []string  `json:"blue_players"`
	FinishedAt  time.Time `json:"finished_at"`
}
