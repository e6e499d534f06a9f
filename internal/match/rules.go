package match

import "github.com/passwordparty/server/internal/models"

// Penalty weights. A synonym clue breaks the game harder than a multiword
// clue, so it costs twice as much.
const (
	multiwordPenaltyPoints = 1
	synonymPenaltyPoints   = 2
)

// CalculateValidationPenalties folds every ballot cast during a validation
// phase into a per-team penalty. A voter's flags always apply to the
// opposing team's turns, never their own, and only to turn ids that appear
// in the target team's log for the round; votes naming any other turn id
// are discarded, so a client cannot invent turns to drain the opposing
// score. Flags from different voters on the same turn id merge by logical
// OR per flag: a turn is counted at most once per category no matter how
// many voters flagged it.
func CalculateValidationPenalties(ballots []models.TeamBallot, turnLogs map[models.Team][]models.TurnRecord) map[models.Team]int {
	type turnFlags struct {
		synonym   bool
		multiword bool
	}

	played := map[models.Team]map[int]struct{}{
		models.TeamRed:  {},
		models.TeamBlue: {},
	}
	for team, log := range turnLogs {
		for _, rec := range log {
			played[team][rec.TurnID] = struct{}{}
		}
	}

	merged := map[models.Team]map[int]*turnFlags{
		models.TeamRed:  {},
		models.TeamBlue: {},
	}

	for _, ballot := range ballots {
		target := ballot.VoterTeam.Opponent()
		for _, vote := range ballot.Votes {
			if _, ok := played[target][vote.TurnID]; !ok {
				continue
			}
			flags, ok := merged[target][vote.TurnID]
			if !ok {
				flags = &turnFlags{}
				merged[target][vote.TurnID] = flags
			}
			flags.synonym = flags.synonym || vote.Synonym
			flags.multiword = flags.multiword || vote.Multiword
		}
	}

	penalties := map[models.Team]int{
		models.TeamRed:  0,
		models.TeamBlue: 0,
	}
	for team, turns := range merged {
		for _, flags := range turns {
			if flags.multiword {
				penalties[team] += multiwordPenaltyPoints
			}
			if flags.synonym {
				penalties[team] += synonymPenaltyPoints
			}
		}
	}
	return penalties
}
