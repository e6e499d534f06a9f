package match

import (
	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/models"
)

// PartnerPassedClue is the synthetic clue pushed to a guesser whose partner
// passed the current word.
const PartnerPassedClue = "PASS"

// DisconnectHandler removes a player whose sink faulted and decides what the
// loss means for the match. Implemented by the Manager.
type DisconnectHandler interface {
	HandlePlayerDisconnect(s *Session, playerID string)
}

// Distributor delivers word cards to a team with the asymmetry the game is
// built on: the clue giver sees the word, the guesser sees only the
// descriptions. That invariant is enforced here and nowhere else, so every
// card leaving this type has already been masked correctly for its viewer.
type Distributor struct {
	broadcaster *Broadcaster
	disconnects DisconnectHandler
}

func NewDistributor(broadcaster *Broadcaster, disconnects DisconnectHandler) *Distributor {
	return &Distributor{
		broadcaster: broadcaster,
		disconnects: disconnects,
	}
}

// DealWordToTeam pushes the team's current-cursor card to both roles: the
// full card to the clue giver, the masked card to the guesser. A failure
// during this paired send escalates BOTH roles to the disconnect handler; a
// half-delivered word pair leaves the team in a state we cannot reason
// about, so the whole pair is treated as gone.
func (d *Distributor) DealWordToTeam(s *Session, team models.Team) {
	card := s.CurrentWord(team)
	if card == nil {
		end := models.EndCard
		card = &end
	}

	giver := s.PlayerByRole(team, models.RoleClueGiver)
	guesser := s.PlayerByRole(team, models.RoleGuesser)

	failed := false
	if giver != nil {
		if err := d.broadcaster.SendToPlayer(s.Code, giver, func(p *ActivePlayer) error {
			return p.Sink.WordDealt(*card)
		}); err != nil {
			failed = true
		}
	}
	if guesser != nil {
		if err := d.broadcaster.SendToPlayer(s.Code, guesser, func(p *ActivePlayer) error {
			return p.Sink.WordDealt(card.Masked())
		}); err != nil {
			failed = true
		}
	}

	if !failed {
		return
	}

	log.Warn().
		Str("game_code", s.Code).
		Str("team", string(team)).
		Msg("word delivery to team failed, escalating both roles")
	if giver != nil {
		d.disconnects.HandlePlayerDisconnect(s, giver.Info.ID)
	}
	if guesser != nil {
		d.disconnects.HandlePlayerDisconnect(s, guesser.Info.ID)
	}
}

// SendPassTurnUpdates notifies a passing player of their own next card and
// their partner of the masked card plus the synthetic pass clue. Unlike the
// paired deal, failures here escalate only the player whose send faulted.
func (d *Distributor) SendPassTurnUpdates(s *Session, passer *ActivePlayer) {
	card := s.CurrentWord(passer.Info.Team)
	if card == nil {
		end := models.EndCard
		card = &end
	}

	if err := d.broadcaster.SendToPlayer(s.Code, passer, func(p *ActivePlayer) error {
		return p.Sink.WordDealt(d.cardFor(p, *card))
	}); err != nil {
		d.disconnects.HandlePlayerDisconnect(s, passer.Info.ID)
	}

	partner := s.Partner(passer.Info.ID)
	if partner == nil {
		return
	}
	if err := d.broadcaster.SendToPlayer(s.Code, partner, func(p *ActivePlayer) error {
		if err := p.Sink.WordDealt(d.cardFor(p, *card)); err != nil {
			return err
		}
		return p.Sink.ClueReceived(PartnerPassedClue)
	}); err != nil {
		d.disconnects.HandlePlayerDisconnect(s, partner.Info.ID)
	}
}

// NotifyPartnerOfClue forwards clue text to the guesser of the giver's team.
// Content is delivered as-is; filtering happens before the clue reaches the
// distributor.
func (d *Distributor) NotifyPartnerOfClue(s *Session, giver *ActivePlayer, clue string) {
	partner := s.Partner(giver.Info.ID)
	if partner == nil {
		log.Debug().
			Str("game_code", s.Code).
			Str("player_id", giver.Info.ID).
			Msg("no partner connected to receive clue")
		return
	}

	if err := d.broadcaster.SendToPlayer(s.Code, partner, func(p *ActivePlayer) error {
		return p.Sink.ClueReceived(clue)
	}); err != nil {
		d.disconnects.HandlePlayerDisconnect(s, partner.Info.ID)
	}
}

// cardFor masks the card when the viewer is a guesser.
func (d *Distributor) cardFor(player *ActivePlayer, card models.WordCard) models.WordCard {
	if player.Info.Role == models.RoleGuesser {
		return card.Masked()
	}
	return card
}
