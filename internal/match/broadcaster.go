package match

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Broadcaster fans push notifications out to connected players. Fan-out is
// best effort: one dead peer never blocks delivery to the rest. Point-to-point
// sends surface the failure to the caller, because only the caller knows what
// cleanup the failed player needs.
type Broadcaster struct{}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Broadcast invokes send against every connected player of the session, one
// goroutine per recipient, and joins before returning. Players whose send
// failed are returned as disconnected ids; everyone else still got the call.
// Broadcast itself never fails.
func (b *Broadcaster) Broadcast(s *Session, send func(*ActivePlayer) error) []string {
	return b.BroadcastToGroup(s.Code, s.ConnectedPlayers(), send)
}

// BroadcastToGroup applies Broadcast semantics to an explicit subset.
func (b *Broadcaster) BroadcastToGroup(gameCode string, players []*ActivePlayer, send func(*ActivePlayer) error) []string {
	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		disconnected []string
	)

	for _, player := range players {
		wg.Add(1)
		go func(player *ActivePlayer) {
			defer wg.Done()
			if err := send(player); err != nil {
				log.Warn().
					Err(err).
					Str("game_code", gameCode).
					Str("player_id", player.Info.ID).
					Msg("push failed during broadcast, treating player as disconnected")
				mu.Lock()
				disconnected = append(disconnected, player.Info.ID)
				mu.Unlock()
			}
		}(player)
	}

	wg.Wait()
	return disconnected
}

// SendToPlayer pushes to a single player synchronously. On failure it logs
// and returns the error so the caller can run disconnection handling for
// exactly this player.
func (b *Broadcaster) SendToPlayer(gameCode string, player *ActivePlayer, send func(*ActivePlayer) error) error {
	if err := send(player); err != nil {
		log.Warn().
			Err(err).
			Str("game_code", gameCode).
			Str("player_id", player.Info.ID).
			Msg("push to player failed")
		return err
	}
	return nil
}
