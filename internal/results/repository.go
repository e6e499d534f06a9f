package results

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passwordparty/server/internal/models"
)

var ErrInvalidResult = errors.New("invalid match result")

// Repository persists finished match outcomes. Implements match.ResultStore.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveMatchResult records one finished match. Arguments are checked before
// any round trip; the live match path calls this fire-and-forget and a bad
// result should fail loudly in the log rather than corrupt history.
func (r *Repository) SaveMatchResult(ctx context.Context, result models.MatchResult) error {
	if err := validateResult(result); err != nil {
		return err
	}

	_, err := r.pool.Exec(ctx, `
        INSERT INTO match_results (
            game_code, winner, red_score, blue_score,
            red_players, blue_players, finished_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `,
		result.GameCode, string(result.Winner), result.RedScore, result.BlueScore,
		result.RedPlayers, result.BluePlayers, result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert match result: %w", err)
	}
	return nil
}

func validateResult(result models.MatchResult) error {
	if result.GameCode == "" {
		return fmt.Errorf("%w: empty game code", ErrInvalidResult)
	}
	if result.Winner != models.TeamRed && result.Winner != models.TeamBlue {
		return fmt.Errorf("%w: unknown winner %q", ErrInvalidResult, result.Winner)
	}
	if result.RedScore < 0 || result.BlueScore < 0 {
		return fmt.Errorf("%w: negative score", ErrInvalidResult)
	}
	if len(result.RedPlayers) == 0 || len(result.BluePlayers) == 0 {
		return fmt.Errorf("%w: missing players", ErrInvalidResult)
	}
	if result.FinishedAt.IsZero() {
		return fmt.Errorf("%w: zero finish time", ErrInvalidResult)
	}
	return nil
}
