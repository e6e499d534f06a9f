package words

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passwordparty/server/internal/models"
)

// Repository draws word cards from Postgres. Implements match.WordSource.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RandomCards returns up to n cards in random order. Fewer than n come back
// when the pool is smaller than the request; the caller decides whether a
// short queue is acceptable.
func (r *Repository) RandomCards(ctx context.Context, n int) ([]models.WordCard, error) {
	if n <= 0 {
		return nil, fmt.Errorf("card count must be positive, got %d", n)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT text_en, text_es, description_en, description_es
        FROM word_cards
        ORDER BY random()
        LIMIT $1
    `, n)
	if err != nil {
		return nil, fmt.Errorf("query word cards: %w", err)
	}
	defer rows.Close()

	var cards []models.WordCard
	for rows.Next() {
		var card models.WordCard
		if err := rows.Scan(&card.TextEN, &card.TextES, &card.DescriptionEN, &card.DescriptionES); err != nil {
			return nil, fmt.Errorf("scan word card: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate word cards: %w", err)
	}
	return cards, nil
}

// Count reports how many cards are available.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM word_cards`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count word cards: %w", err)
	}
	return count, nil
}
