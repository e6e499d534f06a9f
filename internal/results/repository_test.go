package results_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/passwordparty/server/internal/models"
	"github.com/passwordparty/server/internal/results"
)

var (
	repo *results.Repository
	pool *pgxpool.Pool
)

const schema = `
CREATE TABLE match_results (
    id           SERIAL PRIMARY KEY,
    game_code    TEXT NOT NULL,
    winner       TEXT NOT NULL,
    red_score    INT NOT NULL,
    blue_score   INT NOT NULL,
    red_players  TEXT[] NOT NULL,
    blue_players TEXT[] NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL
);`

func TestMain(m *testing.M) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine3.22",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		// No Docker available; the integration tests skip themselves.
		fmt.Fprintf(os.Stderr, "skipping results integration tests: %v\n", err)
		os.Exit(m.Run())
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	pool, err = pgxpool.New(ctx, connString)
	if err != nil {
		panic(err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		panic(err)
	}
	repo = results.NewRepository(pool)

	code := m.Run()

	pool.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func validResult() models.MatchResult {
	return models.MatchResult{
		GameCode:    "GAME01",
		Winner:      models.TeamRed,
		RedScore:    5,
		BlueScore:   3,
		RedPlayers:  []string{"p1", "p2"},
		BluePlayers: []string{"p3", "p4"},
		FinishedAt:  time.Now().UTC(),
	}
}

// Validation runs before any round trip, so these cases need no database.
func TestSaveMatchResult_Validation(t *testing.T) {
	bare := results.NewRepository(nil)
	ctx := context.Background()

	result := validResult()
	result.GameCode = ""
	assert.ErrorIs(t, bare.SaveMatchResult(ctx, result), results.ErrInvalidResult)

	result = validResult()
	result.Winner = "GREEN"
	assert.ErrorIs(t, bare.SaveMatchResult(ctx, result), results.ErrInvalidResult)

	result = validResult()
	result.RedScore = -1
	assert.ErrorIs(t, bare.SaveMatchResult(ctx, result), results.ErrInvalidResult)

	result = validResult()
	result.RedPlayers = nil
	assert.ErrorIs(t, bare.SaveMatchResult(ctx, result), results.ErrInvalidResult)

	result = validResult()
	result.FinishedAt = time.Time{}
	assert.ErrorIs(t, bare.SaveMatchResult(ctx, result), results.ErrInvalidResult)
}

func TestSaveMatchResult(t *testing.T) {
	if repo == nil {
		t.Skip("database unavailable")
	}
	ctx := context.Background()

	result := validResult()
	require.NoError(t, repo.SaveMatchResult(ctx, result))

	var (
		winner              string
		redScore, blueScore int
		redPlayers          []string
		bluePlayers         []string
	)
	err := pool.QueryRow(ctx, `
        SELECT winner, red_score, blue_score, red_players, blue_players
        FROM match_results WHERE game_code = $1
    `, result.GameCode).Scan(&winner, &redScore, &blueScore, &redPlayers, &bluePlayers)
	require.NoError(t, err)

	assert.Equal(t, "RED", winner)
	assert.Equal(t, 5, redScore)
	assert.Equal(t, 3, blueScore)
	assert.Equal(t, []string{"p1", "p2"}, redPlayers)
	assert.Equal(t, []string{"p3", "p4"}, bluePlayers)
}
