package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/dbconfig"
	"github.com/passwordparty/server/internal/match"
	"github.com/passwordparty/server/internal/match/gateway"
	"github.com/passwordparty/server/internal/matchevents"
	"github.com/passwordparty/server/internal/profanity"
	"github.com/passwordparty/server/internal/results"
	"github.com/passwordparty/server/internal/words"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	cfg := &Config{}
	if err := newCmd(cfg).Execute(); err != nil {
		log.Fatal().Err(err).Msg("passwordd failed")
	}
}

func serve(ctx context.Context, cfg *Config) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	settings := match.DefaultSettings()
	if cfg.settingsFile != "" {
		var err error
		settings, err = match.LoadSettings(cfg.settingsFile)
		if err != nil {
			return err
		}
	}

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return err
	}

	managerCfg := match.ManagerConfig{
		Settings: settings,
		Words:    words.NewRepository(pool),
		Results:  results.NewRepository(pool),
	}

	if cfg.wordlistFile != "" {
		banned, err := loadWordList(cfg.wordlistFile)
		if err != nil {
			return err
		}
		managerCfg.Filter = profanity.NewFilter(banned)
		log.Info().Int("words", len(banned)).Msg("clue blocklist loaded")
	}

	var publisher *matchevents.JetStreamPublisher
	if cfg.natsURL != "" {
		jsCfg := matchevents.DefaultJetStreamConfig()
		jsCfg.URL = cfg.natsURL
		publisher, err = matchevents.NewJetStreamPublisher(jsCfg)
		if err != nil {
			return err
		}
		defer publisher.Close()
		managerCfg.Events = publisher
	}

	manager := match.NewManager(managerCfg)
	cm := gateway.NewConnectionManager(manager, gateway.DefaultConnectionConfig())
	handler := gateway.NewHandler(manager, cm)

	server := &http.Server{
		Addr:         cfg.addr(),
		Handler:      handler.Router(cfg.allowedOrigins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("database", dbCfg.Database).
			Bool("events_enabled", publisher != nil).
			Msg("passwordd listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cm.Shutdown(shutdownCtx)

	log.Info().Msg("passwordd shutdown complete")
	return nil
}

// loadWordList reads a newline-separated word list, skipping blanks and
// comment lines.
func loadWordList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list = append(list, line)
	}
	return list, nil
}
