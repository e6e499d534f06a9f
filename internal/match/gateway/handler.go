package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/passwordparty/server/internal/match"
	"github.com/passwordparty/server/internal/models"
)

// Handler exposes the match subsystem over HTTP: match creation for the
// waiting room, the WebSocket endpoint for players, and operational probes.
type Handler struct {
	ops MatchOps
	cm  *ConnectionManager
}

func NewHandler(ops MatchOps, cm *ConnectionManager) *Handler {
	return &Handler{ops: ops, cm: cm}
}

// Router builds the HTTP surface with CORS applied.
func (h *Handler) Router(allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/ws", h.handleMatchConnection).Methods(http.MethodGet)
	r.HandleFunc("/matches", h.handleCreateMatch).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", h.handleStats).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

// handleMatchConnection upgrades a player's request to a WebSocket. The
// waiting room hands clients their game code and player id out of band.
func (h *Handler) handleMatchConnection(w http.ResponseWriter, r *http.Request) {
	gameCode := r.URL.Query().Get("game_code")
	if gameCode == "" {
		http.Error(w, "game_code is required", http.StatusBadRequest)
		return
	}
	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		http.Error(w, "player_id is required", http.StatusBadRequest)
		return
	}

	// Errors after the upgrade are settled on the socket itself.
	h.cm.UpgradeConnection(w, r, gameCode, playerID)
}

// CreateMatchRequest is the waiting room's handoff of a confirmed lobby.
type CreateMatchRequest struct {
	GameCode string              `json:"game_code"`
	Roster   []models.PlayerInfo `json:"roster"`
}

func (h *Handler) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.ops.CreateMatch(r.Context(), req.GameCode, req.Roster)
	switch {
	case errors.Is(err, match.ErrInvalidRoster):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, match.ErrMatchExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case err != nil:
		log.Error().Err(err).Str("game_code", req.GameCode).Msg("failed to create match")
		http.Error(w, "failed to create match", http.StatusInternalServerError)
	default:
		w.WriteHeader(http.StatusCreated)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// StatsResponse combines live match and connection counts.
type StatsResponse struct {
	LiveMatches int             `json:"live_matches"`
	Connections ConnectionStats `json:"connections"`
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		LiveMatches: h.ops.LiveMatchCount(),
		Connections: h.cm.GetConnectionStats(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode stats response")
	}
}
