package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/tictactoe-udp/internal/entity"
)

const maxLimit = 100

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	LeaderboardHandler(w http.ResponseWriter, r *http.Request)
	ResultsHandler(w http.ResponseWriter, r *http.Request)
	SessionHandler(w http.ResponseWriter, _ *http.Request)
}

type resultService interface {
	Leaderboard(ctx context.Context, n int64) ([]entity.LeaderboardEntry, error)
	Recent(ctx context.Context, n int64) ([]*entity.GameRecord, error)
}

type sessionView interface {
	Connected() int
	Game() (entity.Game, bool)
}

// SessionResponse is the live state of the current game.
type SessionResponse struct {
	Connected int    `json:"connected"`
	GameID    string `json:"game_id,omitempty"`
	Occupied  int    `json:"occupied"`
	Turn      int    `json:"turn"`
	Over      bool   `json:"over"`
}

type handlers struct {
	logger *slog.Logger

	resultService resultService
	session       sessionView
}

func NewHandlers(logger *slog.Logger, resultService resultService, session sessionView) Handlers {
	return &handlers{
		logger:        logger.With("component", "rest-handlers"),
		resultService: resultService,
		session:       session,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// LeaderboardHandler - lists the players with the most wins.
func (that *handlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "LeaderboardHandler")

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	entries, err := that.resultService.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error("failed to get leaderboard", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, log, entries)
}

// ResultsHandler - lists the latest finished games.
func (that *handlers) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "ResultsHandler")

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	records, err := that.resultService.Recent(r.Context(), limit)
	if err != nil {
		log.Error("failed to get recent results", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	that.writeJSON(w, log, records)
}

func (that *handlers) SessionHandler(w http.ResponseWriter, _ *http.Request) {
	log := that.logger.With("method", "SessionHandler")

	response := SessionResponse{Connected: that.session.Connected()}

	if game, ok := that.session.Game(); ok {
		response.GameID = game.ID
		response.Occupied = game.Occupied
		response.Turn = int(game.Turn)
		response.Over = game.Over
	}

	that.writeJSON(w, log, response)
}

func (that *handlers) writeJSON(w http.ResponseWriter, log *slog.Logger, body any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("failed to write response", "error", err)
	}
}

// parseLimit - reads the optional limit query parameter; 0 means the service default.
func parseLimit(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}

	limit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || limit <= 0 || limit > maxLimit {
		http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
		return 0, false
	}

	return limit, true
}
