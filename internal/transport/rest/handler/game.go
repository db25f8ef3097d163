package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"keyclue/internal/model"
	"keyclue/internal/service"
	"keyclue/internal/transport/rest/middleware"
)

// GameHandler handles game lifecycle endpoints
type GameHandler struct {
	gameSvc   *service.GameService
	playerSvc *service.PlayerService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameSvc *service.GameService, playerSvc *service.PlayerService) *GameHandler {
	return &GameHandler{
		gameSvc:   gameSvc,
		playerSvc: playerSvc,
	}
}

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	Settings model.GameSettings `json:"settings"`
}

// Create handles POST /v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	hostID := middleware.GetHostID(r.Context())
	if hostID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	game, err := h.gameSvc.CreateGame(r.Context(), hostID, req.Settings)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, game)
}

// Get handles GET /v1/games/{code}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	game, err := h.gameSvc.GetGame(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if game == nil {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}

	writeJSON(w, http.StatusOK, game)
}

// Start handles POST /v1/games/{code}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	if err := h.gameSvc.StartGame(r.Context(), code, hostID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// End handles POST /v1/games/{code}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	if err := h.gameSvc.EndGame(r.Context(), code, hostID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// SessionState handles GET /v1/games/{code}/session — live timer counters
// and round progress for diagnostics.
func (h *GameHandler) SessionState(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	snap, err := h.gameSvc.SessionState(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Leaderboard handles GET /v1/games/{code}/leaderboard
func (h *GameHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.gameSvc.Leaderboard(r.Context(), code, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// Players handles GET /v1/games/{code}/players
func (h *GameHandler) Players(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	players, err := h.playerSvc.List(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, players)
}
