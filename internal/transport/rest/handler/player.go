package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"keyclue/internal/service"
	"keyclue/internal/transport/rest/middleware"
)

// PlayerHandler handles player endpoints
type PlayerHandler struct {
	playerSvc *service.PlayerService
	pickSvc   *service.PickService
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(playerSvc *service.PlayerService, pickSvc *service.PickService) *PlayerHandler {
	return &PlayerHandler{
		playerSvc: playerSvc,
		pickSvc:   pickSvc,
	}
}

// JoinRequest is the request body for joining a game
type JoinRequest struct {
	Nickname string `json:"nickname"`
}

// Join handles POST /v1/games/{code}/join
func (h *PlayerHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.playerSvc.Join(r.Context(), code, req.Nickname)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// SubmitPickRequest is the request body for submitting a guess
type SubmitPickRequest struct {
	Guess string `json:"guess"`
}

// SubmitPick handles POST /v1/games/{code}/picks
func (h *PlayerHandler) SubmitPick(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())

	if middleware.GetGameCode(r.Context()) != code {
		writeError(w, http.StatusForbidden, "token not valid for this game")
		return
	}

	var req SubmitPickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.pickSvc.SubmitPick(r.Context(), code, playerID, req.Guess)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}
