package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"keyclue/internal/repository"
	"keyclue/internal/service"
	"keyclue/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps known service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotHost):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGameNotJoinable),
		errors.Is(err, service.ErrGameNotRunning),
		errors.Is(err, service.ErrGameNotStartable),
		errors.Is(err, service.ErrNoPlayers),
		errors.Is(err, service.ErrNoActiveRound),
		errors.Is(err, service.ErrNoWordsAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrDuplicatePick):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNotRunning):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
