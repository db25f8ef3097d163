package model

import "time"

type GameState string

const (
	GameWaitingForPlayers GameState = "waiting_for_players"
	GameRunning           GameState = "game_running"
	GameOver              GameState = "game_over"
	GameLobbyTimeout      GameState = "lobby_timeout"
	GameHostDisconnected  GameState = "host_disconnected"
)

// Terminal reports whether the game can no longer transition.
func (s GameState) Terminal() bool {
	return s == GameOver || s == GameLobbyTimeout || s == GameHostDisconnected
}

// CleanupEligible reports whether a host disconnect should tear the game down.
func (s GameState) CleanupEligible() bool {
	return s == GameWaitingForPlayers || s == GameRunning
}

type GameSettings struct {
	Rounds            int `json:"rounds" bson:"rounds"`
	RevealIntervalSec int `json:"revealIntervalSec" bson:"revealIntervalSec"`
	GridSize          int `json:"gridSize" bson:"gridSize"`
}

type Game struct {
	Code      string       `json:"code" bson:"code"`
	State     GameState    `json:"state" bson:"state"`
	HostID    string       `json:"hostId" bson:"hostId"`
	Settings  GameSettings `json:"settings" bson:"settings"`
	CreatedAt time.Time    `json:"createdAt" bson:"createdAt"`
	StartedAt *time.Time   `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	EndedAt   *time.Time   `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// GameMeta is the Redis-cached subset of a game used on hot paths
type GameMeta struct {
	HostID            string    `json:"hostId"`
	State             GameState `json:"state"`
	RevealIntervalSec int       `json:"revealIntervalSec"`
	Rounds            int       `json:"rounds"`
	CreatedAt         time.Time `json:"createdAt"`
}
