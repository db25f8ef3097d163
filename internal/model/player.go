package model

import "time"

// Player represents a participant in a game
type Player struct {
	ID       string    `json:"id" bson:"_id,omitempty"`
	GameCode string    `json:"gameCode" bson:"gameCode"`
	Nickname string    `json:"nickname" bson:"nickname"`
	Score    int       `json:"score" bson:"score"`
	JoinedAt time.Time `json:"joinedAt" bson:"joinedAt"`
}

// PlayerJoinResponse is returned when a player joins a game
type PlayerJoinResponse struct {
	PlayerID string    `json:"playerId"`
	Token    string    `json:"token"`
	GameMeta *GameMeta `json:"gameMeta"`
}
